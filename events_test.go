package server

import (
	"context"
	"sync"
	"testing"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/logging"
	"loot-brawl/server/logging/combat"
	"loot-brawl/server/logging/lifecycle"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (p *capturePublisher) Publish(_ context.Context, event logging.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturePublisher) ofType(typ logging.EventType) []logging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []logging.Event
	for _, event := range p.events {
		if event.Type == typ {
			out = append(out, event)
		}
	}
	return out
}

func TestRoomLifecycleEventsPublished(t *testing.T) {
	pub := &capturePublisher{}
	cfg := testConfig()
	cfg.Publisher = pub
	room := newRoom("arena", cfg)
	t.Cleanup(func() { room.shutdown("test done") })

	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.mustJoin(t, "player-2", "bob", &fakeConn{})
	room.Leave("player-2")

	if got := pub.ofType(lifecycle.EventPlayerJoined); len(got) != 2 {
		t.Fatalf("expected 2 join events, got %d", len(got))
	}
	started := pub.ofType(lifecycle.EventMatchStarted)
	if len(started) != 1 || started[0].Room != "arena" {
		t.Fatalf("expected one match_started for arena, got %+v", started)
	}
	if got := pub.ofType(lifecycle.EventPlayerLeft); len(got) != 1 {
		t.Fatalf("expected 1 leave event, got %d", len(got))
	}
	ended := pub.ofType(lifecycle.EventMatchEnded)
	if len(ended) != 1 {
		t.Fatalf("expected one match_ended after the survivor was crowned, got %d", len(ended))
	}
	payload, ok := ended[0].Payload.(lifecycle.MatchEndedPayload)
	if !ok || payload.WinnerID != "player-1" {
		t.Fatalf("expected player-1 recorded as winner, got %+v", ended[0].Payload)
	}
}

func TestCombatEventsPublished(t *testing.T) {
	pub := &capturePublisher{}
	cfg := testConfig()
	cfg.Publisher = pub
	room := newRoom("arena", cfg)
	t.Cleanup(func() { room.shutdown("test done") })

	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.mustJoin(t, "player-2", "bob", &fakeConn{})
	room.setPosition("player-1", 200, 200)
	room.setPosition("player-2", 240, 200)

	room.UseSkill("player-1", proto.SkillDamage)

	used := pub.ofType(combat.EventSkillUsed)
	if len(used) != 1 {
		t.Fatalf("expected one skill_used event, got %d", len(used))
	}
	if payload, ok := used[0].Payload.(combat.SkillUsedPayload); !ok || payload.Cost != skillDamageCost {
		t.Fatalf("unexpected skill_used payload %+v", used[0].Payload)
	}

	hits := pub.ofType(combat.EventSkillHit)
	if len(hits) != 1 {
		t.Fatalf("expected one skill_hit event, got %d", len(hits))
	}
	if len(hits[0].Targets) != 1 || hits[0].Targets[0].ID != "player-2" {
		t.Fatalf("expected player-2 as hit target, got %+v", hits[0].Targets)
	}
}
