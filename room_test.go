package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/internal/sim"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	fail   bool
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("connection gone")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.sent = append(c.sent, buf)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) countType(t *testing.T, typ string) int {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	for _, raw := range c.sent {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			t.Fatalf("malformed captured message: %v", err)
		}
		if head.Type == typ {
			count++
		}
	}
	return count
}

func (c *fakeConn) lastOfType(t *testing.T, typ string, out any) bool {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.sent) - 1; i >= 0; i-- {
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(c.sent[i], &head); err != nil {
			t.Fatalf("malformed captured message: %v", err)
		}
		if head.Type != typ {
			continue
		}
		if err := json.Unmarshal(c.sent[i], out); err != nil {
			t.Fatalf("failed to decode %s message: %v", typ, err)
		}
		return true
	}
	return false
}

// testConfig keeps every timer far in the future so nothing fires during a
// test unless the test shortens it.
func testConfig() Config {
	return Config{
		MatchDuration:     time.Hour,
		TimerInterval:     time.Hour,
		LootInterval:      time.Hour,
		LootLifetime:      time.Hour,
		CloseGrace:        time.Hour,
		BroadcastInterval: time.Hour,
	}.normalized()
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	room := newRoom("test-room", testConfig())
	t.Cleanup(func() { room.shutdown("test done") })
	return room
}

func (r *Room) mustJoin(t *testing.T, playerID, name string, conn Conn) proto.JoinAck {
	t.Helper()
	ack, status := r.join(playerID, name, conn)
	if status != joinOK || !ack.OK {
		t.Fatalf("join %s failed: status=%d error=%q", playerID, status, ack.Error)
	}
	return ack
}

func (r *Room) setPosition(playerID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[playerID].pos = sim.Vec2{X: x, Y: y}
}

func (r *Room) player(t *testing.T, playerID string) playerState {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		t.Fatalf("player %s not in room", playerID)
	}
	return *p
}

func TestJoinAckDescribesSelfAndOthers(t *testing.T) {
	room := newTestRoom(t)

	connA := &fakeConn{}
	ackA := room.mustJoin(t, "player-1", "alice", connA)

	if ackA.Me == nil || ackA.Me.ID != "player-1" || ackA.Me.Name != "alice" {
		t.Fatalf("unexpected self snapshot %+v", ackA.Me)
	}
	if ackA.Me.Health != maxHealth || ackA.Me.Energy != maxEnergy || !ackA.Me.Alive {
		t.Fatalf("expected a fresh player at full stats, got %+v", ackA.Me)
	}
	if len(ackA.Players) != 1 {
		t.Fatalf("expected 1 known player, got %d", len(ackA.Players))
	}

	connB := &fakeConn{}
	ackB := room.mustJoin(t, "player-2", "bob", connB)

	if len(ackB.Players) != 2 {
		t.Fatalf("expected 2 known players, got %d", len(ackB.Players))
	}
	if ackA.Me.Color == ackB.Me.Color {
		t.Fatalf("expected distinct colors, both got %q", ackA.Me.Color)
	}
	if connA.countType(t, proto.TypePlayerJoined) != 1 {
		t.Fatalf("expected existing player to be told about the newcomer")
	}
	if connB.countType(t, proto.TypePlayerJoined) != 0 {
		t.Fatalf("newcomer should not be told about itself")
	}
}

func TestJoinAckSafeDuringConcurrentCombat(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.mustJoin(t, "player-2", "bob", &fakeConn{})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			room.UseSkill("player-1", proto.SkillDamage)
			room.mu.Lock()
			room.players["player-1"].energy = maxEnergy
			for _, p := range room.players {
				p.health = maxHealth
			}
			room.mu.Unlock()
		}
	}()

	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("joiner-%d", i)
		ack, status := room.join(id, "joiner", &fakeConn{})
		if status != joinOK {
			t.Fatalf("join %s failed with status %d", id, status)
		}
		if ack.Me == nil || ack.Me.ID != id {
			t.Fatalf("join %s returned a foreign snapshot %+v", id, ack.Me)
		}
	}

	close(stop)
	wg.Wait()
}

func TestSpawnPositionsStayInsideSpawnBox(t *testing.T) {
	room := newTestRoom(t)

	for i := 0; i < 25; i++ {
		ack := room.mustJoin(t, playerID(i), "p", &fakeConn{})
		if ack.Me.X < spawnInset || ack.Me.X > spawnInset+playerSpawnRangeX {
			t.Fatalf("spawn X %v outside [%v, %v]", ack.Me.X, spawnInset, spawnInset+playerSpawnRangeX)
		}
		if ack.Me.Y < spawnInset || ack.Me.Y > spawnInset+playerSpawnRangeY {
			t.Fatalf("spawn Y %v outside [%v, %v]", ack.Me.Y, spawnInset, spawnInset+playerSpawnRangeY)
		}
	}
}

func playerID(i int) string {
	return "player-" + string(rune('a'+i%26)) + string(rune('a'+i/26))
}

func TestSecondJoinStartsMatch(t *testing.T) {
	room := newTestRoom(t)

	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	if room.currentPhase() != phaseWaiting {
		t.Fatalf("expected waiting phase with one player, got %v", room.currentPhase())
	}

	room.mustJoin(t, "player-2", "bob", &fakeConn{})
	if room.currentPhase() != phaseActive {
		t.Fatalf("expected active phase with two players, got %v", room.currentPhase())
	}
}

func TestJoinRejectedAfterMatchEnded(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.mustJoin(t, "player-2", "bob", &fakeConn{})

	room.mu.Lock()
	events := room.endMatchLocked(nil)
	room.mu.Unlock()
	room.deliver(events)

	ack, status := room.join("player-3", "carol", &fakeConn{})
	if status != joinEnded || ack.OK {
		t.Fatalf("expected join rejected after game over, got status=%d ack=%+v", status, ack)
	}
}

func TestApplyInputIntegratesAtReceiptTime(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.setPosition("player-1", 100, 100)

	room.ApplyInput("player-1", proto.ClientMessage{
		Type: proto.TypeInput,
		Seq:  7,
		DT:   0.1,
		AX:   1,
		AY:   0,
	})

	p := room.player(t, "player-1")
	if p.pos.X != 115 || p.pos.Y != 100 {
		t.Fatalf("expected position (115, 100), got (%v, %v)", p.pos.X, p.pos.Y)
	}
	if p.lastProcessedInput != 7 {
		t.Fatalf("expected lastProcessedInput 7, got %d", p.lastProcessedInput)
	}
}

func TestApplyInputClampsOversizedDelta(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.setPosition("player-1", 100, 100)

	room.ApplyInput("player-1", proto.ClientMessage{Type: proto.TypeInput, Seq: 1, DT: 10, AX: 1})

	p := room.player(t, "player-1")
	if p.pos.X != 115 {
		t.Fatalf("expected clamped travel of 15 units, got X=%v", p.pos.X)
	}
}

func TestApplyInputIgnoresDeadPlayers(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.setPosition("player-1", 100, 100)
	room.mu.Lock()
	room.players["player-1"].alive = false
	room.mu.Unlock()

	room.ApplyInput("player-1", proto.ClientMessage{Type: proto.TypeInput, Seq: 1, DT: 0.1, AX: 1})

	p := room.player(t, "player-1")
	if p.pos.X != 100 {
		t.Fatalf("expected dead player to stay put, got X=%v", p.pos.X)
	}
	if p.lastProcessedInput != 0 {
		t.Fatalf("expected no input acknowledgement for dead player, got %d", p.lastProcessedInput)
	}
}

func TestApplyInputUsesSpeedBuff(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.setPosition("player-1", 100, 100)
	room.mu.Lock()
	room.players["player-1"].speedUntil = time.Now().Add(time.Minute)
	room.mu.Unlock()

	room.ApplyInput("player-1", proto.ClientMessage{Type: proto.TypeInput, Seq: 1, DT: 0.1, AX: 1})

	p := room.player(t, "player-1")
	if p.pos.X != 130 {
		t.Fatalf("expected doubled speed travel of 30 units, got X=%v", p.pos.X)
	}
}

func TestLeaveNotifiesRemainingPlayers(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	connB := &fakeConn{}
	room.mustJoin(t, "player-2", "bob", connB)

	room.Leave("player-1")

	var left proto.PlayerLeftMessage
	if !connB.lastOfType(t, proto.TypePlayerLeft, &left) {
		t.Fatalf("expected a player_left message")
	}
	if left.ID != "player-1" {
		t.Fatalf("expected player-1 to be announced, got %q", left.ID)
	}
	if room.playerCount() != 1 {
		t.Fatalf("expected 1 remaining player, got %d", room.playerCount())
	}
}

func TestLeaveDuringMatchCrownsSurvivor(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	connB := &fakeConn{}
	room.mustJoin(t, "player-2", "bob", connB)

	room.Leave("player-1")

	var over proto.GameOverMessage
	if !connB.lastOfType(t, proto.TypeGameOver, &over) {
		t.Fatalf("expected a game_over when the second-to-last player disconnects")
	}
	if over.Winner == nil || over.Winner.ID != "player-2" {
		t.Fatalf("expected player-2 to win, got %+v", over.Winner)
	}
	if connB.countType(t, proto.TypePlayerDead) != 0 {
		t.Fatalf("a disconnect is not an elimination; got player_dead")
	}
	if room.currentPhase() != phaseEnded {
		t.Fatalf("expected ended phase, got %v", room.currentPhase())
	}
}

func TestLeaveOfLastPlayerDestroysRoom(t *testing.T) {
	room := newTestRoom(t)
	destroyed := make(chan string, 1)
	room.destroy = func(reason string) { destroyed <- reason }

	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	room.Leave("player-1")

	select {
	case reason := <-destroyed:
		if reason != "empty" {
			t.Fatalf("expected destroy reason %q, got %q", "empty", reason)
		}
	default:
		t.Fatalf("expected the room to request its own destruction")
	}
}

func TestLeaveUnknownPlayerIsNoop(t *testing.T) {
	room := newTestRoom(t)
	connA := &fakeConn{}
	room.mustJoin(t, "player-1", "alice", connA)

	room.Leave("player-99")

	if room.playerCount() != 1 {
		t.Fatalf("expected occupancy unchanged, got %d", room.playerCount())
	}
	if connA.countType(t, proto.TypePlayerLeft) != 0 {
		t.Fatalf("expected no player_left for an unknown id")
	}
}

func TestFailedSendRemovesSubscriber(t *testing.T) {
	room := newTestRoom(t)
	room.mustJoin(t, "player-1", "alice", &fakeConn{})
	connB := &fakeConn{fail: true}
	room.mustJoin(t, "player-2", "bob", connB)

	room.broadcastState()

	if room.playerCount() != 1 {
		t.Fatalf("expected the unreachable player to be removed, got %d players", room.playerCount())
	}
}

func TestBroadcastStateCarriesFullRoom(t *testing.T) {
	room := newTestRoom(t)
	connA := &fakeConn{}
	room.mustJoin(t, "player-1", "alice", connA)
	room.mustJoin(t, "player-2", "bob", &fakeConn{})
	room.spawnLoot()

	room.broadcastState()

	var state proto.StateMessage
	if !connA.lastOfType(t, proto.TypeState, &state) {
		t.Fatalf("expected a state broadcast")
	}
	if len(state.Players) != 2 {
		t.Fatalf("expected 2 players in the snapshot, got %d", len(state.Players))
	}
	if len(state.Loots) != 1 {
		t.Fatalf("expected 1 loot in the snapshot, got %d", len(state.Loots))
	}
	if state.TS == 0 {
		t.Fatalf("expected a server timestamp")
	}
}

func TestMatchTimeoutEndsInDraw(t *testing.T) {
	cfg := testConfig()
	cfg.MatchDuration = 10 * time.Millisecond
	room := newRoom("draw-room", cfg)
	t.Cleanup(func() { room.shutdown("test done") })

	connA := &fakeConn{}
	room.mustJoin(t, "player-1", "alice", connA)
	room.mustJoin(t, "player-2", "bob", &fakeConn{})

	time.Sleep(20 * time.Millisecond)
	room.matchTick()

	var over proto.GameOverMessage
	if !connA.lastOfType(t, proto.TypeGameOver, &over) {
		t.Fatalf("expected game_over after the match clock ran out")
	}
	if over.Winner != nil {
		t.Fatalf("expected a draw, got winner %+v", over.Winner)
	}
	alive := room.player(t, "player-1").alive
	if alive {
		t.Fatalf("expected players marked not alive after game over")
	}
}

func TestMatchTickAnnouncesRemainingTime(t *testing.T) {
	room := newTestRoom(t)
	connA := &fakeConn{}
	room.mustJoin(t, "player-1", "alice", connA)
	room.mustJoin(t, "player-2", "bob", &fakeConn{})

	room.matchTick()

	var timer proto.TimerMessage
	if !connA.lastOfType(t, proto.TypeTimer, &timer) {
		t.Fatalf("expected a timer broadcast")
	}
	if timer.Remaining <= 0 {
		t.Fatalf("expected positive remaining time, got %d", timer.Remaining)
	}
}
