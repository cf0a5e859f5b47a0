package server

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/internal/sim"
	"loot-brawl/server/logging"
	"loot-brawl/server/logging/lifecycle"
)

type roomPhase int

const (
	phaseWaiting roomPhase = iota
	phaseActive
	phaseEnded
)

func (p roomPhase) String() string {
	switch p {
	case phaseWaiting:
		return "waiting"
	case phaseActive:
		return "active"
	case phaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Room owns one isolated match: its players, loot, subscribers, and timers.
// Every mutation is serialized under mu; the broadcaster reads settled
// snapshots under the same mutex.
type Room struct {
	id  string
	cfg Config

	mu       sync.Mutex
	players  map[string]*playerState
	subs     map[string]Conn
	loots    []*lootState
	phase    roomPhase
	matchEnd time.Time
	closed   bool
	rng      *rand.Rand

	lootSeq atomic.Uint64

	sched     *scheduler
	stopBcast chan struct{}
	stopOnce  sync.Once

	// destroy removes the room from its registry and shuts it down. Set by
	// the registry at creation; safe to call more than once.
	destroy func(reason string)
}

func newRoom(id string, cfg Config) *Room {
	r := &Room{
		id:        id,
		cfg:       cfg,
		players:   make(map[string]*playerState),
		subs:      make(map[string]Conn),
		loots:     make([]*lootState, 0),
		phase:     phaseWaiting,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sched:     newScheduler(),
		stopBcast: make(chan struct{}),
	}
	r.destroy = func(string) {}
	return r
}

// ID returns the room identifier.
func (r *Room) ID() string {
	return r.id
}

type joinStatus int

const (
	joinOK joinStatus = iota
	joinEnded
	joinClosed
)

// join admits a player, announces them, and starts the match when the room
// reaches two occupants. The returned ack carries the player's own state plus
// a summary of everyone already present.
func (r *Room) join(playerID, name string, conn Conn) (proto.JoinAck, joinStatus) {
	if name == "" {
		name = "Player"
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return proto.JoinAck{Type: proto.TypeJoinAck, OK: false, Error: "room closed"}, joinClosed
	}
	if r.phase == phaseEnded {
		r.mu.Unlock()
		return proto.JoinAck{Type: proto.TypeJoinAck, OK: false, Error: "match already over"}, joinEnded
	}

	player := &playerState{
		id:    playerID,
		name:  name,
		color: playerColors[len(r.players)%len(playerColors)],
		pos: sim.Vec2{
			X: spawnInset + r.rng.Float64()*playerSpawnRangeX,
			Y: spawnInset + r.rng.Float64()*playerSpawnRangeY,
		},
		health: maxHealth,
		energy: maxEnergy,
		alive:  true,
	}
	r.players[playerID] = player
	r.subs[playerID] = conn

	events := []outbound{r.messageLocked(proto.PlayerJoinedMessage{
		Type:   proto.TypePlayerJoined,
		Player: player.snapshot(),
	}, playerID)}

	if r.phase == phaseWaiting && len(r.players) >= 2 {
		events = append(events, r.startMatchLocked()...)
	}

	me := player.snapshot()
	snapshots := r.playerSnapshotsLocked()
	r.mu.Unlock()

	r.deliver(events)
	lifecycle.PlayerJoined(context.Background(), r.cfg.Publisher, r.id, logging.PlayerRef(playerID), lifecycle.PlayerJoinedPayload{Name: name})

	return proto.JoinAck{Type: proto.TypeJoinAck, OK: true, Me: &me, Players: snapshots}, joinOK
}

// startMatchLocked transitions WAITING to ACTIVE and arms the match clock and
// the loot spawner.
func (r *Room) startMatchLocked() []outbound {
	r.phase = phaseActive
	r.matchEnd = time.Now().Add(r.cfg.MatchDuration)

	r.sched.every(r.cfg.TimerInterval, r.matchTick)
	r.sched.every(r.cfg.LootInterval, r.spawnLoot)

	lifecycle.MatchStarted(context.Background(), r.cfg.Publisher, r.id, lifecycle.MatchStartedPayload{Players: len(r.players)})
	return nil
}

// matchTick announces the remaining time once per interval and ends the match
// in a draw when the clock runs out.
func (r *Room) matchTick() {
	r.mu.Lock()
	if r.closed || r.phase != phaseActive {
		r.mu.Unlock()
		return
	}

	var events []outbound
	remaining := time.Until(r.matchEnd)
	if remaining <= 0 {
		events = r.endMatchLocked(nil)
	} else {
		events = append(events, r.messageLocked(proto.TimerMessage{
			Type:      proto.TypeTimer,
			Remaining: remaining.Milliseconds(),
		}, ""))
	}
	r.mu.Unlock()
	r.deliver(events)
}

// endMatchLocked transitions to ENDED exactly once: cancels all room timers,
// marks every player not alive so late inputs are rejected during the grace
// window, and emits game_over. Destruction follows after the grace delay so
// the notification can reach every client first.
func (r *Room) endMatchLocked(winner *playerState) []outbound {
	if r.phase == phaseEnded {
		return nil
	}
	r.phase = phaseEnded
	r.sched.Stop()

	var ref *proto.WinnerRef
	payload := lifecycle.MatchEndedPayload{Draw: true}
	if winner != nil {
		ref = &proto.WinnerRef{ID: winner.id, Name: winner.name}
		payload = lifecycle.MatchEndedPayload{WinnerID: winner.id}
	}
	for _, p := range r.players {
		p.alive = false
	}

	events := []outbound{r.messageLocked(proto.GameOverMessage{
		Type:   proto.TypeGameOver,
		Winner: ref,
	}, "")}

	time.AfterFunc(r.cfg.CloseGrace, func() { r.destroy("match over") })

	lifecycle.MatchEnded(context.Background(), r.cfg.Publisher, r.id, payload)
	return events
}

// ApplyInput integrates one movement input at receipt time. Inputs are
// accepted before the match starts (movement has no effect on match state)
// but never for dead players. Sequence regressions are accepted as-is; the
// client owns reconciliation correctness.
func (r *Room) ApplyInput(playerID string, in proto.ClientMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	player, ok := r.players[playerID]
	if !ok || !player.alive {
		return
	}

	_, speedMult := player.buffs(time.Now())
	speed := baseMoveSpeed * speedMult
	player.pos, player.vel = sim.Integrate(player.pos, sim.Vec2{X: in.AX, Y: in.AY}, speed, in.DT)
	player.lastProcessedInput = in.Seq
}

// Leave removes a player, tells the rest, and tears the room down when it
// empties. While a match is running, a departure counts toward the game-over
// alive check: the last player standing wins without a player_dead event.
func (r *Room) Leave(playerID string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, ok := r.players[playerID]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.players, playerID)
	delete(r.subs, playerID)

	events := []outbound{r.messageLocked(proto.PlayerLeftMessage{
		Type: proto.TypePlayerLeft,
		ID:   playerID,
	}, "")}

	empty := len(r.players) == 0
	if !empty && r.phase == phaseActive {
		if alive, count := r.soleSurvivorLocked(); count <= 1 {
			events = append(events, r.endMatchLocked(alive)...)
		}
	}
	r.mu.Unlock()

	r.deliver(events)
	lifecycle.PlayerLeft(context.Background(), r.cfg.Publisher, r.id, logging.PlayerRef(playerID))

	if empty {
		r.destroy("empty")
	}
}

// soleSurvivorLocked returns the single alive player (nil if zero or several)
// and the alive count.
func (r *Room) soleSurvivorLocked() (*playerState, int) {
	var survivor *playerState
	count := 0
	for _, p := range r.players {
		if p.alive {
			survivor = p
			count++
		}
	}
	if count != 1 {
		survivor = nil
	}
	return survivor, count
}

// shutdown cancels all timers and the broadcaster. Idempotent; called via the
// registry's destroy path.
func (r *Room) shutdown(reason string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.sched.Stop()
	r.stopOnce.Do(func() { close(r.stopBcast) })
	lifecycle.RoomDestroyed(context.Background(), r.cfg.Publisher, r.id, reason)
}

func (r *Room) playerSnapshotsLocked() []proto.PlayerSnapshot {
	snapshots := make([]proto.PlayerSnapshot, 0, len(r.players))
	for _, p := range r.players {
		snapshots = append(snapshots, p.snapshot())
	}
	return snapshots
}

func (r *Room) lootSnapshotsLocked() []proto.Loot {
	loots := make([]proto.Loot, 0, len(r.loots))
	for _, l := range r.loots {
		loots = append(loots, l.Loot)
	}
	return loots
}

// playerCount reports current occupancy for diagnostics.
func (r *Room) playerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

func (r *Room) currentPhase() roomPhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

func (r *Room) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

type subscriberRef struct {
	id   string
	conn Conn
}

// outbound is a marshaled message plus the subscribers it targets, captured
// under the room lock so delivery can happen outside it.
type outbound struct {
	data    []byte
	targets []subscriberRef
}

// messageLocked marshals msg once and targets every subscriber except the
// given id. Callers hold r.mu.
func (r *Room) messageLocked(msg any, except string) outbound {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("room %s: failed to marshal %T: %v", r.id, msg, err)
		return outbound{}
	}
	out := outbound{data: data}
	for id, conn := range r.subs {
		if id == except {
			continue
		}
		out.targets = append(out.targets, subscriberRef{id: id, conn: conn})
	}
	return out
}

// deliver writes queued messages without holding the room lock. Subscribers
// whose connection fails are removed from the room.
func (r *Room) deliver(events []outbound) {
	var failed map[string]bool
	for _, ev := range events {
		if len(ev.data) == 0 {
			continue
		}
		for _, target := range ev.targets {
			if failed[target.id] {
				continue
			}
			if err := target.conn.Send(ev.data); err != nil {
				log.Printf("room %s: failed to send to %s: %v", r.id, target.id, err)
				if failed == nil {
					failed = make(map[string]bool)
				}
				failed[target.id] = true
			}
		}
	}
	for id := range failed {
		r.Leave(id)
	}
}

