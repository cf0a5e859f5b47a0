// Package predict implements the client side of the movement protocol:
// immediate local application of input, a buffer of unacknowledged inputs,
// and reconciliation against authoritative snapshots. It owns no I/O; the
// caller ships the messages it produces and feeds it the messages it
// receives.
package predict

import (
	"math"
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/internal/sim"
)

const (
	baseMoveSpeed = 150.0
	speedMult     = 2.0
	buffDuration  = 3 * time.Second
	lerpFraction  = 0.25
	pickupRadius  = 20.0
)

var skillCosts = map[string]int{
	proto.SkillDamage: 20,
	proto.SkillSpeed:  15,
	proto.SkillDefend: 10,
}

// PendingInput is one locally-applied input awaiting server acknowledgement.
type PendingInput struct {
	Seq   uint64
	DT    float64
	AX    float64
	AY    float64
	Speed float64
}

// RemotePlayer is another room occupant. Pos is the displayed position,
// smoothed each render step toward Target, the last authoritative position.
type RemotePlayer struct {
	Snapshot proto.PlayerSnapshot
	Pos      sim.Vec2
	Target   sim.Vec2
}

// Session holds all client-side game state for one joined player. It is not
// safe for concurrent use; drive it from a single loop.
type Session struct {
	PlayerID string
	RoomID   string

	Pos     sim.Vec2
	Local   proto.PlayerSnapshot
	Remotes map[string]*RemotePlayer
	Loots   map[string]proto.Loot

	seq        uint64
	pending    []PendingInput
	speedUntil time.Time

	now func() time.Time
}

// NewSession builds a session from a successful join ack.
func NewSession(roomID string, ack proto.JoinAck) *Session {
	s := &Session{
		RoomID:  roomID,
		Remotes: make(map[string]*RemotePlayer),
		Loots:   make(map[string]proto.Loot),
		now:     time.Now,
	}
	if ack.Me != nil {
		s.PlayerID = ack.Me.ID
		s.Local = *ack.Me
		s.Pos = sim.Vec2{X: ack.Me.X, Y: ack.Me.Y}
	}
	for _, p := range ack.Players {
		if p.ID == s.PlayerID {
			continue
		}
		s.addRemote(p)
	}
	return s
}

func (s *Session) addRemote(p proto.PlayerSnapshot) {
	s.Remotes[p.ID] = &RemotePlayer{
		Snapshot: p,
		Pos:      sim.Vec2{X: p.X, Y: p.Y},
		Target:   sim.Vec2{X: p.X, Y: p.Y},
	}
}

// Speed reports the movement speed the session predicts with, accounting for
// a locally-predicted speed buff.
func (s *Session) Speed() float64 {
	if s.now().Before(s.speedUntil) {
		return baseMoveSpeed * speedMult
	}
	return baseMoveSpeed
}

// Step applies one frame of input locally and returns the input message to
// transmit. ax and ay are the normalized direction axis in [-1, 1].
func (s *Session) Step(ax, ay, dt float64) proto.ClientMessage {
	s.seq++
	speed := s.Speed()
	s.Pos, _ = sim.Integrate(s.Pos, sim.Vec2{X: ax, Y: ay}, speed, dt)
	s.pending = append(s.pending, PendingInput{Seq: s.seq, DT: dt, AX: ax, AY: ay, Speed: speed})
	return proto.ClientMessage{
		Type:  proto.TypeInput,
		Seq:   s.seq,
		DT:    dt,
		AX:    ax,
		AY:    ay,
		Speed: speed,
	}
}

// ApplySnapshot reconciles the session against an authoritative state
// broadcast. The local player snaps to the server position and replays every
// input the server had not yet processed; remote players only retarget their
// interpolation.
func (s *Session) ApplySnapshot(state proto.StateMessage) {
	seen := make(map[string]bool, len(state.Players))
	for _, p := range state.Players {
		seen[p.ID] = true
		if p.ID == s.PlayerID {
			s.reconcileLocal(p)
			continue
		}
		remote, ok := s.Remotes[p.ID]
		if !ok {
			s.addRemote(p)
			continue
		}
		remote.Snapshot = p
		remote.Target = sim.Vec2{X: p.X, Y: p.Y}
	}
	for id := range s.Remotes {
		if !seen[id] {
			delete(s.Remotes, id)
		}
	}

	s.Loots = make(map[string]proto.Loot, len(state.Loots))
	for _, l := range state.Loots {
		s.Loots[l.ID] = l
	}
}

func (s *Session) reconcileLocal(p proto.PlayerSnapshot) {
	s.Local = p
	s.Pos = sim.Vec2{X: p.X, Y: p.Y}

	keep := s.pending[:0]
	for _, in := range s.pending {
		if in.Seq <= p.LastProcessedInput {
			continue
		}
		keep = append(keep, in)
		s.Pos, _ = sim.Integrate(s.Pos, sim.Vec2{X: in.AX, Y: in.AY}, in.Speed, in.DT)
	}
	s.pending = keep
}

// RenderStep moves every remote player a fixed fraction of the remaining
// distance toward its authoritative target.
func (s *Session) RenderStep() {
	for _, remote := range s.Remotes {
		remote.Pos.X += (remote.Target.X - remote.Pos.X) * lerpFraction
		remote.Pos.Y += (remote.Target.Y - remote.Pos.Y) * lerpFraction
	}
}

// UseSkill gates a skill request on the locally-displayed energy, deducts the
// cost for display, and applies a predicted speed buff. It returns the
// message to transmit, or ok=false when the skill is unknown or energy is
// short; the next snapshot corrects any mispredicted display state.
func (s *Session) UseSkill(skill string) (proto.ClientMessage, bool) {
	cost, ok := skillCosts[skill]
	if !ok || s.Local.Energy < cost {
		return proto.ClientMessage{}, false
	}
	s.Local.Energy -= cost
	if skill == proto.SkillSpeed {
		s.speedUntil = s.now().Add(buffDuration)
	}
	return proto.ClientMessage{Type: proto.TypeUseSkill, Skill: skill}, true
}

// PickupCandidate returns the closest loot within pickup range of the local
// player, if any, along with the pickup request to transmit.
func (s *Session) PickupCandidate() (proto.ClientMessage, bool) {
	bestDist := pickupRadius
	var bestID string
	for id, l := range s.Loots {
		dx := l.X - s.Pos.X
		dy := l.Y - s.Pos.Y
		dist := math.Hypot(dx, dy)
		if dist < bestDist {
			bestDist = dist
			bestID = id
		}
	}
	if bestID == "" {
		return proto.ClientMessage{}, false
	}
	return proto.ClientMessage{Type: proto.TypePickupLoot, LootID: bestID}, true
}

// HandlePlayerJoined tracks a new remote player.
func (s *Session) HandlePlayerJoined(msg proto.PlayerJoinedMessage) {
	if msg.Player.ID == s.PlayerID {
		return
	}
	s.addRemote(msg.Player)
}

// HandlePlayerLeft drops a departed remote player.
func (s *Session) HandlePlayerLeft(msg proto.PlayerLeftMessage) {
	delete(s.Remotes, msg.ID)
}

// HandleLootSpawn tracks a freshly spawned loot.
func (s *Session) HandleLootSpawn(msg proto.LootSpawnMessage) {
	s.Loots[msg.Loot.ID] = msg.Loot
}

// HandleLootRemove drops a picked-up or expired loot.
func (s *Session) HandleLootRemove(msg proto.LootRemoveMessage) {
	delete(s.Loots, msg.ID)
}

// Pending exposes the unacknowledged input buffer, mainly for tests and
// diagnostics overlays.
func (s *Session) Pending() []PendingInput {
	return s.pending
}
