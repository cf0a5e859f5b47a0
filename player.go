package server

import (
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/internal/sim"
)

type playerState struct {
	id    string
	name  string
	color string
	pos   sim.Vec2
	vel   sim.Vec2

	health int
	energy int
	alive  bool

	lastProcessedInput uint64

	speedUntil  time.Time
	defendUntil time.Time
}

// buffs derives the transient buff flags from the expiry timestamps. Input
// processing and the skill resolver both go through here so the derivation
// cannot drift between them.
func (p *playerState) buffs(now time.Time) (defending bool, speedMult float64) {
	defending = now.Before(p.defendUntil)
	speedMult = 1
	if now.Before(p.speedUntil) {
		speedMult = 2
	}
	return defending, speedMult
}

func (p *playerState) snapshot() proto.PlayerSnapshot {
	return proto.PlayerSnapshot{
		ID:                 p.id,
		Name:               p.name,
		X:                  p.pos.X,
		Y:                  p.pos.Y,
		Color:              p.color,
		Health:             p.health,
		Energy:             p.energy,
		Alive:              p.alive,
		SpeedUntil:         unixMillis(p.speedUntil),
		DefendUntil:        unixMillis(p.defendUntil),
		LastProcessedInput: p.lastProcessedInput,
	}
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
