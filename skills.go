package server

import (
	"context"
	"math"
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/logging"
	"loot-brawl/server/logging/combat"
)

// UseSkill resolves a fire-and-forget skill activation. Unknown skills, dead
// casters, and insufficient energy are all silent no-ops: nothing is deducted
// and no effect is applied. There is no server-side cooldown; the client
// self-polices cooldowns for display only.
func (r *Room) UseSkill(playerID, skill string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	caster, ok := r.players[playerID]
	if !ok || !caster.alive {
		r.mu.Unlock()
		return
	}

	cost, known := skillCost(skill)
	if !known || caster.energy < cost {
		r.mu.Unlock()
		return
	}
	caster.energy -= cost

	now := time.Now()
	var events []outbound
	var hit *combat.SkillHitPayload
	var victimID string
	var died bool

	switch skill {
	case proto.SkillDamage:
		target, dist := r.nearestTargetLocked(caster)
		if target != nil {
			damage := skillBaseDamage
			defending, _ := target.buffs(now)
			if defending {
				damage /= 2
			}
			target.health -= damage
			if target.health <= 0 {
				target.health = 0
				target.alive = false
				died = true
				events = append(events, r.messageLocked(proto.PlayerDeadMessage{
					Type: proto.TypePlayerDead,
					ID:   target.id,
				}, ""))
				if survivor, count := r.soleSurvivorLocked(); count <= 1 {
					events = append(events, r.endMatchLocked(survivor)...)
				}
			}
			victimID = target.id
			hit = &combat.SkillHitPayload{Damage: damage, Defended: defending, Distance: dist}
		}
	case proto.SkillSpeed:
		caster.speedUntil = now.Add(buffDuration)
	case proto.SkillDefend:
		caster.defendUntil = now.Add(buffDuration)
	}
	r.mu.Unlock()

	r.deliver(events)

	ctx := context.Background()
	combat.SkillUsed(ctx, r.cfg.Publisher, r.id, logging.PlayerRef(playerID), combat.SkillUsedPayload{Skill: skill, Cost: cost})
	if hit != nil {
		combat.SkillHit(ctx, r.cfg.Publisher, r.id, logging.PlayerRef(playerID), logging.PlayerRef(victimID), *hit)
	}
	if died {
		combat.PlayerDied(ctx, r.cfg.Publisher, r.id, logging.PlayerRef(victimID))
	}
}

func skillCost(skill string) (int, bool) {
	switch skill {
	case proto.SkillDamage:
		return skillDamageCost, true
	case proto.SkillSpeed:
		return skillSpeedCost, true
	case proto.SkillDefend:
		return skillDefendCost, true
	default:
		return 0, false
	}
}

// nearestTargetLocked finds the alive player closest to the caster within the
// damage skill's range. An exact distance tie goes to whichever target map
// iteration reaches first.
func (r *Room) nearestTargetLocked(caster *playerState) (*playerState, float64) {
	var nearest *playerState
	best := math.Inf(1)
	for id, candidate := range r.players {
		if id == caster.id || !candidate.alive {
			continue
		}
		dist := math.Hypot(candidate.pos.X-caster.pos.X, candidate.pos.Y-caster.pos.Y)
		if dist < best && dist < skillRange {
			best = dist
			nearest = candidate
		}
	}
	if nearest == nil {
		return nil, 0
	}
	return nearest, best
}
