package combat

import (
	"context"

	"loot-brawl/server/logging"
)

const (
	// EventSkillUsed is emitted whenever a skill's cost is paid.
	EventSkillUsed logging.EventType = "combat.skill_used"
	// EventSkillHit is emitted when a damage skill connects with a target.
	EventSkillHit logging.EventType = "combat.skill_hit"
	// EventPlayerDied is emitted when a player's health reaches zero.
	EventPlayerDied logging.EventType = "combat.player_died"
)

// SkillUsedPayload describes the skill and its energy cost.
type SkillUsedPayload struct {
	Skill string `json:"skill"`
	Cost  int    `json:"cost"`
}

// SkillHitPayload describes a connected damage skill.
type SkillHitPayload struct {
	Damage   int     `json:"damage"`
	Defended bool    `json:"defended"`
	Distance float64 `json:"distance"`
}

// SkillUsed publishes a paid skill activation.
func SkillUsed(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef, payload SkillUsedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSkillUsed,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// SkillHit publishes a connected hit.
func SkillHit(ctx context.Context, pub logging.Publisher, room string, actor, target logging.EntityRef, payload SkillHitPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSkillHit,
		Room:     room,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
	})
}

// PlayerDied publishes an elimination.
func PlayerDied(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerDied,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
	})
}
