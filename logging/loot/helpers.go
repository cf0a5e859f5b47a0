package loot

import (
	"context"

	"loot-brawl/server/logging"
)

const (
	// EventLootSpawned is emitted when the spawner places a loot in a room.
	EventLootSpawned logging.EventType = "loot.spawned"
	// EventLootExpired is emitted when a loot reaches its lifetime unclaimed.
	EventLootExpired logging.EventType = "loot.expired"
	// EventLootPickedUp is emitted when a player collects a loot.
	EventLootPickedUp logging.EventType = "loot.picked_up"
)

// SpawnedPayload describes a placed loot.
type SpawnedPayload struct {
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// PickedUpPayload describes the restorative effect applied to the collector.
type PickedUpPayload struct {
	Kind    string `json:"kind"`
	Restore int    `json:"restore"`
}

// Spawned publishes a loot spawn.
func Spawned(ctx context.Context, pub logging.Publisher, room string, loot logging.EntityRef, payload SpawnedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLootSpawned,
		Room:     room,
		Actor:    loot,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLoot,
		Payload:  payload,
	})
}

// Expired publishes an unclaimed loot removal.
func Expired(ctx context.Context, pub logging.Publisher, room string, loot logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLootExpired,
		Room:     room,
		Actor:    loot,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLoot,
	})
}

// PickedUp publishes a successful pickup.
func PickedUp(ctx context.Context, pub logging.Publisher, room string, actor, loot logging.EntityRef, payload PickedUpPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventLootPickedUp,
		Room:     room,
		Actor:    actor,
		Targets:  []logging.EntityRef{loot},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLoot,
		Payload:  payload,
	})
}
