package lifecycle

import (
	"context"

	"loot-brawl/server/logging"
)

const (
	// EventRoomCreated is emitted when a room is created on first join.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventRoomDestroyed is emitted when a room is torn down.
	EventRoomDestroyed logging.EventType = "lifecycle.room_destroyed"
	// EventPlayerJoined is emitted when a player enters a room.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a player disconnects or leaves.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventMatchStarted is emitted on the WAITING to ACTIVE transition.
	EventMatchStarted logging.EventType = "lifecycle.match_started"
	// EventMatchEnded is emitted exactly once per match conclusion.
	EventMatchEnded logging.EventType = "lifecycle.match_ended"
)

// RoomDestroyedPayload records why a room went away.
type RoomDestroyedPayload struct {
	Reason string `json:"reason"`
}

// PlayerJoinedPayload records the joining player's display name.
type PlayerJoinedPayload struct {
	Name string `json:"name"`
}

// MatchStartedPayload records the occupancy that triggered the match.
type MatchStartedPayload struct {
	Players int `json:"players"`
}

// MatchEndedPayload records the winner, if any.
type MatchEndedPayload struct {
	WinnerID string `json:"winnerId,omitempty"`
	Draw     bool   `json:"draw"`
}

// RoomCreated publishes a room creation event.
func RoomCreated(ctx context.Context, pub logging.Publisher, room string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomCreated,
		Room:     room,
		Actor:    logging.RoomRef(room),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

// RoomDestroyed publishes a room teardown event.
func RoomDestroyed(ctx context.Context, pub logging.Publisher, room, reason string) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRoomDestroyed,
		Room:     room,
		Actor:    logging.RoomRef(room),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  RoomDestroyedPayload{Reason: reason},
	})
}

// PlayerJoined publishes a join event.
func PlayerJoined(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef, payload PlayerJoinedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerJoined,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// PlayerLeft publishes a departure event.
func PlayerLeft(ctx context.Context, pub logging.Publisher, room string, actor logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPlayerLeft,
		Room:     room,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
	})
}

// MatchStarted publishes the WAITING to ACTIVE transition.
func MatchStarted(ctx context.Context, pub logging.Publisher, room string, payload MatchStartedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMatchStarted,
		Room:     room,
		Actor:    logging.RoomRef(room),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}

// MatchEnded publishes the match conclusion.
func MatchEnded(ctx context.Context, pub logging.Publisher, room string, payload MatchEndedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventMatchEnded,
		Room:     room,
		Actor:    logging.RoomRef(room),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	})
}
