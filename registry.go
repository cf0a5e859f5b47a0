package server

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/logging/lifecycle"
)

// Registry owns every live room, keyed by the caller-supplied room id. Rooms
// are created lazily on first join and destroyed when they empty or shortly
// after a match concludes. No ambient global state: handlers hold a Registry.
type Registry struct {
	cfg Config

	mu    sync.RWMutex
	rooms map[string]*Room

	nextPlayerID atomic.Uint64
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:   cfg.normalized(),
		rooms: make(map[string]*Room),
	}
}

// RoomInfo summarizes one room for diagnostics.
type RoomInfo struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// CreateOrJoin admits a connection to the named room, creating the room on
// first reference. An empty room id is rejected synchronously without
// touching any state. Returns the ack to send, plus the room and assigned
// player id when the join succeeded.
func (reg *Registry) CreateOrJoin(roomID, name string, conn Conn) (proto.JoinAck, *Room, string) {
	if roomID == "" {
		return proto.JoinAck{Type: proto.TypeJoinAck, OK: false, Error: "roomId empty"}, nil, ""
	}

	playerID := fmt.Sprintf("player-%d", reg.nextPlayerID.Add(1))

	for {
		room := reg.getOrCreate(roomID)
		ack, status := room.join(playerID, name, conn)
		switch status {
		case joinOK:
			return ack, room, playerID
		case joinEnded:
			return ack, nil, ""
		case joinClosed:
			// Lost a race with room destruction; the next lookup creates a
			// fresh room.
			continue
		}
	}
}

func (reg *Registry) getOrCreate(roomID string) *Room {
	reg.mu.RLock()
	room, ok := reg.rooms[roomID]
	reg.mu.RUnlock()
	if ok {
		return room
	}

	reg.mu.Lock()
	if room, ok = reg.rooms[roomID]; ok {
		reg.mu.Unlock()
		return room
	}
	room = newRoom(roomID, reg.cfg)
	room.destroy = func(reason string) { reg.destroyRoom(room, reason) }
	reg.rooms[roomID] = room
	reg.mu.Unlock()

	go room.runBroadcaster()
	lifecycle.RoomCreated(context.Background(), reg.cfg.Publisher, roomID)
	return room
}

// Room returns the live room for an id, if any.
func (reg *Registry) Room(roomID string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[roomID]
	return room, ok
}

// Rooms lists all live rooms for diagnostics.
func (reg *Registry) Rooms() []RoomInfo {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, RoomInfo{
			ID:      room.id,
			Players: room.playerCount(),
			Phase:   room.currentPhase().String(),
		})
	}
	return infos
}

// destroyRoom unlinks a room and shuts it down. Safe to call twice: the
// registry entry is identity-checked and shutdown is idempotent, so a grace
// timer firing after an empty-room teardown does nothing.
func (reg *Registry) destroyRoom(room *Room, reason string) {
	reg.mu.Lock()
	if current, ok := reg.rooms[room.id]; ok && current == room {
		delete(reg.rooms, room.id)
	}
	reg.mu.Unlock()

	room.shutdown(reason)
}

// Close tears down every room, for server shutdown.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.rooms = make(map[string]*Room)
	reg.mu.Unlock()

	for _, room := range rooms {
		room.shutdown("server shutdown")
	}
}
