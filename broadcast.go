package server

import (
	"time"

	"loot-brawl/server/internal/proto"
)

// runBroadcaster publishes the authoritative snapshot at a fixed rate until
// the room shuts down. Started once per room by the registry.
func (r *Room) runBroadcaster() {
	ticker := time.NewTicker(r.cfg.BroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopBcast:
			return
		case <-ticker.C:
			r.broadcastState()
		}
	}
}

// broadcastState ships the full room state to every subscriber: all players,
// all loot, and a server timestamp. No deltas; every tick carries everything.
func (r *Room) broadcastState() {
	r.mu.Lock()
	if r.closed || len(r.players) == 0 {
		r.mu.Unlock()
		return
	}
	event := r.messageLocked(proto.StateMessage{
		Type:    proto.TypeState,
		Players: r.playerSnapshotsLocked(),
		Loots:   r.lootSnapshotsLocked(),
		TS:      time.Now().UnixMilli(),
	}, "")
	r.mu.Unlock()

	r.deliver([]outbound{event})
}
