package server

import (
	"context"
	"fmt"
	"time"

	"loot-brawl/server/internal/proto"
	"loot-brawl/server/logging"
	lootlog "loot-brawl/server/logging/loot"
)

type lootState struct {
	proto.Loot
	spawnedAt time.Time
}

// spawnLoot places one loot at a random position while the match is running.
// Each loot schedules its own expiry; a pickup beforehand makes the expiry a
// harmless no-op.
func (r *Room) spawnLoot() {
	r.mu.Lock()
	if r.closed || r.phase != phaseActive {
		r.mu.Unlock()
		return
	}

	kind := proto.LootHealth
	if r.rng.Float64() < 0.5 {
		kind = proto.LootEnergy
	}
	loot := &lootState{
		Loot: proto.Loot{
			ID:   fmt.Sprintf("loot-%d", r.lootSeq.Add(1)),
			X:    spawnInset + r.rng.Float64()*lootSpawnRangeX,
			Y:    spawnInset + r.rng.Float64()*lootSpawnRangeY,
			Type: kind,
		},
		spawnedAt: time.Now(),
	}
	r.loots = append(r.loots, loot)

	events := []outbound{r.messageLocked(proto.LootSpawnMessage{
		Type: proto.TypeLootSpawn,
		Loot: loot.Loot,
	}, "")}

	id := loot.ID
	r.sched.after(r.cfg.LootLifetime, func() { r.expireLoot(id) })
	r.mu.Unlock()

	r.deliver(events)
	lootlog.Spawned(context.Background(), r.cfg.Publisher, r.id, logging.LootRef(loot.ID),
		lootlog.SpawnedPayload{Kind: kind, X: loot.X, Y: loot.Y})
}

// expireLoot removes a loot that reached its lifetime unclaimed. Idempotent:
// a loot already picked up is simply gone.
func (r *Room) expireLoot(lootID string) {
	r.mu.Lock()
	if r.closed || !r.removeLootLocked(lootID) {
		r.mu.Unlock()
		return
	}
	events := []outbound{r.messageLocked(proto.LootRemoveMessage{
		Type: proto.TypeLootRemove,
		ID:   lootID,
	}, "")}
	r.mu.Unlock()

	r.deliver(events)
	lootlog.Expired(context.Background(), r.cfg.Publisher, r.id, logging.LootRef(lootID))
}

// PickupLoot applies a client-reported pickup. The client detects proximity;
// the server only validates that the match is running, the player is alive,
// and the loot still exists. Stale ids are silently ignored.
func (r *Room) PickupLoot(playerID, lootID string) {
	r.mu.Lock()
	if r.closed || r.phase != phaseActive {
		r.mu.Unlock()
		return
	}
	player, ok := r.players[playerID]
	if !ok || !player.alive {
		r.mu.Unlock()
		return
	}
	loot := r.findLootLocked(lootID)
	if loot == nil {
		r.mu.Unlock()
		return
	}

	switch loot.Type {
	case proto.LootHealth:
		player.health = min(maxHealth, player.health+lootRestore)
	case proto.LootEnergy:
		player.energy = min(maxEnergy, player.energy+lootRestore)
	}
	r.removeLootLocked(lootID)

	events := []outbound{r.messageLocked(proto.LootRemoveMessage{
		Type: proto.TypeLootRemove,
		ID:   lootID,
	}, "")}
	kind := loot.Type
	r.mu.Unlock()

	r.deliver(events)
	lootlog.PickedUp(context.Background(), r.cfg.Publisher, r.id,
		logging.PlayerRef(playerID), logging.LootRef(lootID),
		lootlog.PickedUpPayload{Kind: kind, Restore: lootRestore})
}

func (r *Room) findLootLocked(lootID string) *lootState {
	for _, l := range r.loots {
		if l.ID == lootID {
			return l
		}
	}
	return nil
}

// removeLootLocked deletes a loot by id, preserving spawn order, and reports
// whether it was present.
func (r *Room) removeLootLocked(lootID string) bool {
	for i, l := range r.loots {
		if l.ID == lootID {
			r.loots = append(r.loots[:i], r.loots[i+1:]...)
			return true
		}
	}
	return false
}
