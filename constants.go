package server

import "time"

const (
	writeWait = 10 * time.Second

	// baseMoveSpeed is the unbuffed movement speed in world units per second.
	baseMoveSpeed = 150.0

	// Spawn positions keep a safe inset from the world edge. Players spawn in
	// a tighter box than loot.
	spawnInset        = 50.0
	playerSpawnRangeX = 600.0
	playerSpawnRangeY = 400.0
	lootSpawnRangeX   = 700.0
	lootSpawnRangeY   = 500.0

	maxHealth = 100
	maxEnergy = 100

	skillDamageCost = 20
	skillSpeedCost  = 15
	skillDefendCost = 10

	// skillRange is the maximum distance at which the damage skill connects.
	skillRange      = 100.0
	skillBaseDamage = 20

	buffDuration = 3 * time.Second

	lootRestore = 20
)

// playerColors is the palette assigned round-robin by join order.
var playerColors = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6"}
