package server

import (
	"time"

	"loot-brawl/server/logging"
)

// Config carries the per-room timing knobs and the event publisher. Gameplay
// constants (world size, speeds, costs) are fixed; only durations vary so
// tests can run matches in milliseconds.
type Config struct {
	MatchDuration     time.Duration
	TimerInterval     time.Duration
	LootInterval      time.Duration
	LootLifetime      time.Duration
	CloseGrace        time.Duration
	BroadcastInterval time.Duration
	Publisher         logging.Publisher
}

func DefaultConfig() Config {
	return Config{
		MatchDuration:     60 * time.Second,
		TimerInterval:     time.Second,
		LootInterval:      5 * time.Second,
		LootLifetime:      8 * time.Second,
		CloseGrace:        time.Second,
		BroadcastInterval: 50 * time.Millisecond,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MatchDuration <= 0 {
		c.MatchDuration = def.MatchDuration
	}
	if c.TimerInterval <= 0 {
		c.TimerInterval = def.TimerInterval
	}
	if c.LootInterval <= 0 {
		c.LootInterval = def.LootInterval
	}
	if c.LootLifetime <= 0 {
		c.LootLifetime = def.LootLifetime
	}
	if c.CloseGrace <= 0 {
		c.CloseGrace = def.CloseGrace
	}
	if c.BroadcastInterval <= 0 {
		c.BroadcastInterval = def.BroadcastInterval
	}
	if c.Publisher == nil {
		c.Publisher = logging.NopPublisher()
	}
	return c
}
