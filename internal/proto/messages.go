// Package proto defines the JSON wire protocol between the game server and
// its clients. Every socket message carries a `type` field; the remaining
// fields depend on the type.
package proto

// Message types sent by clients.
const (
	TypeCreateOrJoin = "create_or_join"
	TypeInput        = "input"
	TypeUseSkill     = "use_skill"
	TypePickupLoot   = "pickup_loot"
)

// Message types sent by the server.
const (
	TypeJoinAck      = "join_ack"
	TypeState        = "state"
	TypePlayerJoined = "player_joined"
	TypePlayerLeft   = "player_left"
	TypeLootSpawn    = "loot_spawn"
	TypeLootRemove   = "loot_remove"
	TypeTimer        = "timer"
	TypeGameOver     = "game_over"
	TypePlayerDead   = "player_dead"
)

// Skill names accepted by use_skill.
const (
	SkillDamage = "damage"
	SkillSpeed  = "speed"
	SkillDefend = "defend"
)

// Loot types.
const (
	LootHealth = "health"
	LootEnergy = "energy"
)

// ClientMessage is the union of every client-to-server message. Only the
// fields relevant to Type are populated.
type ClientMessage struct {
	Type   string  `json:"type"`
	RoomID string  `json:"roomId,omitempty"`
	Name   string  `json:"name,omitempty"`
	Seq    uint64  `json:"seq,omitempty"`
	DT     float64 `json:"dt,omitempty"`
	AX     float64 `json:"ax,omitempty"`
	AY     float64 `json:"ay,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
	Skill  string  `json:"skill,omitempty"`
	LootID string  `json:"lootId,omitempty"`
}

// PlayerSnapshot is the authoritative view of one player, shipped in full on
// every state broadcast.
type PlayerSnapshot struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	X                  float64 `json:"x"`
	Y                  float64 `json:"y"`
	Color              string  `json:"color"`
	Health             int     `json:"hp"`
	Energy             int     `json:"energy"`
	Alive              bool    `json:"alive"`
	SpeedUntil         int64   `json:"speedUntil"`
	DefendUntil        int64   `json:"defendUntil"`
	LastProcessedInput uint64  `json:"lastProcessedInput"`
}

// Loot is a pickup-able world object.
type Loot struct {
	ID   string  `json:"id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`
}

// JoinAck answers a create_or_join request on the same socket.
type JoinAck struct {
	Type    string           `json:"type"`
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Me      *PlayerSnapshot  `json:"me,omitempty"`
	Players []PlayerSnapshot `json:"players,omitempty"`
}

// StateMessage is the 20 Hz full-room snapshot, the sole channel of
// authoritative truth.
type StateMessage struct {
	Type    string           `json:"type"`
	Players []PlayerSnapshot `json:"players"`
	Loots   []Loot           `json:"loots"`
	TS      int64            `json:"ts"`
}

// PlayerJoinedMessage announces a new room occupant to everyone else.
type PlayerJoinedMessage struct {
	Type   string         `json:"type"`
	Player PlayerSnapshot `json:"player"`
}

// PlayerLeftMessage announces a departure.
type PlayerLeftMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// LootSpawnMessage announces a freshly spawned loot.
type LootSpawnMessage struct {
	Type string `json:"type"`
	Loot Loot   `json:"loot"`
}

// LootRemoveMessage announces that a loot was picked up or expired.
type LootRemoveMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// TimerMessage carries the remaining match time in milliseconds, once per
// second while a match is running.
type TimerMessage struct {
	Type      string `json:"type"`
	Remaining int64  `json:"remaining"`
}

// WinnerRef identifies the surviving player in a game_over message.
type WinnerRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GameOverMessage ends a match. Winner is nil on a draw.
type GameOverMessage struct {
	Type   string     `json:"type"`
	Winner *WinnerRef `json:"winner"`
}

// PlayerDeadMessage announces an elimination.
type PlayerDeadMessage struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}
