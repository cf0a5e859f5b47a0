package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"loot-brawl/server/internal/proto"
)

// Generates a machine-readable JSON Schema for the socket protocol, for
// client codegen and message validation tooling.
func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	messages := []struct {
		name  string
		value any
		desc  string
	}{
		{"client", new(proto.ClientMessage), "Any client-to-server message; fields depend on type"},
		{"join_ack", new(proto.JoinAck), "Answer to create_or_join on the same socket"},
		{"state", new(proto.StateMessage), "Full-room authoritative snapshot, 20 Hz"},
		{"player_joined", new(proto.PlayerJoinedMessage), "A new player entered the room"},
		{"player_left", new(proto.PlayerLeftMessage), "A player left the room"},
		{"loot_spawn", new(proto.LootSpawnMessage), "A loot appeared in the world"},
		{"loot_remove", new(proto.LootRemoveMessage), "A loot was picked up or expired"},
		{"timer", new(proto.TimerMessage), "Remaining match time in milliseconds"},
		{"game_over", new(proto.GameOverMessage), "Match ended; winner is null on a draw"},
		{"player_dead", new(proto.PlayerDeadMessage), "A player was eliminated"},
	}

	variants := make([]*jsonschema.Schema, 0, len(messages))
	for _, msg := range messages {
		s := reflector.Reflect(msg.value)
		s.Version = ""
		s.Title = msg.name
		s.Description = msg.desc
		variants = append(variants, s)
	}

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Loot Brawl Socket Protocol",
		Description: "Every JSON message exchanged over the /ws endpoint.",
		OneOf:       variants,
	}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
