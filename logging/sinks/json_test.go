package sinks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"loot-brawl/server/logging"
)

func readEventLines(t *testing.T, path string) []logging.Event {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sink file: %v", err)
	}
	var events []logging.Event
	for _, line := range splitLines(data) {
		var event logging.Event
		if err := json.Unmarshal(line, &event); err != nil {
			t.Fatalf("malformed sink line %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func TestJSONSinkFlushesEveryWriteWithoutInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := NewJSONSink(logging.JSONConfig{FilePath: path})
	if err != nil {
		t.Fatalf("failed to open sink: %v", err)
	}
	defer sink.Close(context.Background())

	err = sink.Write(logging.Event{Type: logging.EventType("flushed"), Room: "arena"})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	events := readEventLines(t, path)
	if len(events) != 1 || events[0].Room != "arena" {
		t.Fatalf("expected the event on disk immediately, got %+v", events)
	}
}

func TestJSONSinkPeriodicFlushReachesDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := NewJSONSink(logging.JSONConfig{FilePath: path, FlushInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("failed to open sink: %v", err)
	}
	defer sink.Close(context.Background())

	err = sink.Write(logging.Event{Type: logging.EventType("buffered"), Room: "arena"})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if events := readEventLines(t, path); len(events) == 1 {
			if events[0].Type != logging.EventType("buffered") {
				t.Fatalf("unexpected event on disk %+v", events[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("buffered event never flushed to disk")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestJSONSinkCloseFlushesRemainder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	sink, err := NewJSONSink(logging.JSONConfig{FilePath: path, FlushInterval: time.Hour})
	if err != nil {
		t.Fatalf("failed to open sink: %v", err)
	}

	if err := sink.Write(logging.Event{Type: logging.EventType("pending")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := sink.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if events := readEventLines(t, path); len(events) != 1 {
		t.Fatalf("expected the pending event flushed on close, got %d", len(events))
	}

	if err := sink.Write(logging.Event{Type: logging.EventType("late")}); err == nil {
		t.Fatalf("expected writes rejected after close")
	}
}
