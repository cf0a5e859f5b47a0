package logging

import (
	"context"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *captureSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]Event, len(s.events))
	copy(copied, s.events)
	return copied
}

func waitForEvents(t *testing.T, sink *captureSink, want int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		events := sink.snapshot()
		if len(events) >= want {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d events, got %d", want, len(events))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRouterForwardsEventsToSinks(t *testing.T) {
	sink := &captureSink{}
	router := NewRouter(SystemClock{}, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})
	defer router.Close(context.Background())

	router.Publish(context.Background(), Event{
		Type:     EventType("player-joined"),
		Room:     "arena",
		Severity: SeverityInfo,
		Category: CategoryLifecycle,
		Actor:    PlayerRef("player-1"),
	})

	events := waitForEvents(t, sink, 1)
	if events[0].Room != "arena" || events[0].Actor.ID != "player-1" {
		t.Fatalf("unexpected forwarded event %+v", events[0])
	}
	if events[0].Time.IsZero() {
		t.Fatalf("expected the router to stamp a time")
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityWarn
	router := NewRouter(SystemClock{}, cfg, []NamedSink{{Name: "capture", Sink: sink}})
	defer router.Close(context.Background())

	router.Publish(context.Background(), Event{Type: EventType("debug-event"), Severity: SeverityInfo})
	router.Publish(context.Background(), Event{Type: EventType("warn-event"), Severity: SeverityWarn})

	events := waitForEvents(t, sink, 1)
	if len(events) != 1 || events[0].Type != EventType("warn-event") {
		t.Fatalf("expected only the warn event, got %+v", events)
	}

	if got := router.Stats().EventsTotal; got != 1 {
		t.Fatalf("expected 1 forwarded event in stats, got %d", got)
	}
}

func TestRouterAttachesConfiguredFields(t *testing.T) {
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.Fields = map[string]any{"service": "loot-brawl"}
	router := NewRouter(SystemClock{}, cfg, []NamedSink{{Name: "capture", Sink: sink}})
	defer router.Close(context.Background())

	router.Publish(context.Background(), Event{Type: EventType("with-fields"), Severity: SeverityInfo})

	events := waitForEvents(t, sink, 1)
	if events[0].Extra["service"] != "loot-brawl" {
		t.Fatalf("expected the configured field attached, got %+v", events[0].Extra)
	}
}

func TestRouterIgnoresUntypedEvents(t *testing.T) {
	sink := &captureSink{}
	router := NewRouter(SystemClock{}, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})

	router.Publish(context.Background(), Event{Severity: SeverityInfo})
	router.Publish(context.Background(), Event{Type: EventType("real"), Severity: SeverityInfo})

	waitForEvents(t, sink, 1)
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := sink.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected the untyped event dropped, got %d events", len(events))
	}
}

func TestRouterCloseDrainsAndClosesSinks(t *testing.T) {
	sink := &captureSink{}
	router := NewRouter(SystemClock{}, DefaultConfig(), []NamedSink{{Name: "capture", Sink: sink}})

	for i := 0; i < 10; i++ {
		router.Publish(context.Background(), Event{Type: EventType("burst"), Severity: SeverityInfo})
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if got := len(sink.snapshot()); got != 10 {
		t.Fatalf("expected all 10 events delivered before close, got %d", got)
	}
	sink.mu.Lock()
	closed := sink.closed
	sink.mu.Unlock()
	if !closed {
		t.Fatalf("expected the sink closed")
	}

	// Publishing after close is a no-op.
	router.Publish(context.Background(), Event{Type: EventType("late"), Severity: SeverityInfo})
	if got := len(sink.snapshot()); got != 10 {
		t.Fatalf("expected late publish dropped, got %d events", got)
	}
}

func TestWithFieldsDoesNotOverwriteEventFields(t *testing.T) {
	var captured Event
	base := PublisherFunc(func(_ context.Context, event Event) { captured = event })

	pub := WithFields(base, map[string]any{"service": "loot-brawl", "shard": "a"})
	pub.Publish(context.Background(), Event{
		Type:  EventType("tagged"),
		Extra: map[string]any{"shard": "b"},
	})

	if captured.Extra["service"] != "loot-brawl" {
		t.Fatalf("expected the service field attached, got %+v", captured.Extra)
	}
	if captured.Extra["shard"] != "b" {
		t.Fatalf("expected the event's own field preserved, got %+v", captured.Extra)
	}
}
