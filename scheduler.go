package server

import (
	"sync"
	"time"
)

// scheduler owns every timer a room arms: the match clock, the loot spawner,
// and per-loot expiries. Stop cancels them all at once so no callback can fire
// into a room that is being torn down.
type scheduler struct {
	mu      sync.Mutex
	stopped bool
	tickers []*time.Ticker
	timers  []*time.Timer
	done    chan struct{}
}

func newScheduler() *scheduler {
	return &scheduler{done: make(chan struct{})}
}

// every invokes fn on a fixed interval until the scheduler stops.
func (s *scheduler) every(d time.Duration, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	ticker := time.NewTicker(d)
	s.tickers = append(s.tickers, ticker)
	s.mu.Unlock()

	go func() {
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// after invokes fn once after d, unless the scheduler stops first.
func (s *scheduler) after(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.timers = append(s.timers, time.AfterFunc(d, fn))
}

// Stop cancels all armed timers. Idempotent.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	for _, ticker := range s.tickers {
		ticker.Stop()
	}
	for _, timer := range s.timers {
		timer.Stop()
	}
	s.tickers = nil
	s.timers = nil
}
