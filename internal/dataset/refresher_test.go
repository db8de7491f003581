package dataset

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"courtside/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	calls int
	games []model.Game
	err   error
	delay time.Duration
	gate  chan struct{}
}

func (s *fakeSource) Games(ctx context.Context, league, sortBy string) ([]model.Game, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.Game, len(s.games))
	copy(out, s.games)
	return out, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestRefreshConcurrentCallsMakeOneFetch(t *testing.T) {
	src := &fakeSource{
		games: []model.Game{{ID: "1"}},
		gate:  make(chan struct{}),
	}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	r.Refresh()
	r.Refresh() // no-op, first fetch still outstanding

	close(src.gate)
	waitFor(t, func() bool { return len(r.Games()) == 1 }, 2*time.Second, "refresh never completed")

	if got := src.callCount(); got != 1 {
		t.Errorf("got %d fetches, want 1", got)
	}
}

func TestRefreshFailureKeepsPreviousDataset(t *testing.T) {
	src := &fakeSource{games: []model.Game{{ID: "1"}, {ID: "2"}}}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	r.Refresh()
	waitFor(t, func() bool { return len(r.Games()) == 2 }, 2*time.Second, "initial refresh never completed")

	src.mu.Lock()
	src.err = errors.New("backend unreachable")
	src.mu.Unlock()

	r.Refresh()
	waitFor(t, func() bool { return r.LastError() != "" }, 2*time.Second, "failed refresh never surfaced an error")

	if got := len(r.Games()); got != 2 {
		t.Errorf("previous dataset should survive a failed refresh, got %d games", got)
	}
}

func TestScheduleRearmsFromCompletionTime(t *testing.T) {
	src := &fakeSource{delay: 100 * time.Millisecond}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	armed := time.Now()
	r.Schedule(300*time.Millisecond, true)
	originalFire := r.NextFireAt()
	if want := armed.Add(300 * time.Millisecond); originalFire.Before(want.Add(-50 * time.Millisecond)) {
		t.Fatalf("initial nextFireAt = %v, want about %v", originalFire, want)
	}

	// Manual refresh takes ~100ms; the schedule must restart from its
	// completion, pushing the next automatic fire past the original one.
	r.Refresh()
	waitFor(t, func() bool { return !r.LastUpdated().IsZero() }, 2*time.Second, "manual refresh never completed")
	completed := time.Now()

	next := r.NextFireAt()
	if !next.After(originalFire) {
		t.Errorf("next fire %v not pushed past original %v", next, originalFire)
	}
	if next.Before(completed.Add(200 * time.Millisecond)) {
		t.Errorf("next fire %v too close to completion %v, want completion+interval", next, completed)
	}
}

func TestScheduleDisableCancelsPendingFire(t *testing.T) {
	src := &fakeSource{}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	r.Schedule(30*time.Millisecond, true)
	r.Schedule(30*time.Millisecond, false)

	if !r.NextFireAt().IsZero() {
		t.Error("disabled schedule should clear nextFireAt")
	}
	time.Sleep(80 * time.Millisecond)
	if got := src.callCount(); got != 0 {
		t.Errorf("disabled schedule still fired %d times", got)
	}
}

func TestScheduledFiresUseCompletionSpacing(t *testing.T) {
	src := &fakeSource{games: []model.Game{{ID: "1"}}}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	r.Schedule(40*time.Millisecond, true)
	waitFor(t, func() bool { return src.callCount() >= 2 }, 2*time.Second, "poll loop never fired twice")
}

func TestCountdownDerivesFromNextFireAt(t *testing.T) {
	src := &fakeSource{}
	r := New(src, "nba", "time", nil, discardLogger())
	defer r.Close()

	if r.Countdown() != 0 {
		t.Error("countdown without a schedule should be zero")
	}

	r.Schedule(time.Minute, true)
	d := r.Countdown()
	if d <= 55*time.Second || d > time.Minute {
		t.Errorf("countdown = %v, want just under a minute", d)
	}
}
