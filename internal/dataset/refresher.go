// Package dataset owns the canonical game list and keeps it synchronized
// with the backend, periodically and on demand.
package dataset

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"courtside/internal/model"
	"courtside/internal/syncstatus"
)

// Source fetches the full game list.
type Source interface {
	Games(ctx context.Context, league, sortBy string) ([]model.Game, error)
}

// Refresher re-fetches the full game list and replaces it wholesale on
// success. A failed refresh keeps the previous dataset and surfaces an
// error string instead of clearing data.
type Refresher struct {
	source Source
	league string
	sortBy string
	status *syncstatus.Aggregator
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	games       []model.Game
	lastUpdated time.Time
	lastErr     string
	inflight    bool

	enabled    bool
	interval   time.Duration
	nextFireAt time.Time
	timer      *time.Timer
}

func New(source Source, league, sortBy string, status *syncstatus.Aggregator, logger *slog.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		source: source,
		league: league,
		sortBy: sortBy,
		status: status,
		logger: logger.With("component", "dataset"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Refresh triggers a fetch of the full list. If a refresh is already in
// flight the call is a no-op rather than queued.
func (r *Refresher) Refresh() {
	r.mu.Lock()
	if r.inflight {
		r.mu.Unlock()
		r.logger.Debug("refresh already in flight, skipping")
		return
	}
	r.inflight = true
	// A manual refresh supersedes the pending automatic fire; the schedule
	// is recomputed from this refresh's completion time.
	r.stopTimerLocked()
	r.mu.Unlock()

	r.status.Begin()
	go r.run()
}

func (r *Refresher) run() {
	games, err := r.source.Games(r.ctx, r.league, r.sortBy)

	errMsg := ""
	r.mu.Lock()
	r.inflight = false
	switch {
	case err == nil:
		r.games = games
		r.lastUpdated = time.Now()
		r.lastErr = ""
		r.logger.Info("dataset refreshed", "games", len(games))
	case errors.Is(err, context.Canceled):
		// Shutdown, not a failure.
	default:
		errMsg = err.Error()
		r.lastErr = errMsg
		r.logger.Error("refresh failed, keeping previous dataset", "error", err)
	}
	r.rearmLocked(time.Now())
	r.mu.Unlock()

	r.status.End(errMsg)
}

// Schedule arms the poll loop. The next fire is always computed from the
// completion of the previous trigger, never from the original arm time, so
// the interval cannot drift. Disabling cancels the pending timer.
func (r *Refresher) Schedule(interval time.Duration, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.interval = interval
	r.enabled = enabled && interval > 0
	r.stopTimerLocked()
	r.nextFireAt = time.Time{}
	if r.enabled {
		r.armLocked(time.Now())
	}
}

func (r *Refresher) armLocked(from time.Time) {
	r.nextFireAt = from.Add(r.interval)
	r.timer = time.AfterFunc(r.interval, r.Refresh)
}

func (r *Refresher) rearmLocked(completedAt time.Time) {
	if !r.enabled {
		return
	}
	r.stopTimerLocked()
	r.armLocked(completedAt)
}

func (r *Refresher) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// Close cancels any in-flight fetch and the pending timer.
func (r *Refresher) Close() {
	r.cancel()
	r.mu.Lock()
	r.stopTimerLocked()
	r.enabled = false
	r.nextFireAt = time.Time{}
	r.mu.Unlock()
}

// Games returns a copy of the current dataset.
func (r *Refresher) Games() []model.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Game, len(r.games))
	copy(out, r.games)
	return out
}

// Game looks up a single game by id, used as the optimistic seed for the
// detail view.
func (r *Refresher) Game(id string) (model.Game, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.games {
		if g.ID == id {
			return g, true
		}
	}
	return model.Game{}, false
}

func (r *Refresher) LastUpdated() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastUpdated
}

func (r *Refresher) LastError() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// NextFireAt reports when the next automatic refresh is due. The zero time
// means the schedule is disabled.
func (r *Refresher) NextFireAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextFireAt
}

// Countdown derives the remaining time until the next automatic refresh
// purely from the schedule. Callers re-read it once per second; it is not
// an independent timer source.
func (r *Refresher) Countdown() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nextFireAt.IsZero() {
		return 0
	}
	d := time.Until(r.nextFireAt)
	if d < 0 {
		return 0
	}
	return d
}
