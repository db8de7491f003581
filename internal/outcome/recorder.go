// Package outcome posts the result of concluded games to the accuracy
// tracker, exactly once per game.
package outcome

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"courtside/internal/model"
	"courtside/internal/prefs"
	"courtside/pkg/hashset"
)

const DefaultScanInterval = 5 * time.Minute

// Sink receives concluded game outcomes.
type Sink interface {
	RecordOutcome(ctx context.Context, outcome model.Outcome) error
}

// Dataset exposes the current game list.
type Dataset interface {
	Games() []model.Game
}

// Recorder scans the dataset for games that reached a final status and
// records each one's outcome once. The already-recorded id set is persisted
// so restarts do not re-post.
type Recorder struct {
	sink     Sink
	dataset  Dataset
	store    *prefs.Store
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	recorded hashset.Set[string]
}

func New(sink Sink, dataset Dataset, store *prefs.Store, interval time.Duration, logger *slog.Logger) (*Recorder, error) {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	ids, err := store.RecordedGames()
	if err != nil {
		return nil, err
	}
	return &Recorder{
		sink:     sink,
		dataset:  dataset,
		store:    store,
		interval: interval,
		logger:   logger.With("component", "outcome"),
		recorded: hashset.SetFromSlice(ids),
	}, nil
}

// Start runs the scan loop until ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Scan(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outcome recorder stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			r.Scan(ctx)
		}
	}
}

// Scan records every concluded, not-yet-recorded game in the dataset.
func (r *Recorder) Scan(ctx context.Context) {
	for _, g := range r.dataset.Games() {
		if !isFinal(g.Status) {
			continue
		}
		if r.alreadyRecorded(g.ID) {
			continue
		}

		out := model.Outcome{
			GameID:    g.ID,
			League:    g.League,
			HomeScore: g.HomeScore,
			AwayScore: g.AwayScore,
			HomeWon:   g.HomeScore > g.AwayScore,
		}
		if err := r.sink.RecordOutcome(ctx, out); err != nil {
			// Left unrecorded; the next scan retries.
			r.logger.Error("couldn't record outcome", "game_id", g.ID, "error", err)
			continue
		}
		r.markRecorded(g.ID)
		r.logger.Info("recorded outcome", "game_id", g.ID, "home_won", out.HomeWon)
	}
}

func isFinal(status string) bool {
	s := strings.ToLower(status)
	return s == "final" || s == "status_final"
}

func (r *Recorder) alreadyRecorded(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded.Has(id)
}

func (r *Recorder) markRecorded(id string) {
	r.mu.Lock()
	r.recorded.Set(id)
	ids := r.recorded.AsSlice()
	r.mu.Unlock()

	if err := r.store.SaveRecordedGames(ids); err != nil {
		r.logger.Error("couldn't persist recorded game ids", "error", err)
	}
}
