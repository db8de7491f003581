// Package archive periodically persists the latest stream snapshot.
package archive

import (
	"context"
	"log/slog"
	"time"

	"courtside/internal/model"
	"courtside/internal/store"
)

// Snapshots exposes the live market list.
type Snapshots interface {
	Markets() []model.MarketSnapshot
}

// Writer captures the stream's market list on an interval and writes it to
// the database.
type Writer struct {
	snapshots Snapshots
	store     *store.Store
	interval  time.Duration
	logger    *slog.Logger
}

func New(snapshots Snapshots, s *store.Store, interval time.Duration, logger *slog.Logger) *Writer {
	return &Writer{
		snapshots: snapshots,
		store:     s,
		interval:  interval,
		logger:    logger.With("component", "archive"),
	}
}

// Start runs the writer until the context is cancelled.
func (w *Writer) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("started snapshot archive", "interval", w.interval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("snapshot archive stopped", "reason", ctx.Err())
			return
		case <-ticker.C:
			w.write(ctx)
		}
	}
}

func (w *Writer) write(ctx context.Context) {
	markets := w.snapshots.Markets()
	if len(markets) == 0 {
		return
	}

	count, err := w.store.InsertSnapshotBatch(ctx, time.Now(), markets)
	if err != nil {
		w.logger.Error("failed to archive snapshots", "error", err)
		return
	}
	w.logger.Debug("archived snapshots", "rows", count)
}
