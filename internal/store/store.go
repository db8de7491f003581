// Package store archives market snapshots to Postgres for later analysis.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"courtside/internal/model"
)

// Store wraps the connection pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const insertSnapshotSQL = `
INSERT INTO market_snapshots (time, ticker, title, yes_price, no_price, last_price, volume)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// InsertSnapshotBatch writes one row per market in a single batch. Returns
// the number of rows written.
func (s *Store) InsertSnapshotBatch(ctx context.Context, at time.Time, markets []model.MarketSnapshot) (int64, error) {
	if len(markets) == 0 {
		return 0, nil
	}

	ts := pgtype.Timestamptz{Time: at, Valid: true}
	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(insertSnapshotSQL,
			ts, m.Ticker, m.Title,
			int64(m.YesPrice), int64(m.NoPrice), int64(m.LastPrice),
			m.Volume,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	var count int64
	for range markets {
		tag, err := results.Exec()
		if err != nil {
			return count, fmt.Errorf("insert snapshot: %w", err)
		}
		count += tag.RowsAffected()
	}
	return count, nil
}

// SnapshotRow is one archived market observation.
type SnapshotRow struct {
	Time      time.Time
	Ticker    string
	YesPrice  int64
	NoPrice   int64
	LastPrice int64
	Volume    int64
}

const recentSnapshotsSQL = `
SELECT time, ticker, yes_price, no_price, last_price, volume
FROM market_snapshots
WHERE ticker = $1
ORDER BY time DESC
LIMIT $2
`

// RecentSnapshots returns the newest archived rows for a ticker.
func (s *Store) RecentSnapshots(ctx context.Context, ticker string, limit int) ([]SnapshotRow, error) {
	rows, err := s.pool.Query(ctx, recentSnapshotsSQL, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var ts pgtype.Timestamptz
		if err := rows.Scan(&ts, &r.Ticker, &r.YesPrice, &r.NoPrice, &r.LastPrice, &r.Volume); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.Time = ts.Time
		out = append(out, r)
	}
	return out, rows.Err()
}
