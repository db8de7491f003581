// Package insights caches auxiliary per-game context data (weather,
// injuries, news) fetched from a slow collaborator endpoint.
package insights

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"courtside/internal/syncstatus"
)

const DefaultTimeout = 30 * time.Second

// Entry is one cached record. There is no wall-clock expiry; entries live
// until Invalidate removes them.
type Entry[T any] struct {
	Key       string
	Data      T
	FetchedAt time.Time
}

// Cache is a key-addressed, single-flight cache. Concurrent callers for the
// same key join the in-flight load and share its result.
type Cache[T any] struct {
	timeout time.Duration
	status  *syncstatus.Aggregator
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]Entry[T]
	group   singleflight.Group
}

func New[T any](timeout time.Duration, status *syncstatus.Aggregator, logger *slog.Logger) *Cache[T] {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Cache[T]{
		timeout: timeout,
		status:  status,
		logger:  logger.With("component", "insights"),
		entries: make(map[string]Entry[T]),
	}
}

// Get returns the cached entry for key, if present.
func (c *Cache[T]) Get(key string) (Entry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

// FetchOrJoin returns the cached entry when present; otherwise it runs
// loader under the cache's timeout, storing the result on success. A loader
// runs at most once per key at a time: callers arriving while a load is in
// flight wait for it and receive the same result.
func (c *Cache[T]) FetchOrJoin(ctx context.Context, key string, loader func(ctx context.Context) (T, error)) (Entry[T], error) {
	if e, ok := c.Get(key); ok {
		return e, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		c.status.Begin()

		loadCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		data, err := loader(loadCtx)
		if err != nil {
			statusErr := ""
			switch {
			case errors.Is(err, context.Canceled):
				// Aborted, not user-facing.
			case errors.Is(err, context.DeadlineExceeded):
				statusErr = "context data request timed out"
			default:
				statusErr = err.Error()
			}
			c.status.End(statusErr)
			c.logger.Warn("context load failed", "key", key, "error", err)
			return Entry[T]{}, err
		}

		entry := Entry[T]{Key: key, Data: data, FetchedAt: time.Now()}
		c.mu.Lock()
		c.entries[key] = entry
		c.mu.Unlock()

		c.status.End("")
		c.logger.Debug("context loaded", "key", key)
		return entry, nil
	})
	if err != nil {
		return Entry[T]{}, err
	}
	if shared {
		c.logger.Debug("joined in-flight context load", "key", key)
	}
	return v.(Entry[T]), nil
}

// Invalidate removes the entry for key, forcing the next Get to miss and
// the next FetchOrJoin to issue a fresh load.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}
