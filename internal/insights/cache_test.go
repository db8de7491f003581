package insights

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConcurrentFetchesShareOneLoad(t *testing.T) {
	c := New[string](0, nil, discardLogger())

	var loads atomic.Int32
	gate := make(chan struct{})
	loader := func(ctx context.Context) (string, error) {
		loads.Add(1)
		<-gate
		return "weather: clear", nil
	}

	const callers = 5
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.FetchOrJoin(context.Background(), "game-7", loader)
			if err != nil {
				t.Errorf("caller %d: %v", i, err)
				return
			}
			results[i] = e.Data
		}(i)
	}

	// Let the callers pile up on the in-flight load before releasing it.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}
	for i, r := range results {
		if r != "weather: clear" {
			t.Errorf("caller %d got %q, want shared result", i, r)
		}
	}
}

func TestInvalidateForcesFreshLoad(t *testing.T) {
	c := New[string](0, nil, discardLogger())

	var loads atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return "injuries: none", nil
	}

	if _, err := c.FetchOrJoin(context.Background(), "game-7", loader); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("game-7"); !ok {
		t.Fatal("expected cache hit after load")
	}

	c.Invalidate("game-7")

	if _, ok := c.Get("game-7"); ok {
		t.Error("expected miss after invalidate")
	}
	if _, err := c.FetchOrJoin(context.Background(), "game-7", loader); err != nil {
		t.Fatal(err)
	}
	if got := loads.Load(); got != 2 {
		t.Errorf("loader ran %d times, want 2 (invalidate forces refetch)", got)
	}
}

func TestCachedEntrySkipsLoader(t *testing.T) {
	c := New[string](0, nil, discardLogger())

	var loads atomic.Int32
	loader := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return "news", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.FetchOrJoin(context.Background(), "game-1", loader); err != nil {
			t.Fatal(err)
		}
	}
	if got := loads.Load(); got != 1 {
		t.Errorf("loader ran %d times, want 1", got)
	}
}

func TestLoadTimeoutClearsInFlightMarker(t *testing.T) {
	c := New[string](30*time.Millisecond, nil, discardLogger())

	var loads atomic.Int32
	slow := func(ctx context.Context) (string, error) {
		loads.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	}

	_, err := c.FetchOrJoin(context.Background(), "game-7", slow)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want deadline exceeded", err)
	}
	if _, ok := c.Get("game-7"); ok {
		t.Error("failed load must not populate the cache")
	}

	// The key must be loadable again after the failure.
	fast := func(ctx context.Context) (string, error) {
		loads.Add(1)
		return "recovered", nil
	}
	e, err := c.FetchOrJoin(context.Background(), "game-7", fast)
	if err != nil {
		t.Fatal(err)
	}
	if e.Data != "recovered" {
		t.Errorf("got %q, want %q", e.Data, "recovered")
	}
	if got := loads.Load(); got != 2 {
		t.Errorf("loader ran %d times, want 2", got)
	}
}

func TestGetMiss(t *testing.T) {
	c := New[string](0, nil, discardLogger())
	if _, ok := c.Get("absent"); ok {
		t.Error("expected miss for unknown key")
	}
}
