// Package detail fetches the enriched record for the currently selected
// game, tolerating rapid re-selection and slow or out-of-order responses.
package detail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"courtside/internal/model"
	"courtside/internal/syncstatus"
)

const (
	DefaultTimeout        = 15 * time.Second
	DefaultDebounceWindow = 3 * time.Second
)

const timeoutMessage = "request timed out"

// Source fetches one enriched game record.
type Source interface {
	GameDetail(ctx context.Context, id, league string) (*model.GameDetail, error)
}

// SeedProvider supplies the shallow game row used for the optimistic fill.
type SeedProvider interface {
	Game(id string) (model.Game, bool)
}

// View is the triple the UI reads: the optimistic shallow row, the enriched
// detail once it lands, and whether a fetch is outstanding. Detail stays nil
// until a fetch for the current selection succeeds, so callers can
// distinguish "no detail yet" from partial data.
type View struct {
	ID         string
	Shallow    model.Game
	HasShallow bool
	Detail     *model.GameDetail
	Loading    bool
	Err        string
}

type Config struct {
	Timeout        time.Duration
	DebounceWindow time.Duration
}

type inflightCall struct {
	cancel context.CancelFunc
}

// Fetcher coordinates detail fetches for the single selected game.
//
// Every fetch increments a generation token; a response that arrives after
// the token has been bumped by a newer select or fetch is discarded without
// touching state. Latest request wins, regardless of network arrival order.
type Fetcher struct {
	source   Source
	seeds    SeedProvider
	league   string
	status   *syncstatus.Aggregator
	logger   *slog.Logger
	timeout  time.Duration
	debounce time.Duration

	mu          sync.Mutex
	gen         uint64
	currentID   string
	shallow     model.Game
	hasShallow  bool
	detail      *model.GameDetail
	loading     bool
	errMsg      string
	inflight    map[string]*inflightCall
	lastFetched map[string]time.Time
}

func New(source Source, seeds SeedProvider, league string, status *syncstatus.Aggregator, logger *slog.Logger, cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	return &Fetcher{
		source:      source,
		seeds:       seeds,
		league:      league,
		status:      status,
		logger:      logger.With("component", "detail"),
		timeout:     cfg.Timeout,
		debounce:    cfg.DebounceWindow,
		inflight:    make(map[string]*inflightCall),
		lastFetched: make(map[string]time.Time),
	}
}

// Select marks id as the current selection, seeds the visible detail from
// the shallow row already held by the dataset, and triggers a detail fetch.
// Any fetch for a previous selection is cancelled.
func (f *Fetcher) Select(id string) {
	f.mu.Lock()
	f.gen++
	f.cancelAllLocked()
	f.currentID = id
	f.detail = nil
	f.loading = false
	f.errMsg = ""
	f.shallow, f.hasShallow = model.Game{}, false
	if g, ok := f.seeds.Game(id); ok {
		f.shallow, f.hasShallow = g, true
	}
	f.mu.Unlock()

	f.Fetch(id)
}

// Fetch requests the enriched record for id. The call is skipped when id is
// no longer the current selection, when a fetch for id is already in flight,
// or when id was fetched within the debounce window.
func (f *Fetcher) Fetch(id string) {
	f.mu.Lock()
	if id == "" || id != f.currentID {
		f.mu.Unlock()
		return
	}
	if last, ok := f.lastFetched[id]; ok && time.Since(last) < f.debounce {
		f.mu.Unlock()
		f.logger.Debug("fetch debounced", "game_id", id)
		return
	}
	if _, ok := f.inflight[id]; ok {
		f.mu.Unlock()
		f.logger.Debug("fetch already in flight", "game_id", id)
		return
	}

	f.gen++
	myGen := f.gen
	f.lastFetched[id] = time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	call := &inflightCall{cancel: cancel}
	f.inflight[id] = call
	f.loading = true
	f.errMsg = ""
	f.mu.Unlock()

	f.status.Begin()
	go f.run(ctx, call, id, myGen)
}

func (f *Fetcher) run(ctx context.Context, call *inflightCall, id string, myGen uint64) {
	defer call.cancel()

	d, err := f.source.GameDetail(ctx, id, f.league)

	statusErr := ""
	f.mu.Lock()
	if cur, ok := f.inflight[id]; ok && cur == call {
		delete(f.inflight, id)
	}
	switch {
	case f.gen != myGen:
		// Superseded by a newer select or fetch; the response is stale.
		f.logger.Debug("discarding stale detail response", "game_id", id)
	case err == nil:
		f.detail = d
		f.loading = false
		f.errMsg = ""
		f.logger.Info("detail loaded", "game_id", id)
	case errors.Is(err, context.DeadlineExceeded):
		f.loading = false
		f.errMsg = timeoutMessage
		statusErr = timeoutMessage
		f.logger.Warn("detail fetch timed out", "game_id", id)
	case errors.Is(err, context.Canceled):
		// Aborted: never shown to the user.
	default:
		f.loading = false
		f.errMsg = err.Error()
		statusErr = f.errMsg
		f.logger.Error("detail fetch failed", "game_id", id, "error", err)
	}
	f.mu.Unlock()

	f.status.End(statusErr)
}

// Clear synchronously resets selection, detail, loading, and error state,
// cancelling any outstanding fetch.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	f.gen++
	f.cancelAllLocked()
	f.currentID = ""
	f.shallow, f.hasShallow = model.Game{}, false
	f.detail = nil
	f.loading = false
	f.errMsg = ""
	f.mu.Unlock()
}

func (f *Fetcher) cancelAllLocked() {
	for id, call := range f.inflight {
		call.cancel()
		delete(f.inflight, id)
	}
}

// View returns the current selection state.
func (f *Fetcher) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return View{
		ID:         f.currentID,
		Shallow:    f.shallow,
		HasShallow: f.hasShallow,
		Detail:     f.detail,
		Loading:    f.loading,
		Err:        f.errMsg,
	}
}
