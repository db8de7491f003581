// Package stream maintains the push connection delivering live market
// snapshots, reconnecting with bounded exponential backoff.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/gorilla/websocket"

	"courtside/internal/model"
)

const (
	HandshakeTimeout    = 30 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	PingInterval        = 50 * time.Second

	maxReconnectAttempts = 10
	maxHistoryPoints     = 50
)

const marketUpdateEvent = "market_update"

// exhaustedMessage is the terminal error shown after the reconnect budget
// is spent; only an explicit Reconnect leaves this state.
const exhaustedMessage = "max reconnection attempts reached"

type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusClosed     Status = "closed"
	StatusError      Status = "error"
)

// State describes the connection lifecycle. Attempt counts consecutive
// failed dials and resets to zero only on a successful open.
type State struct {
	Status    Status
	Attempt   int
	LastError string
}

// Message is the envelope emitted by the streaming endpoint.
type Message struct {
	Event     string                 `json:"event"`
	Markets   []model.MarketSnapshot `json:"markets"`
	Connected bool                   `json:"connected"`
}

type Config struct {
	// BaseURL is the websocket root, e.g. ws://localhost:8000/api/ws.
	BaseURL string
	// League filters the stream; empty means all markets.
	League string

	// Reconnect delays grow as base*2^attempt capped at max. Zero values
	// take the defaults of 1s and 30s.
	BaseReconnectDelay time.Duration
	MaxReconnectDelay  time.Duration
}

// Client owns the market snapshot list and per-ticker price history; both
// are replaced/updated only from its own read loop.
type Client struct {
	cfg    Config
	logger *slog.Logger
	dial   func(ctx context.Context, endpoint string) (*websocket.Conn, error)

	mu              sync.Mutex
	state           State
	markets         []model.MarketSnapshot
	serverConnected bool
	history         map[string]*btree.BTreeG[model.PricePoint]
	conn            *websocket.Conn
	cancel          context.CancelFunc
	done            chan struct{}
}

func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseReconnectDelay <= 0 {
		cfg.BaseReconnectDelay = time.Second
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		logger:  logger.With("component", "stream"),
		dial:    dialWebsocket,
		history: make(map[string]*btree.BTreeG[model.PricePoint]),
		state:   State{Status: StatusClosed},
	}
}

func dialWebsocket(ctx context.Context, endpoint string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, http.Header{})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) endpoint() string {
	if c.cfg.League == "" {
		return c.cfg.BaseURL + "/markets/stream"
	}
	return c.cfg.BaseURL + "/markets/" + c.cfg.League
}

// Connect opens the push connection and keeps it alive until ctx is
// cancelled, Disconnect is called, or the reconnect budget is exhausted.
func (c *Client) Connect(ctx context.Context) {
	c.Disconnect()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.state = State{Status: StatusConnecting}
	c.mu.Unlock()

	go c.run(runCtx, done)
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		c.setStatusConnecting()
		conn, err := c.dial(ctx, c.endpoint())
		if err != nil {
			if ctx.Err() != nil {
				c.markClosed()
				return
			}
			if !c.waitRetry(ctx, err) {
				return
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.state = State{Status: StatusOpen}
		c.mu.Unlock()
		c.logger.Info("stream connected", "endpoint", c.endpoint())

		stopPing := make(chan struct{})
		go c.pingLoop(conn, stopPing)

		readErr := c.readLoop(conn)

		close(stopPing)
		conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		if ctx.Err() != nil {
			c.markClosed()
			return
		}
		if !c.waitRetry(ctx, readErr) {
			return
		}
	}
}

// waitRetry records the failure, sleeps the backoff delay, and reports
// whether another attempt should be made.
func (c *Client) waitRetry(ctx context.Context, cause error) bool {
	c.mu.Lock()
	if c.state.Attempt >= maxReconnectAttempts {
		c.state.Status = StatusError
		c.state.LastError = exhaustedMessage
		c.mu.Unlock()
		c.logger.Error("stream reconnect exhausted", "attempts", maxReconnectAttempts, "error", cause)
		return false
	}
	delay := reconnectDelay(c.state.Attempt, c.cfg.BaseReconnectDelay, c.cfg.MaxReconnectDelay)
	c.state.Attempt++
	c.state.Status = StatusError
	c.state.LastError = cause.Error()
	attempt := c.state.Attempt
	c.mu.Unlock()

	c.logger.Warn("stream disconnected, scheduling reconnect", "attempt", attempt, "delay", delay, "error", cause)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		c.markClosed()
		return false
	case <-timer.C:
		return true
	}
}

// reconnectDelay returns base*2^attempt capped at max.
func reconnectDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt >= 63 {
		return max
	}
	d := base << uint(attempt)
	if d <= 0 || d > max {
		return max
	}
	return d
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			// Malformed payloads are logged and skipped; the connection
			// itself is still healthy.
			c.logger.Warn("malformed stream message", "error", err)
			continue
		}
		if msg.Event != marketUpdateEvent {
			continue
		}
		c.apply(msg)
	}
}

// apply replaces the snapshot list wholesale and records history points.
func (c *Client) apply(msg Message) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markets = msg.Markets
	c.serverConnected = msg.Connected

	for _, m := range msg.Markets {
		tree, ok := c.history[m.Ticker]
		if !ok {
			tree = btree.NewG(8, func(a, b model.PricePoint) bool { return a.Time.Before(b.Time) })
			c.history[m.Ticker] = tree
		}
		tree.ReplaceOrInsert(model.PricePoint{Time: now, Price: m.YesPrice})
		for tree.Len() > maxHistoryPoints {
			tree.DeleteMin()
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(DefaultWriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Warn("failed to send ping", "error", err)
				return
			}
		}
	}
}

// Disconnect closes the connection and cancels any pending reconnect
// timer. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel := c.cancel
	conn := c.conn
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		deadline := time.Now().Add(DefaultWriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		conn.Close()
	}
	if done != nil {
		<-done
	}
	c.markClosed()
}

// Reconnect resets the attempt counter and dials again. This is the only
// exit from the exhausted-reconnect state.
func (c *Client) Reconnect(ctx context.Context) {
	c.Disconnect()
	c.mu.Lock()
	c.state = State{Status: StatusClosed}
	c.mu.Unlock()
	c.Connect(ctx)
}

// SetLeague tears down the existing connection and opens a new one against
// the updated endpoint. Snapshots and history from the old league are
// dropped.
func (c *Client) SetLeague(ctx context.Context, league string) {
	c.Disconnect()
	c.mu.Lock()
	c.cfg.League = league
	c.markets = nil
	c.serverConnected = false
	c.history = make(map[string]*btree.BTreeG[model.PricePoint])
	c.state = State{Status: StatusClosed}
	c.mu.Unlock()
	c.Connect(ctx)
}

func (c *Client) setStatusConnecting() {
	c.mu.Lock()
	c.state.Status = StatusConnecting
	c.mu.Unlock()
}

func (c *Client) markClosed() {
	c.mu.Lock()
	c.state.Status = StatusClosed
	c.mu.Unlock()
}

// State returns the connection lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Markets returns a copy of the latest snapshot list.
func (c *Client) Markets() []model.MarketSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.MarketSnapshot, len(c.markets))
	copy(out, c.markets)
	return out
}

// ServerConnected mirrors the server-reported connected flag from the last
// snapshot.
func (c *Client) ServerConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverConnected
}

// History returns up to the last 50 price points for a ticker, oldest
// first.
func (c *Client) History(ticker string) []model.PricePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.history[ticker]
	if !ok {
		return nil
	}
	out := make([]model.PricePoint, 0, tree.Len())
	tree.Ascend(func(p model.PricePoint) bool {
		out = append(out, p)
		return true
	})
	return out
}
