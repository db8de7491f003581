// Package syncstatus merges busy and error signals from the dashboard
// components into one status pair.
package syncstatus

import "sync"

// Aggregator counts outstanding operations. A plain boolean would let an
// earlier-started, later-finishing operation clear the busy flag of a
// later-started one, so completions decrement a counter instead.
//
// All methods are safe on a nil receiver so components can run without an
// aggregator wired in.
type Aggregator struct {
	mu      sync.Mutex
	pending int
	lastErr string
}

func New() *Aggregator {
	return &Aggregator{}
}

// Begin marks the start of an operation and clears the last error.
func (a *Aggregator) Begin() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending++
	a.lastErr = ""
}

// End marks the completion of an operation. A non-empty errMsg is recorded
// without clearing the busy state owed to other outstanding operations.
func (a *Aggregator) End(errMsg string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending > 0 {
		a.pending--
	}
	if errMsg != "" {
		a.lastErr = errMsg
	}
}

// Status reports whether any operation is outstanding and the last error.
func (a *Aggregator) Status() (syncing bool, errMsg string) {
	if a == nil {
		return false, ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending > 0, a.lastErr
}
