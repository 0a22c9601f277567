// File: internal/gate/windowgate.go
package gate

import "time"

// Predicate reports whether the right window is foreground right now.
type Predicate func() bool

// WindowGate wraps a foreground predicate with a grace period: a failing call
// is still treated as passing while the predicate last passed within the
// grace window. Foreground detection blips during window transitions, and
// blocking mid-sequence on a blip is worse than tolerating it briefly.
type WindowGate struct {
	predicate Predicate
	grace     time.Duration
	lastOK    time.Time
	now       func() time.Time
}

// NewWindowGate with a nil predicate always passes.
func NewWindowGate(predicate Predicate, grace time.Duration, now func() time.Time) *WindowGate {
	if now == nil {
		now = time.Now
	}
	return &WindowGate{predicate: predicate, grace: grace, now: now}
}

// SetPredicate swaps the predicate; executors install a goal-specific gate
// for the duration of a run and restore the previous one after.
func (g *WindowGate) SetPredicate(p Predicate) { g.predicate = p }

// OK evaluates the predicate with hysteresis.
func (g *WindowGate) OK() bool {
	if g.predicate == nil {
		return true
	}
	t := g.now()
	if g.predicate() {
		g.lastOK = t
		return true
	}
	return !g.lastOK.IsZero() && t.Sub(g.lastOK) <= g.grace
}
