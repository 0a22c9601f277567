// File: internal/gate/gate.go

// Package gate decides whether a synthetic input action may be attempted.
// It combines a sliding-window action budget, a duty cycle, a manual pause
// flag, a foreground-window predicate with hysteresis, and the cooperative
// ownership marker. Every input the agent emits passes through here first.
//
// The gate is advisory toward other processes (the ownership marker is polled
// cooperation, not a kernel lock) but authoritative in-process: a false
// answer means the action is not issued.
package gate

import (
	"time"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"go.uber.org/zap"
)

// Action categories for budget accounting.
const (
	CategoryClick = "click"
	CategoryKeys  = "keys"
	CategoryMove  = "move"
)

// Gate is the sole in-process arbiter for the shared input stream. It is used
// from the single cooperative tick loop and holds no locks; every check
// re-derives state instead of caching it because other processes touch the
// same OS resources concurrently.
type Gate struct {
	budget *Budget
	duty   *DutyCycle
	window *WindowGate

	paused bool
	// ownerOK, when set, reports whether the cooperative ownership marker
	// permits this process to act. One more gating input, not a lock.
	ownerOK func() bool
	// onPauseChange persists the flag on every toggle.
	onPauseChange func(paused bool)

	logger *zap.Logger
	now    func() time.Time
}

// Option configures optional gate inputs.
type Option func(*Gate)

// WithOwnershipCheck wires the cooperative ownership marker poll.
func WithOwnershipCheck(fn func() bool) Option {
	return func(g *Gate) { g.ownerOK = fn }
}

// WithPauseSink wires pause-flag persistence.
func WithPauseSink(fn func(paused bool)) Option {
	return func(g *Gate) { g.onPauseChange = fn }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New builds a gate from configuration.
func New(cfg config.GateConfig, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		logger: logger.Named("gate"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.budget = NewBudget(map[string]int{
		CategoryClick: cfg.MaxClicksPerMinute,
		CategoryKeys:  cfg.MaxKeysPerMinute,
	}, cfg.MaxTotalPerMinute, g.now)
	g.duty = NewDutyCycle(cfg.DutyActive, cfg.DutyReleased, g.now)
	g.window = NewWindowGate(nil, cfg.GracePeriod, g.now)
	return g
}

// SetWindowPredicate installs the "right window foreground" check.
func (g *Gate) SetWindowPredicate(p Predicate) { g.window.SetPredicate(p) }

// WindowGate exposes the gate for executors that install a goal-specific
// predicate and restore the previous one afterwards.
func (g *Gate) WindowGate() *WindowGate { return g.window }

// Admit checks the category budget and records the admission. A false return
// is a normal "not yet" signal, never a fault.
func (g *Gate) Admit(category string) bool {
	ok := g.budget.Admit(category)
	if !ok {
		g.logger.Debug("budget rejected action", zap.String("category", category))
	}
	return ok
}

// ControlsAllowed gates continuous, cheap actions (mouse movement): requires
// not paused, duty cycle Active, ownership, and the window gate with grace.
func (g *Gate) ControlsAllowed() bool {
	if g.paused {
		return false
	}
	if !g.duty.Active() {
		return false
	}
	if g.ownerOK != nil && !g.ownerOK() {
		return false
	}
	return g.window.OK()
}

// KeyboardAllowed gates keystrokes: not paused, ownership, window gate with
// grace. Deliberately not duty-cycle-gated: once a key sequence has begun,
// stopping mid-sequence on a phase flip would leave a control half-typed,
// which is worse than finishing slightly outside the nominal window.
func (g *Gate) KeyboardAllowed() bool {
	if g.paused {
		return false
	}
	if g.ownerOK != nil && !g.ownerOK() {
		return false
	}
	return g.window.OK()
}

// Paused reports the manual pause flag.
func (g *Gate) Paused() bool { return g.paused }

// SetPaused sets the manual pause flag and persists it.
func (g *Gate) SetPaused(paused bool) {
	g.paused = paused
	if g.onPauseChange != nil {
		g.onPauseChange(paused)
	}
	g.logger.Info("pause flag changed", zap.Bool("paused", paused))
}

// TogglePaused flips the flag and returns the new value.
func (g *Gate) TogglePaused() bool {
	g.SetPaused(!g.paused)
	return g.paused
}

// Snapshot is the status surface consumed by the status command and the
// control panel. Purely informational.
type Snapshot struct {
	Paused         bool          `json:"paused"`
	Phase          Phase         `json:"phase"`
	PhaseElapsed   time.Duration `json:"phase_elapsed"`
	PhaseTotal     time.Duration `json:"phase_total"`
	KeysInWindow   int           `json:"keys_in_window"`
	ClicksInWindow int           `json:"clicks_in_window"`
	TotalHeadroom  int           `json:"total_headroom"`
}

// Snapshot reports the current gate state.
func (g *Gate) Snapshot() Snapshot {
	phase, elapsed, total := g.duty.Info()
	return Snapshot{
		Paused:         g.paused,
		Phase:          phase,
		PhaseElapsed:   elapsed,
		PhaseTotal:     total,
		KeysInWindow:   g.budget.InWindow(CategoryKeys),
		ClicksInWindow: g.budget.InWindow(CategoryClick),
		TotalHeadroom:  g.budget.Headroom(),
	}
}
