// File: internal/executor/types.go

// Package executor runs verified actions against the target application: it
// seeds focus into the watched region, walks between elements, probes
// candidates, acts, and verifies the effect through a clipboard sentinel.
// Nothing is assumed to have happened until verification says so.
package executor

import (
	"time"
)

// GoalKind selects the action the executor carries out.
type GoalKind string

const (
	// GoalCopyContent extracts the focused element's content via the
	// clipboard and verifies it changed past the sentinel.
	GoalCopyContent GoalKind = "copy_content"
	// GoalTypeAndSubmit types text into an input element and submits it.
	GoalTypeAndSubmit GoalKind = "type_and_submit"
	// GoalActivateControl clicks a known control, preferring a template match.
	GoalActivateControl GoalKind = "activate_control"
	// GoalWaitForContent polls the target until expected content appears.
	GoalWaitForContent GoalKind = "wait_for_content"
)

// Goal is one unit of work handed to the executor.
type Goal struct {
	Kind GoalKind
	// Text is the input for TypeAndSubmit.
	Text string
	// Expect is a content fragment that must appear for CopyContent and
	// WaitForContent verification. Empty means any change satisfies.
	Expect string
	// Control names the template label ActivateControl should prefer.
	Control string
}

// Phase is the executor's position in its cycle. Exposed for status
// reporting; transitions happen only inside Run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseSeeding   Phase = "seeding"
	PhaseWalking   Phase = "walking"
	PhaseProbing   Phase = "probing"
	PhaseActing    Phase = "acting"
	PhaseVerifying Phase = "verifying"
)

// Reason classifies why a run did not succeed. Every failure carries exactly
// one of these; callers branch on the reason, not on error strings.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonGateRejected       Reason = "gate_rejected"
	ReasonFocusLost          Reason = "focus_lost"
	ReasonWrongSurface       Reason = "wrong_surface"
	ReasonInjectionRejected  Reason = "injection_rejected"
	ReasonVerificationFailed Reason = "verification_failed"
	ReasonNoCandidate        Reason = "no_candidate"
	// ReasonCancelled reports a caller abort, not a gate or target decision.
	ReasonCancelled Reason = "cancelled"
)

// FocusMove records one step of the focus walk for the audit trail.
type FocusMove struct {
	Step      int       `json:"step"`
	Keys      string    `json:"keys"`
	Signature string    `json:"signature"`
	At        time.Time `json:"at"`
}

// Result is the outcome of one goal. A failed run is a normal result, not an
// error: the agent decides whether to retry, back off, or give up.
type Result struct {
	OK      bool        `json:"ok"`
	Reason  Reason      `json:"reason,omitempty"`
	Detail  string      `json:"detail,omitempty"`
	Content string      `json:"content,omitempty"`
	Attempt int         `json:"attempt"`
	Moves   []FocusMove `json:"moves,omitempty"`
}

func succeeded(content string, attempt int, moves []FocusMove) Result {
	return Result{OK: true, Content: content, Attempt: attempt, Moves: moves}
}

func failed(reason Reason, detail string, attempt int, moves []FocusMove) Result {
	return Result{Reason: reason, Detail: detail, Attempt: attempt, Moves: moves}
}
