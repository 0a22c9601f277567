// File: internal/executor/executor.go
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/config"
	"github.com/xkilldash9x/deskpilot/internal/eventlog"
	"github.com/xkilldash9x/deskpilot/internal/gate"
	"github.com/xkilldash9x/deskpilot/internal/vision"
	"github.com/xkilldash9x/deskpilot/internal/winauth"
)

// Deps bundles the executor's collaborators. Tests substitute fakes for all
// of them.
type Deps struct {
	Gate      *gate.Gate
	Authority winauth.Authority
	Capturer  vision.Capturer
	Analyzer  vision.Analyzer
	Events    eventlog.Logger
}

// Executor carries out one goal at a time against the target application.
// It is not safe for concurrent use; the agent serializes goals.
type Executor struct {
	cfg    config.ExecutorConfig
	target winauth.FocusTarget
	// peer is the other cooperating application, when configured. Focus
	// landing on the peer is a recognizable wrong surface, not a mystery.
	peer winauth.FocusTarget
	deps Deps

	logger *zap.Logger

	phase Phase
	sleep func(time.Duration)
}

func New(cfg config.ExecutorConfig, target winauth.FocusTarget, deps Deps, logger *zap.Logger) *Executor {
	if deps.Events == nil {
		deps.Events = eventlog.Nop{}
	}
	return &Executor{
		cfg:    cfg,
		target: target,
		deps:   deps,
		logger: logger.Named("executor"),
		phase:  PhaseIdle,
		sleep:  time.Sleep,
	}
}

// SetPeer names the second cooperating application so focus landing there is
// classified as WrongSurface instead of a bare FocusLost.
func (e *Executor) SetPeer(peer winauth.FocusTarget) { e.peer = peer }

// Phase reports the executor's current phase for the status surface.
func (e *Executor) Phase() Phase { return e.phase }

func (e *Executor) setPhase(p Phase) {
	e.phase = p
	e.deps.Events.Log("phase", map[string]any{"phase": string(p)})
}

func (e *Executor) capturer() vision.Capturer { return e.deps.Capturer }
func (e *Executor) analyzer() vision.Analyzer { return e.deps.Analyzer }
func (e *Executor) auth() winauth.Authority   { return e.deps.Authority }
func (e *Executor) gate() *gate.Gate          { return e.deps.Gate }

// Run executes one goal and reports the outcome. Every path out of here
// carries a Result; the only error-shaped exit is context cancellation.
func (e *Executor) Run(ctx context.Context, goal Goal) Result {
	e.setPhase(PhaseSeeding)
	defer e.setPhase(PhaseIdle)

	win, ok := e.acquireTarget()
	if !ok {
		return e.report(goal, failed(ReasonFocusLost, "target window not available", 0, nil))
	}

	// The window gate holds the target check for the whole run, with grace
	// against focus flicker. Cleared on the way out.
	e.gate().SetWindowPredicate(func() bool { return e.onTarget() })
	defer e.gate().SetWindowPredicate(nil)

	e.logger.Info("goal started",
		zap.String("kind", string(goal.Kind)),
		zap.String("window", win.Title))

	if goal.Kind == GoalWaitForContent {
		return e.report(goal, e.waitForContent(ctx, goal))
	}

	var res Result
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		res = e.runAttempt(ctx, goal, attempt)
		if res.OK || !retryable(res.Reason) || ctx.Err() != nil {
			break
		}
		e.logger.Debug("attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.String("reason", string(res.Reason)))
		if res.Reason == ReasonGateRejected {
			// A gate rejection is "not yet": let the budget window drain
			// before the next attempt instead of hammering it.
			e.sleep(e.cfg.GateBackoff)
		}
		// Reacquire before the next attempt; the failure may have moved focus.
		if _, ok := e.acquireTarget(); !ok {
			res = failed(ReasonFocusLost, "target window lost between attempts", attempt, res.Moves)
			break
		}
	}
	return e.report(goal, res)
}

func retryable(r Reason) bool {
	switch r {
	case ReasonGateRejected, ReasonVerificationFailed, ReasonInjectionRejected, ReasonWrongSurface, ReasonNoCandidate:
		return true
	}
	return false
}

func (e *Executor) report(goal Goal, res Result) Result {
	e.deps.Events.Log("goal_result", map[string]any{
		"kind":    string(goal.Kind),
		"ok":      res.OK,
		"reason":  string(res.Reason),
		"detail":  res.Detail,
		"attempt": res.Attempt,
		"moves":   len(res.Moves),
	})
	if res.OK {
		e.logger.Info("goal succeeded", zap.String("kind", string(goal.Kind)), zap.Int("attempt", res.Attempt))
	} else {
		e.logger.Warn("goal failed",
			zap.String("kind", string(goal.Kind)),
			zap.String("reason", string(res.Reason)),
			zap.String("detail", res.Detail))
	}
	return res
}

// runAttempt is one full seed/walk/probe/act/verify cycle.
func (e *Executor) runAttempt(ctx context.Context, goal Goal, attempt int) Result {
	var moves []FocusMove

	// An observation must exist before anything is probed. Capture failure
	// means there is nothing to act on, and analysis is never consulted.
	obs, ok := e.observe()
	if !ok {
		return failed(ReasonNoCandidate, "no observation: screen capture failed", attempt, moves)
	}

	e.setPhase(PhaseSeeding)
	if reason := e.seed(ctx, &moves); reason != ReasonNone {
		return failed(reason, "seeding focus failed", attempt, moves)
	}

	e.setPhase(PhaseWalking)
	obs, reason := e.walkToCandidate(ctx, goal, obs, &moves)
	if reason != ReasonNone {
		detail := "focus walk exhausted without a candidate"
		if reason == ReasonCancelled {
			detail = "run cancelled during focus walk"
		}
		return failed(reason, detail, attempt, moves)
	}
	box, ok := pickCandidate(obs, goal)
	if !ok {
		return failed(ReasonNoCandidate, "no candidate after walk", attempt, moves)
	}

	e.setPhase(PhaseProbing)
	if reason := e.probe(ctx, obs, box); reason != ReasonNone {
		return failed(reason, "probing candidate failed", attempt, moves)
	}

	e.setPhase(PhaseActing)
	switch goal.Kind {
	case GoalCopyContent:
		return e.actCopy(goal, attempt, moves)
	case GoalTypeAndSubmit:
		return e.actTypeAndSubmit(goal, attempt, moves)
	case GoalActivateControl:
		return e.actActivate(obs, attempt, moves)
	default:
		return failed(ReasonNoCandidate, fmt.Sprintf("unknown goal kind %q", goal.Kind), attempt, moves)
	}
}

// acquireTarget finds the target window and makes it foreground.
func (e *Executor) acquireTarget() (winauth.WindowInfo, bool) {
	win, ok := e.auth().FindWindow(e.target)
	if !ok {
		return winauth.WindowInfo{}, false
	}
	if !e.auth().Activate(win.Handle) {
		return winauth.WindowInfo{}, false
	}
	return win, true
}

// onTarget reports whether the foreground window still matches the target.
func (e *Executor) onTarget() bool {
	fg, ok := e.auth().Foreground()
	return ok && e.target.Matches(fg)
}

// focusFailure classifies a failed foreground check: the known peer window is
// a wrong surface (bounded recovery), anything else is a lost focus.
func (e *Executor) focusFailure() Reason {
	fg, ok := e.auth().Foreground()
	if ok && !e.peer.Empty() && e.peer.Matches(fg) {
		return ReasonWrongSurface
	}
	return ReasonFocusLost
}

// injectChord sends one gated chord. The foreground check runs before any
// key is emitted: a keystroke into the wrong window is never acceptable.
func (e *Executor) injectChord(s Strategy) Reason {
	if !e.onTarget() {
		return e.focusFailure()
	}
	if !e.gate().KeyboardAllowed() {
		return ReasonGateRejected
	}
	if !e.gate().Admit(gate.CategoryKeys) {
		return ReasonGateRejected
	}
	if !e.auth().InjectKeys(s.Keys) {
		return ReasonInjectionRejected
	}
	return ReasonNone
}

// seed lands focus inside the watched region. The plan is applied in order,
// bounded by the seed budget.
func (e *Executor) seed(ctx context.Context, moves *[]FocusMove) Reason {
	steps := 0
	for _, s := range seedPlan {
		if ctx.Err() != nil || steps >= e.cfg.MaxSeedSteps {
			break
		}
		if reason := e.injectChord(s); reason != ReasonNone {
			return reason
		}
		steps++
		*moves = append(*moves, FocusMove{
			Step: len(*moves) + 1,
			Keys: s.Name,
			At:   time.Now(),
		})
		e.sleep(e.cfg.SettleDelay)
	}
	return ReasonNone
}

// walkToCandidate advances focus until a candidate appears or the walk
// budget runs out. A stalled observation signature triggers a recovery kick.
func (e *Executor) walkToCandidate(ctx context.Context, goal Goal, obs *observation, moves *[]FocusMove) (*observation, Reason) {
	tracker := newWalkTracker(e.cfg.NoChangeStreakLimit, e.cfg.RecoveryCooldown)
	tracker.record(obs.signature)

	for step := 0; step < e.cfg.MaxWalkSteps; step++ {
		if ctx.Err() != nil {
			return obs, ReasonCancelled
		}
		if _, ok := pickCandidate(obs, goal); ok {
			return obs, ReasonNone
		}

		strat := walkStep
		if tracker.recoveryDue() {
			strat = tracker.nextRecovery()
			e.deps.Events.Log("walk_recovery", map[string]any{"strategy": strat.Name, "step": step})
		}
		if reason := e.injectChord(strat); reason != ReasonNone {
			return obs, reason
		}
		e.sleep(e.cfg.SettleDelay)

		next, ok := e.observe()
		if !ok {
			return obs, ReasonNoCandidate
		}
		obs = next
		tracker.record(obs.signature)
		*moves = append(*moves, FocusMove{
			Step:      len(*moves) + 1,
			Keys:      strat.Name,
			Signature: obs.signature,
			At:        time.Now(),
		})
	}

	if _, ok := pickCandidate(obs, goal); ok {
		return obs, ReasonNone
	}
	return obs, ReasonNoCandidate
}

// pickCandidate selects the box a goal should act on. ActivateControl
// requires its named template; everything else takes the best-ranked box.
func pickCandidate(obs *observation, goal Goal) (vision.Box, bool) {
	if goal.Kind == GoalActivateControl && goal.Control != "" {
		for _, b := range obs.boxes {
			if b.Kind == vision.KindTemplate && strings.EqualFold(b.Label, goal.Control) {
				return b, true
			}
		}
		return vision.Box{}, false
	}
	if len(obs.boxes) == 0 {
		return vision.Box{}, false
	}
	return obs.boxes[0], true
}

// awaitControls waits out the duty cycle's released phase instead of failing
// the goal over timing. Waiting only helps when the duty cycle is the
// blocker: pause, ownership, and window problems reject immediately.
func (e *Executor) awaitControls(ctx context.Context) bool {
	for try := 0; try < 3; try++ {
		if e.gate().ControlsAllowed() {
			return true
		}
		if ctx.Err() != nil || e.gate().Paused() {
			return false
		}
		snap := e.gate().Snapshot()
		if snap.Phase != gate.PhaseReleased {
			return false
		}
		remaining := snap.PhaseTotal - snap.PhaseElapsed
		if remaining < 0 {
			remaining = 0
		}
		e.sleep(remaining + 50*time.Millisecond)
	}
	return e.gate().ControlsAllowed()
}

// probe moves the cursor onto the candidate and clicks it.
func (e *Executor) probe(ctx context.Context, obs *observation, box vision.Box) Reason {
	pt := box.Center().Add(obs.frame.Origin)
	if !e.awaitControls(ctx) {
		return ReasonGateRejected
	}
	if e.gate().Admit(gate.CategoryMove) {
		e.auth().MoveMouse(pt.X, pt.Y)
	}
	if !e.gate().Admit(gate.CategoryClick) {
		return ReasonGateRejected
	}
	if !e.onTarget() {
		return e.focusFailure()
	}
	if !e.auth().Click(pt.X, pt.Y, "left") {
		return ReasonInjectionRejected
	}
	e.sleep(e.cfg.SettleDelay)
	return ReasonNone
}

// copyProbe seeds the clipboard with a sentinel, issues select-all/copy, and
// returns the post-copy clipboard. The sentinel distinguishes "copy did
// nothing" from "copy copied empty-looking content".
func (e *Executor) copyProbe() (clip, sentinel string, reason Reason) {
	sentinel = newSentinel()
	if !e.auth().WriteClipboard(sentinel, e.cfg.ClipboardTimeout) {
		return "", sentinel, ReasonInjectionRejected
	}
	for _, chord := range []Strategy{
		{Name: "select-all", Keys: []string{"ctrl", "a"}},
		{Name: "copy", Keys: []string{"ctrl", "c"}},
	} {
		if r := e.injectChord(chord); r != ReasonNone {
			return "", sentinel, r
		}
	}
	e.sleep(e.cfg.SettleDelay)
	return e.auth().ReadClipboard(e.cfg.ClipboardTimeout), sentinel, ReasonNone
}

// actCopy extracts the focused element's content and verifies it through the
// sentinel.
func (e *Executor) actCopy(goal Goal, attempt int, moves []FocusMove) Result {
	clip, sentinel, reason := e.copyProbe()
	if reason != ReasonNone {
		return failed(reason, "copy probe failed", attempt, moves)
	}

	e.setPhase(PhaseVerifying)
	if clip == "" || clip == sentinel {
		return failed(ReasonVerificationFailed, "clipboard unchanged after copy", attempt, moves)
	}
	if !clipboardSatisfies(clip, sentinel, goal.Expect, e.cfg.FuzzyMaxDistance) {
		return failed(ReasonVerificationFailed,
			fmt.Sprintf("clipboard content does not match expected fragment %q", goal.Expect),
			attempt, moves)
	}
	return succeeded(clip, attempt, moves)
}

// actTypeAndSubmit types the prompt into the focused input, verifies the
// text landed, and submits it with Enter. The original clipboard is restored
// afterwards; verification borrows it as a channel.
func (e *Executor) actTypeAndSubmit(goal Goal, attempt int, moves []FocusMove) Result {
	text := sanitizePrompt(goal.Text)
	if text == "" {
		return failed(ReasonNoCandidate, "empty prompt after sanitization", attempt, moves)
	}
	// Put back whatever was there, including nothing: an empty prior
	// clipboard restores as empty, not as the typed prompt.
	saved := e.auth().ReadClipboard(e.cfg.ClipboardTimeout)
	defer func() {
		e.auth().WriteClipboard(saved, e.cfg.ClipboardTimeout)
	}()

	if reason := e.typeVerified(text); reason != ReasonNone {
		return failed(reason, "typing did not land in the input", attempt, moves)
	}

	// Last look before the irreversible part. Enter into the wrong window is
	// the exact failure this whole loop exists to prevent.
	if !e.onTarget() {
		return failed(e.focusFailure(), "focus check failed before submit", attempt, moves)
	}
	if reason := e.injectChord(Strategy{Name: "submit", Keys: []string{"enter"}}); reason != ReasonNone {
		return failed(reason, "submit keystroke rejected", attempt, moves)
	}
	e.sleep(e.cfg.SettleDelay)

	e.setPhase(PhaseVerifying)
	if !e.onTarget() {
		return failed(ReasonWrongSurface, "foreground changed after submit", attempt, moves)
	}
	return succeeded(text, attempt, moves)
}

// typeVerified types the text and confirms via a copy probe that it landed.
// Falls back to clipboard paste when direct typing keeps failing.
func (e *Executor) typeVerified(text string) Reason {
	clearInput := Strategy{Name: "select-all", Keys: []string{"ctrl", "a"}}

	for try := 0; try < 2; try++ {
		if try > 0 {
			// The first pass failed to land; refocus before trying again.
			if _, ok := e.acquireTarget(); !ok {
				return e.focusFailure()
			}
		}
		if r := e.injectChord(clearInput); r != ReasonNone {
			return r
		}
		if !e.onTarget() {
			return e.focusFailure()
		}
		if !e.gate().KeyboardAllowed() || !e.gate().Admit(gate.CategoryKeys) {
			return ReasonGateRejected
		}
		if !e.auth().InjectText(text) {
			return ReasonInjectionRejected
		}
		e.sleep(e.cfg.SettleDelay)
		if e.inputEchoes(text) {
			return ReasonNone
		}
	}

	// Paste fallback: put the prompt itself on the clipboard and paste it.
	if !e.auth().WriteClipboard(text, e.cfg.ClipboardTimeout) {
		return ReasonInjectionRejected
	}
	if r := e.injectChord(clearInput); r != ReasonNone {
		return r
	}
	if r := e.injectChord(Strategy{Name: "paste", Keys: []string{"ctrl", "v"}}); r != ReasonNone {
		return r
	}
	e.sleep(e.cfg.SettleDelay)
	if !e.inputEchoes(text) {
		return ReasonVerificationFailed
	}
	return ReasonNone
}

// inputEchoes checks whether the input field now contains the text, read
// back through a sentinel copy probe.
func (e *Executor) inputEchoes(text string) bool {
	clip, sentinel, reason := e.copyProbe()
	if reason != ReasonNone {
		return false
	}
	return clipboardSatisfies(clip, sentinel, text, 0)
}

// actActivate verifies a control click by watching the observation change.
func (e *Executor) actActivate(before *observation, attempt int, moves []FocusMove) Result {
	e.setPhase(PhaseVerifying)
	e.sleep(e.cfg.SettleDelay)
	after, ok := e.observe()
	if !ok {
		return failed(ReasonVerificationFailed, "no observation after activation", attempt, moves)
	}
	if after.signature == before.signature {
		return failed(ReasonVerificationFailed, "screen did not react to activation", attempt, moves)
	}
	return succeeded("", attempt, moves)
}

// waitForContent polls until the expected content appears or the wait budget
// runs out. Every ReactEvery-th poll reactivates the target window, and the
// submit keystroke is resent at most once past the halfway mark.
func (e *Executor) waitForContent(ctx context.Context, goal Goal) Result {
	e.setPhase(PhaseVerifying)
	start := time.Now()
	deadline := start.Add(e.cfg.WaitTimeout)
	resent := false

	for poll := 1; time.Now().Before(deadline); poll++ {
		select {
		case <-ctx.Done():
			return failed(ReasonCancelled, "wait cancelled", poll, nil)
		case <-time.After(e.cfg.WaitInterval):
		}

		if e.cfg.ReactEvery > 0 && poll%e.cfg.ReactEvery == 0 {
			if win, ok := e.auth().FindWindow(e.target); ok {
				e.auth().Activate(win.Handle)
			}
		}

		clip, sentinel, reason := e.copyProbe()
		if reason == ReasonFocusLost || reason == ReasonWrongSurface {
			// The target lost focus mid-wait; reacquire and keep polling.
			e.acquireTarget()
			continue
		}
		if reason != ReasonNone {
			continue
		}
		if clipboardSatisfies(clip, sentinel, goal.Expect, e.cfg.FuzzyMaxDistance) {
			return succeeded(clip, poll, nil)
		}

		if !resent && time.Since(start) > e.cfg.WaitTimeout/2 {
			e.logger.Debug("resending submit once, content still absent")
			e.injectChord(Strategy{Name: "submit", Keys: []string{"enter"}})
			resent = true
		}
	}
	return failed(ReasonVerificationFailed,
		fmt.Sprintf("expected content %q did not appear within %s", goal.Expect, e.cfg.WaitTimeout),
		0, nil)
}
