// File: internal/executor/observe.go
package executor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/deskpilot/internal/vision"
)

// observation is one analyzed frame plus the signature used for no-change
// detection.
type observation struct {
	frame     *vision.Frame
	boxes     []vision.Box
	signature string
}

// observe captures and analyzes one frame. A capture failure yields no
// observation and the analyzer is not consulted.
func (e *Executor) observe() (*observation, bool) {
	frame, err := e.capturer().Capture()
	if err != nil {
		e.logger.Debug("capture failed", zap.Error(err))
		return nil, false
	}
	boxes := e.analyzer().Analyze(frame.Img)
	return &observation{
		frame:     frame,
		boxes:     boxes,
		signature: signatureOf(boxes),
	}, true
}

// signatureOf condenses an observation into a comparable string: the element
// count plus the geometry of the top three candidates. Derived purely from
// detected structure so two frames of the same screen produce the same
// signature despite capture noise elsewhere.
func signatureOf(boxes []vision.Box) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "n=%d", len(boxes))
	for i, b := range boxes {
		if i == 3 {
			break
		}
		fmt.Fprintf(&sb, "|%s:%d,%d,%dx%d",
			b.Kind, b.Rect.Min.X, b.Rect.Min.Y, b.Rect.Dx(), b.Rect.Dy())
	}
	return sb.String()
}

// walkTracker watches the observation signature during the focus walk and
// decides when a recovery kick is due.
type walkTracker struct {
	lastSig       string
	streak        int
	streakLimit   int
	cooldown      int
	sinceRecovery int
	recoveries    int
}

func newWalkTracker(streakLimit, cooldown int) *walkTracker {
	return &walkTracker{
		streakLimit:   streakLimit,
		cooldown:      cooldown,
		sinceRecovery: cooldown,
	}
}

// record notes one post-step observation and reports whether it changed.
func (t *walkTracker) record(sig string) (changed bool) {
	changed = sig != t.lastSig
	t.lastSig = sig
	if changed {
		t.streak = 0
	} else {
		t.streak++
	}
	t.sinceRecovery++
	return changed
}

// recoveryDue reports whether the walk is stuck and enough steps have passed
// since the last kick.
func (t *walkTracker) recoveryDue() bool {
	return t.streak >= t.streakLimit && t.sinceRecovery >= t.cooldown
}

// nextRecovery returns the strategy for this recovery and resets the
// counters.
func (t *walkTracker) nextRecovery() Strategy {
	s := recoveryPlan[t.recoveries%len(recoveryPlan)]
	t.recoveries++
	t.sinceRecovery = 0
	t.streak = 0
	return s
}
