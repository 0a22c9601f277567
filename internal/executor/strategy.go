// File: internal/executor/strategy.go
package executor

// Strategy is one named keystroke chord in an ordered plan. Plans are plain
// data so a new UI quirk is handled by editing a list, not the state machine.
type Strategy struct {
	Name string
	// Keys is a single chord; all but the last entry are modifiers.
	Keys []string
}

// seedPlan lands focus inside the watched region after activation: dismiss
// any overlay, cycle panes, then jump to the newest content. Applied in order
// until the observation stabilizes or the seed budget runs out.
var seedPlan = []Strategy{
	{Name: "dismiss-overlay", Keys: []string{"esc"}},
	{Name: "cycle-pane", Keys: []string{"f6"}},
	{Name: "jump-newest", Keys: []string{"ctrl", "end"}},
}

// walkStep advances focus to the next element.
var walkStep = Strategy{Name: "next-element", Keys: []string{"tab"}}

// recoveryPlan kicks a stuck walk: the observation stopped changing, so
// something (an overlay, a collapsed pane, scroll position) is eating the
// walk keys. Strategies rotate across recoveries.
var recoveryPlan = []Strategy{
	{Name: "dismiss-overlay", Keys: []string{"esc"}},
	{Name: "jump-end", Keys: []string{"end"}},
	{Name: "page-down", Keys: []string{"pagedown"}},
}
