// File: internal/gate/budget.go
package gate

import "time"

// budgetWindow is the trailing window every ceiling is measured over.
const budgetWindow = 60 * time.Second

// Budget is a sliding-window admission counter: per-category ceilings plus a
// shared total ceiling across all categories. Timestamps older than the
// window are pruned before every check, so admissions of any category within
// any trailing 60s window can never exceed its ceiling.
type Budget struct {
	ceilings map[string]int
	total    int

	times map[string][]time.Time
	now   func() time.Time
}

// NewBudget builds a budget from per-category ceilings and a shared total
// ceiling. A category without a configured ceiling is only bounded by the
// shared total.
func NewBudget(ceilings map[string]int, total int, now func() time.Time) *Budget {
	if now == nil {
		now = time.Now
	}
	c := make(map[string]int, len(ceilings))
	for k, v := range ceilings {
		c[k] = v
	}
	return &Budget{
		ceilings: c,
		total:    total,
		times:    make(map[string][]time.Time),
		now:      now,
	}
}

func (b *Budget) prune(t time.Time) {
	cutoff := t.Add(-budgetWindow)
	for cat, ts := range b.times {
		i := 0
		for i < len(ts) && ts[i].Before(cutoff) {
			i++
		}
		b.times[cat] = ts[i:]
	}
}

// Admit checks the category against its ceiling and the shared total, and
// records the timestamp only if admitted. A false return is a normal
// "not yet" signal.
func (b *Budget) Admit(category string) bool {
	t := b.now()
	b.prune(t)

	if ceiling, ok := b.ceilings[category]; ok && len(b.times[category]) >= ceiling {
		return false
	}
	if b.total > 0 && b.inWindow() >= b.total {
		return false
	}
	b.times[category] = append(b.times[category], t)
	return true
}

func (b *Budget) inWindow() int {
	n := 0
	for _, ts := range b.times {
		n += len(ts)
	}
	return n
}

// InWindow reports admissions of a category inside the current window.
func (b *Budget) InWindow(category string) int {
	b.prune(b.now())
	return len(b.times[category])
}

// Headroom reports how many more admissions the shared total allows.
func (b *Budget) Headroom() int {
	b.prune(b.now())
	if b.total <= 0 {
		return int(^uint(0) >> 1)
	}
	h := b.total - b.inWindow()
	if h < 0 {
		return 0
	}
	return h
}
