// File: internal/gate/dutycycle.go
package gate

import "time"

// Phase is a duty-cycle phase. There are exactly two.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseReleased Phase = "released"
)

// DutyCycle alternates time-boxed Active and Released phases to keep
// continuous low-risk input intermittent. Both durations zero collapses to
// always-Active.
type DutyCycle struct {
	active   time.Duration
	released time.Duration

	phase      Phase
	phaseStart time.Time
	now        func() time.Time
}

// NewDutyCycle starts in the Active phase.
func NewDutyCycle(active, released time.Duration, now func() time.Time) *DutyCycle {
	if now == nil {
		now = time.Now
	}
	return &DutyCycle{
		active:     active,
		released:   released,
		phase:      PhaseActive,
		phaseStart: now(),
		now:        now,
	}
}

func (d *DutyCycle) update() {
	if d.active == 0 && d.released == 0 {
		d.phase = PhaseActive
		return
	}
	t := d.now()
	elapsed := t.Sub(d.phaseStart)
	switch d.phase {
	case PhaseActive:
		if elapsed >= d.active {
			d.phase = PhaseReleased
			d.phaseStart = t
		}
	case PhaseReleased:
		if elapsed >= d.released {
			d.phase = PhaseActive
			d.phaseStart = t
		}
	}
}

// Active reports whether the cycle currently permits continuous input.
func (d *DutyCycle) Active() bool {
	d.update()
	return d.phase == PhaseActive
}

// Info reports the current phase, time spent in it, and its total duration.
func (d *DutyCycle) Info() (phase Phase, elapsed, total time.Duration) {
	d.update()
	elapsed = d.now().Sub(d.phaseStart)
	if elapsed < 0 {
		elapsed = 0
	}
	total = d.active
	if d.phase == PhaseReleased {
		total = d.released
	}
	return d.phase, elapsed, total
}
