// Package progress derives a user-visible progress value from how long a
// workflow stage has been running and whether its backing call has settled.
// It is pure presentation: nothing here feeds back into the workflow.
package progress

import (
	"math"
	"time"
)

// maxUnsettled bounds the displayed value while the real call is still
// outstanding, so the bar never claims completion the backend has not
// delivered.
const maxUnsettled = 99.6

// defaultRamp is how long the final open-ended step takes to reach the
// asymptotic zone.
const defaultRamp = 2 * time.Second

// Step is one cosmetic sub-step of a stage. A zero Duration marks the final
// open-ended step that waits for the real result.
type Step struct {
	Label    string
	Duration time.Duration
}

// Tracker maps elapsed stage time to a display value for a fixed step table.
type Tracker struct {
	steps []Step
	ramp  time.Duration
}

// NewTracker builds a tracker. The last step is expected to be open-ended
// (zero duration); ramp controls how fast that step approaches its bound.
func NewTracker(steps []Step, ramp time.Duration) Tracker {
	if ramp <= 0 {
		ramp = defaultRamp
	}
	return Tracker{steps: steps, ramp: ramp}
}

// Analysis returns the tracker for the analyzing stage.
func Analysis() Tracker {
	return NewTracker([]Step{
		{Label: "Scanning Your Space", Duration: time.Second},
		{Label: "Identifying Features", Duration: time.Second},
		{Label: "Analyzing Environment", Duration: time.Second},
		{Label: "AI Processing", Duration: time.Second},
		{Label: "Plant Recommendations", Duration: time.Second},
		{Label: "Generating Designs"},
	}, defaultRamp)
}

// Generation returns the tracker for the generating stage.
func Generation() Tracker {
	return NewTracker([]Step{
		{Label: "Applying Design Style", Duration: 2 * time.Second},
		{Label: "Adjusting Layout Structure", Duration: 2 * time.Second},
		{Label: "Enhancing Details", Duration: 2 * time.Second},
		{Label: "Final Rendering"},
	}, defaultRamp)
}

// Steps returns the step table for display.
func (t Tracker) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Value returns the display percentage for the given elapsed stage time.
// Fixed steps advance on their timers; the final step ramps toward 99 and
// then creeps asymptotically, never exceeding the unsettled bound, however
// long the backend takes. A settled call snaps to 100.
func (t Tracker) Value(elapsed time.Duration, settled bool) float64 {
	if settled {
		return 100
	}
	if len(t.steps) == 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	slice := 100.0 / float64(len(t.steps))
	var consumed time.Duration
	for i, step := range t.steps {
		if step.Duration <= 0 {
			sub := t.finalStepValue(elapsed - consumed)
			return math.Min(slice*float64(i)+slice*sub/100, maxUnsettled)
		}
		if elapsed < consumed+step.Duration {
			frac := float64(elapsed-consumed) / float64(step.Duration)
			return slice*float64(i) + slice*frac
		}
		consumed += step.Duration
	}
	// No open-ended step in the table; hold just under complete.
	return maxUnsettled
}

// StepIndex returns which sub-step is active for the given elapsed time.
func (t Tracker) StepIndex(elapsed time.Duration) int {
	var consumed time.Duration
	for i, step := range t.steps {
		if step.Duration <= 0 {
			return i
		}
		if elapsed < consumed+step.Duration {
			return i
		}
		consumed += step.Duration
	}
	if len(t.steps) == 0 {
		return 0
	}
	return len(t.steps) - 1
}

// finalStepValue ramps 0..99 over the ramp window, then buffers upward
// asymptotically toward (but never reaching) 100.
func (t Tracker) finalStepValue(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	if elapsed < t.ramp {
		return 99 * float64(elapsed) / float64(t.ramp)
	}
	extra := (elapsed - t.ramp).Seconds()
	return 99 + (maxUnsettled-99)*(1-math.Exp(-extra/3))
}
