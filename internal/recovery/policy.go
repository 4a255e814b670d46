// Package recovery computes the next memory ceiling after an out-of-memory exit.
package recovery

import "math"

const (
	// Growth is the multiplicative step applied to the previous ceiling
	Growth = 1.5
	// MinStepMB is the smallest increase, so small ceilings grow meaningfully
	MinStepMB = 2048
)

// NextMemory returns max(previous*1.5, previous+2048) rounded to the nearest MB.
// The result is always strictly greater than previous. There is no upper bound.
func NextMemory(previousMB int) int {
	scaled := int(math.Round(float64(previousMB) * Growth))
	stepped := previousMB + MinStepMB
	if scaled > stepped {
		return scaled
	}
	return stepped
}

// Step describes one recovery decision
type Step struct {
	PreviousMB int
	NextMB     int
}

// Plan returns the step for a previous ceiling. ok is false when there is no
// baseline to grow from.
func Plan(previousMB int) (Step, bool) {
	if previousMB <= 0 {
		return Step{}, false
	}
	return Step{PreviousMB: previousMB, NextMB: NextMemory(previousMB)}, true
}

// ExceedsSystem reports whether the step goes beyond total system memory
func (s Step) ExceedsSystem(systemMB int) bool {
	return systemMB > 0 && s.NextMB > systemMB
}
