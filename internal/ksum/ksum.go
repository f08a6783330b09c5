// Package ksum implements Kahan-compensated summation for bus_time
// progression (spec §4.5 step 2, invariant I2). Naive accumulation drifts
// over long runs; this must not be replaced with a plain running sum.
package ksum

// Accumulator holds a running sum plus its compensation term.
type Accumulator struct {
	sum float64
	c   float64
}

// NewAccumulator starts the accumulator at the given initial value (e.g.
// a simulation's configured start time).
func NewAccumulator(initial float64) Accumulator {
	return Accumulator{sum: initial}
}

// Add advances the accumulator by delta and returns the new total.
func (a *Accumulator) Add(delta float64) float64 {
	y := delta - a.c
	t := a.sum + y
	a.c = (t - a.sum) - y
	a.sum = t
	return a.sum
}

// Value returns the current total without mutating the accumulator.
func (a *Accumulator) Value() float64 { return a.sum }
