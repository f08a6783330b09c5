// Package benchmark accumulates per-step timing counters (§4.9/C9) using
// Welford's running-average algorithm, so the accumulators never need the
// full sample history and stay numerically stable over long runs.
package benchmark

import "github.com/boschglobal/dse.modelc-sub000/internal/mono"

// Average is a single Welford running mean/variance accumulator over a
// stream of int64 nanosecond durations.
type Average struct {
	count int64
	mean  float64
	m2    float64
}

// Add folds one more sample (nanoseconds) into the running average.
func (a *Average) Add(sampleNs int64) {
	a.count++
	x := float64(sampleNs)
	delta := x - a.mean
	a.mean += delta / float64(a.count)
	a.m2 += delta * (x - a.mean)
}

func (a *Average) Count() int64 { return a.count }

// MeanNs returns the running mean in nanoseconds, 0 if no samples yet.
func (a *Average) MeanNs() float64 { return a.mean }

// Variance returns the running (population) variance in ns^2.
func (a *Average) Variance() float64 {
	if a.count == 0 {
		return 0
	}
	return a.m2 / float64(a.count)
}

// Counters tracks the four timers a model reports per step in its
// BenchmarkCounters (wire.BenchmarkCounters): wall time inside the
// model's own step function, wall time spent in marshalling, wall time
// blocked on network I/O, and wall time blocked waiting on the bus to
// resolve.
type Counters struct {
	Execute    Average
	Processing Average
	Network    Average
	BusWait    Average
}

// Timer measures one named phase via mono.NanoTime and folds the
// elapsed duration into the matching Average on Stop.
type Timer struct {
	start int64
	avg   *Average
}

func (c *Counters) StartExecute() Timer    { return start(&c.Execute) }
func (c *Counters) StartProcessing() Timer { return start(&c.Processing) }
func (c *Counters) StartNetwork() Timer    { return start(&c.Network) }
func (c *Counters) StartBusWait() Timer    { return start(&c.BusWait) }

func start(avg *Average) Timer { return Timer{start: mono.NanoTime(), avg: avg} }

func (t Timer) Stop() { t.avg.Add(mono.NanoTime() - t.start) }
