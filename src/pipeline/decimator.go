package pipeline

import (
	"sync"

	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// Decimator passes through every Nth sample per source id. The counter is a
// uint64 that wraps over the source lifetime; standard wraparound is the
// only overflow semantic.
// -----------------------------------------------------------------------------

type Decimator struct {
	factor   uint64
	counters map[string]uint64
	sig      *significance
	sink     Sink
	mu       sync.Mutex
}

// -----------------------------------------------------------------------------

func NewDecimator(factor int, significantPct float64, sink Sink) *Decimator {
	if factor < 1 {
		factor = 1
	}
	return &Decimator{
		factor:   uint64(factor),
		counters: make(map[string]uint64),
		sig:      newSignificance(significantPct),
		sink:     sink,
	}
}

// -----------------------------------------------------------------------------

// Accept forwards the sample when its per-source counter hits the factor
// boundary. A significant sample is forwarded immediately and restarts the
// window, so the next periodic pass lands a full factor later; two
// overrides inside one window therefore both pass.
func (d *Decimator) Accept(s models.Sample) {
	d.mu.Lock()

	src := s.SourceID()

	if d.sig.check(s) {
		d.counters[src] = 1 // the override is this window's emission
		d.sig.markSent(s)
		d.mu.Unlock()
		d.sink(s)
		return
	}

	c := d.counters[src]
	d.counters[src] = c + 1

	pass := c%d.factor == 0
	if pass {
		d.sig.markSent(s)
	}
	d.mu.Unlock()

	if pass {
		d.sink(s)
	}
}

// -----------------------------------------------------------------------------

func (d *Decimator) Close() {}
