package pipeline

import (
	"sync"
	"time"

	"telemetry-hub/src/models"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------
// Batcher accumulates samples and flushes them as one Batch Sample when the
// buffer reaches maxSize OR the oldest pending sample reaches maxAge,
// whichever comes first. The age trigger runs on its own timer so a stalled
// source cannot hold a partial batch indefinitely.
// -----------------------------------------------------------------------------

type Batcher struct {
	maxSize int
	maxAge  time.Duration
	clock   clockwork.Clock
	sig     *significance
	sink    Sink

	mu    sync.Mutex
	buf   []models.Sample
	timer clockwork.Timer
}

// -----------------------------------------------------------------------------

// NewBatcher creates a windowed batcher. The clock is injected so the age
// trigger is testable with a fake clock.
func NewBatcher(maxSize int, maxAge time.Duration, significantPct float64, clock clockwork.Clock, sink Sink) *Batcher {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Batcher{
		maxSize: maxSize,
		maxAge:  maxAge,
		clock:   clock,
		sig:     newSignificance(significantPct),
		sink:    sink,
	}
}

// -----------------------------------------------------------------------------

// Accept appends the sample and flushes on the size bound. A significant
// sample flushes the whole pending buffer, itself included as the newest
// entry, which keeps per-source emission order intact.
func (b *Batcher) Accept(s models.Sample) {
	b.mu.Lock()

	significant := b.sig.check(s)

	b.buf = append(b.buf, s)
	if len(b.buf) == 1 {
		b.armTimerLocked()
	}

	if significant || len(b.buf) >= b.maxSize {
		b.flushLocked()
	}

	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// armTimerLocked starts the age countdown for the sample that just opened
// a fresh window.
func (b *Batcher) armTimerLocked() {
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = b.clock.AfterFunc(b.maxAge, b.flushAged)
}

// flushAged is the timer callback.
func (b *Batcher) flushAged() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// flushLocked emits everything pending as one Batch Sample, empties the
// buffer completely and resets the age timer.
func (b *Batcher) flushLocked() {
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if len(b.buf) == 0 {
		return
	}

	out := b.buf
	b.buf = nil

	for _, s := range out {
		b.sig.markSent(s)
	}

	b.sink(models.NewBatch(out))
}

// -----------------------------------------------------------------------------

// Close flushes any partial batch.
func (b *Batcher) Close() {
	b.mu.Lock()
	b.flushLocked()
	b.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Pending returns the number of buffered samples (test hook).
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
