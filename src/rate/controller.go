package rate

import (
	"sync/atomic"
	"time"

	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// Controller is the process-wide rate knob: one inter-emission delay per
// stream class, read by every source on each loop iteration. Reads and
// writes are plain atomics so a high-frequency source never takes a lock.
// No history is kept; each Set supersedes the previous value.
// -----------------------------------------------------------------------------

type Controller struct {
	delays [classCount]atomic.Int64 // nanoseconds
	min    time.Duration
	max    time.Duration
}

// -----------------------------------------------------------------------------

const classCount = 5

func classIndex(kind models.StreamKind) int {
	switch kind {
	case models.KindPrice:
		return 0
	case models.KindTrade:
		return 1
	case models.KindBook:
		return 2
	case models.KindSystem:
		return 3
	default:
		return 4 // frame and anything else
	}
}

// -----------------------------------------------------------------------------

// NewController creates a controller with every class at defaultDelay,
// clamped to [min, max].
func NewController(defaultDelay, min, max time.Duration) *Controller {
	c := &Controller{min: min, max: max}
	c.SetAll(defaultDelay)
	return c
}

// -----------------------------------------------------------------------------

// Set updates the delay for one stream class. Out-of-range values are
// clamped to the nearest bound, never rejected; the clamped value is what
// takes effect. The new delay applies from the next emission cycle.
func (c *Controller) Set(kind models.StreamKind, d time.Duration) time.Duration {
	d = c.clamp(d)
	c.delays[classIndex(kind)].Store(int64(d))
	return d
}

// -----------------------------------------------------------------------------

// SetAll updates every stream class at once (the documented single-knob
// behavior of the frequency_ms control message).
func (c *Controller) SetAll(d time.Duration) time.Duration {
	d = c.clamp(d)
	for i := range c.delays {
		c.delays[i].Store(int64(d))
	}
	return d
}

// -----------------------------------------------------------------------------

// Get returns the current delay for a stream class.
func (c *Controller) Get(kind models.StreamKind) time.Duration {
	return time.Duration(c.delays[classIndex(kind)].Load())
}

// -----------------------------------------------------------------------------

func (c *Controller) clamp(d time.Duration) time.Duration {
	if d < c.min {
		return c.min
	}
	if d > c.max {
		return c.max
	}
	return d
}

// -----------------------------------------------------------------------------

// Bounds returns the configured clamp range.
func (c *Controller) Bounds() (time.Duration, time.Duration) {
	return c.min, c.max
}
