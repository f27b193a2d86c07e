package server

import (
	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// RollingBuffer keeps the most recent samples of one channel, oldest first.
// Unlike a fixed ring it can be resized at runtime, so it stores a plain
// slice and evicts from the head in bulk when over capacity.
// -----------------------------------------------------------------------------

type RollingBuffer struct {
	data     []models.Sample
	capacity int
}

// -----------------------------------------------------------------------------

func NewRollingBuffer(capacity int) *RollingBuffer {
	if capacity <= 0 {
		capacity = 200
	}
	return &RollingBuffer{
		data:     make([]models.Sample, 0, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

func (rb *RollingBuffer) Append(s models.Sample) {
	rb.data = append(rb.data, s)
	rb.evict()
}

// Resize changes the capacity; shrinking drops the oldest samples.
func (rb *RollingBuffer) Resize(capacity int) {
	if capacity <= 0 {
		return
	}
	rb.capacity = capacity
	rb.evict()
}

func (rb *RollingBuffer) evict() {
	if over := len(rb.data) - rb.capacity; over > 0 {
		rb.data = append(rb.data[:0], rb.data[over:]...)
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns a copy of the buffer contents, oldest first.
func (rb *RollingBuffer) Snapshot() []models.Sample {
	out := make([]models.Sample, len(rb.data))
	copy(out, rb.data)
	return out
}

func (rb *RollingBuffer) Len() int { return len(rb.data) }

func (rb *RollingBuffer) Capacity() int { return rb.capacity }
