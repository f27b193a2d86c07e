package pipeline

import (
	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// A Stage sits between one Stream Source and the Broadcaster and reduces or
// groups the samples flowing through it. Stages push downstream via a Sink
// rather than returning values, because the batcher also emits on a timer
// with no inbound sample driving it.
// -----------------------------------------------------------------------------

type Sink func(models.Sample)

type Stage interface {

	// Accept ingests one sample from the source.
	Accept(s models.Sample)

	// Close flushes any pending state and releases timers.
	Close()
}

// -----------------------------------------------------------------------------
// Passthrough
// -----------------------------------------------------------------------------

// Passthrough forwards every sample unchanged (pipeline mode "none").
type Passthrough struct {
	sink Sink
}

func NewPassthrough(sink Sink) *Passthrough {
	return &Passthrough{sink: sink}
}

func (p *Passthrough) Accept(s models.Sample) { p.sink(s) }

func (p *Passthrough) Close() {}
