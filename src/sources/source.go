package sources

import (
	"context"
	"sync"
	"time"

	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
)

// -----------------------------------------------------------------------------
// IStreamSource is the contract every producer satisfies, whether it
// simulates data, bridges a live market feed or ingests a hardware bus.
// The core downstream of the sink is agnostic to the origin.
// -----------------------------------------------------------------------------

type IStreamSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Start begins emitting samples into the sink.
	// ctx: controls the lifecycle (cancellation stops the source)
	// sink: receives every emitted sample (typically a pipeline stage)
	// wg: signals when all of the source's loops have fully stopped
	Start(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source (cancelling the Start context is equivalent)
	Stop() error

	// -----------------------------------------------------------------------------

	// Healthy reports whether the source is currently producing.
	// A degraded live adapter stays attached but reports false.
	Healthy() bool
}

// -----------------------------------------------------------------------------

// emit forwards a sample into the sink and counts it on the process-wide
// message counter feeding the system metrics stream.
func emit(sink pipeline.Sink, s models.Sample) {
	metrics.CountMessage(string(s.Kind()))
	sink(s)
}

// nowMicros returns the current timestamp in microseconds.
func nowMicros() int64 {
	return time.Now().UnixMicro()
}

// -----------------------------------------------------------------------------

// sleepOrDone suspends for the rate-controlled delay, returning false when
// the context is cancelled. Sources never block past cancellation.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
