package pipeline

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------

func batchesOf(out *captureSink) []*models.MBatch {
	batches := make([]*models.MBatch, 0, len(out.samples))
	for _, s := range out.samples {
		batches = append(batches, s.(*models.MBatch))
	}
	return batches
}

// -----------------------------------------------------------------------------

func TestBatcherFlushesOnSize(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(3, time.Second, 0, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0))
	b.Accept(tick("AAPL", 101, 1))
	require.Empty(t, out.samples)

	b.Accept(tick("AAPL", 102, 2))
	batches := batchesOf(out)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Samples, 3)
	assert.Equal(t, 0, b.Pending())
}

func TestBatcherFlushesPartialOnAge(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(100, 250*time.Millisecond, 0, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0))
	require.Empty(t, out.samples)

	clock.Advance(250 * time.Millisecond)

	batches := batchesOf(out)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Samples, 1)
}

// The age countdown starts when the first sample opens a window, not per
// sample: later samples must not postpone the flush.
func TestBatcherAgeCountsFromFirstSample(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(100, 250*time.Millisecond, 0, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0))
	clock.Advance(200 * time.Millisecond)
	b.Accept(tick("AAPL", 101, 1))
	require.Empty(t, out.samples)

	clock.Advance(50 * time.Millisecond)
	batches := batchesOf(out)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Samples, 2)
}

func TestBatcherTimerResetsAfterFlush(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(2, time.Second, 0, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0))
	b.Accept(tick("AAPL", 101, 1)) // size flush
	require.Len(t, out.samples, 1)

	// No pending window: advancing must not emit an empty batch
	clock.Advance(5 * time.Second)
	assert.Len(t, out.samples, 1)

	// A fresh window gets a fresh countdown
	b.Accept(tick("AAPL", 102, 2))
	clock.Advance(time.Second)
	assert.Len(t, out.samples, 2)
}

// -----------------------------------------------------------------------------

func TestBatcherSignificantSampleFlushesImmediately(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(100, time.Minute, 0.5, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0)) // seeds reference
	b.Accept(tick("AAPL", 100.1, 1))
	require.Empty(t, out.samples)

	b.Accept(tick("AAPL", 102, 2)) // 2% move

	batches := batchesOf(out)
	require.Len(t, batches, 1)
	require.Len(t, batches[0].Samples, 3)
	// the significant sample rides out as the newest entry
	assert.Equal(t, 102.0, batches[0].Samples[2].(*models.MPriceTick).Price)
}

func TestBatcherCloseFlushesPending(t *testing.T) {
	out := &captureSink{}
	clock := clockwork.NewFakeClock()
	b := NewBatcher(100, time.Minute, 0, clock, out.accept)

	b.Accept(tick("AAPL", 100, 0))
	b.Close()

	batches := batchesOf(out)
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Samples, 1)
}

func TestBatcherEmptyCloseEmitsNothing(t *testing.T) {
	out := &captureSink{}
	b := NewBatcher(10, time.Second, 0, clockwork.NewFakeClock(), out.accept)
	b.Close()
	assert.Empty(t, out.samples)
}
