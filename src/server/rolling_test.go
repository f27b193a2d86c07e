package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/models"
)

func nTick(n int) models.Sample {
	return models.NewPriceTick("AAPL", float64(n), 100, int64(n))
}

// -----------------------------------------------------------------------------

func TestRollingBufferKeepsMostRecent(t *testing.T) {
	rb := NewRollingBuffer(3)

	for i := 0; i < 10; i++ {
		rb.Append(nTick(i))
	}

	snap := rb.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, int64(7), snap[0].TS())
	assert.Equal(t, int64(9), snap[2].TS())
}

func TestRollingBufferUnderCapacity(t *testing.T) {
	rb := NewRollingBuffer(10)
	rb.Append(nTick(0))
	rb.Append(nTick(1))

	assert.Equal(t, 2, rb.Len())
	snap := rb.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(0), snap[0].TS())
}

// -----------------------------------------------------------------------------

func TestRollingBufferShrinkDropsOldest(t *testing.T) {
	rb := NewRollingBuffer(5)
	for i := 0; i < 5; i++ {
		rb.Append(nTick(i))
	}

	rb.Resize(2)
	snap := rb.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(3), snap[0].TS())
	assert.Equal(t, int64(4), snap[1].TS())
}

func TestRollingBufferGrowKeepsContents(t *testing.T) {
	rb := NewRollingBuffer(2)
	rb.Append(nTick(0))
	rb.Append(nTick(1))

	rb.Resize(4)
	assert.Equal(t, 2, rb.Len())
	rb.Append(nTick(2))
	rb.Append(nTick(3))
	assert.Equal(t, 4, rb.Len())
}

func TestRollingBufferSnapshotIsACopy(t *testing.T) {
	rb := NewRollingBuffer(4)
	rb.Append(nTick(0))

	snap := rb.Snapshot()
	rb.Append(nTick(1))
	assert.Len(t, snap, 1)
}
