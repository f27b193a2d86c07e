package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------

type captureSink struct {
	samples []models.Sample
}

func (c *captureSink) accept(s models.Sample) {
	c.samples = append(c.samples, s)
}

func tick(src string, price float64, n int64) models.Sample {
	s := models.NewPriceTick(src, price, 100, n)
	return s
}

// -----------------------------------------------------------------------------

func TestDecimatorPassesEveryNth(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(5, 0, out.accept)

	for i := 0; i < 23; i++ {
		d.Accept(tick("AAPL", 100, int64(i)))
	}

	// 23 samples at factor 5: ceil(23/5) = 5 pass
	assert.Len(t, out.samples, 5)
}

func TestDecimatorFirstSamplePasses(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(10, 0, out.accept)

	d.Accept(tick("AAPL", 100, 0))
	assert.Len(t, out.samples, 1)
}

func TestDecimatorFactorOnePassesAll(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(1, 0, out.accept)

	for i := 0; i < 7; i++ {
		d.Accept(tick("AAPL", 100, int64(i)))
	}
	assert.Len(t, out.samples, 7)
}

// -----------------------------------------------------------------------------

func TestDecimatorCountsPerSource(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(3, 0, out.accept)

	// Interleave two sources; each keeps its own window
	for i := 0; i < 6; i++ {
		d.Accept(tick("AAPL", 100, int64(i)))
		d.Accept(tick("MSFT", 200, int64(i)))
	}

	aapl, msft := 0, 0
	for _, s := range out.samples {
		switch s.SourceID() {
		case "AAPL":
			aapl++
		case "MSFT":
			msft++
		}
	}
	assert.Equal(t, 2, aapl)
	assert.Equal(t, 2, msft)
}

// -----------------------------------------------------------------------------

func TestDecimatorSignificantOverride(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(10, 0.5, out.accept)

	// First sample passes (counter 0) and seeds the reference
	d.Accept(tick("AAPL", 100, 0))
	require.Len(t, out.samples, 1)

	// Small moves inside the window are suppressed
	d.Accept(tick("AAPL", 100.1, 1))
	d.Accept(tick("AAPL", 100.2, 2))
	require.Len(t, out.samples, 1)

	// A >0.5% move from the last sent value passes immediately
	d.Accept(tick("AAPL", 101.0, 3))
	require.Len(t, out.samples, 2)
	assert.Equal(t, 101.0, out.samples[1].(*models.MPriceTick).Price)
}

func TestDecimatorOverrideRestartsWindow(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(4, 1.0, out.accept)

	d.Accept(tick("AAPL", 100, 0)) // passes, seeds
	d.Accept(tick("AAPL", 105, 1)) // significant, passes
	require.Len(t, out.samples, 2)

	// The override counts as this window's emission: the next three
	// quiet samples stay suppressed, the fourth passes.
	d.Accept(tick("AAPL", 105.1, 2))
	d.Accept(tick("AAPL", 105.0, 3))
	d.Accept(tick("AAPL", 105.1, 4))
	require.Len(t, out.samples, 2)
	d.Accept(tick("AAPL", 105.0, 5))
	assert.Len(t, out.samples, 3)
}

func TestDecimatorEventFlagAlwaysPasses(t *testing.T) {
	out := &captureSink{}
	d := NewDecimator(100, 0, out.accept)

	d.Accept(tick("AAPL", 100, 0))
	require.Len(t, out.samples, 1)

	flagged := models.NewPriceTick("AAPL", 100, 100, 1)
	flagged.EventFlag = true
	d.Accept(flagged)
	assert.Len(t, out.samples, 2)
}
