package pipeline

import (
	"math"

	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------
// Significant-sample override: a sample whose magnitude moved beyond a
// percentage threshold since the last *sent* value, or that carries an
// explicit event flag, always bypasses the reduction policy.
// -----------------------------------------------------------------------------

type significance struct {
	thresholdPct float64
	lastSent     map[string]float64 // per source id
}

func newSignificance(thresholdPct float64) *significance {
	return &significance{
		thresholdPct: thresholdPct,
		lastSent:     make(map[string]float64),
	}
}

// -----------------------------------------------------------------------------

// scalarOf extracts the magnitude used for the threshold test.
func scalarOf(s models.Sample) (float64, bool) {
	switch v := s.(type) {
	case *models.MPriceTick:
		return v.Price, true
	case *models.MTrade:
		return v.Price, true
	case *models.MBookUpdate:
		if len(v.Bids) > 0 {
			return v.Bids[0][0], true
		}
		return 0, false
	case *models.MRawFrame:
		if v.Decoded != nil {
			return v.Decoded.Value, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// -----------------------------------------------------------------------------

// check reports whether the sample must bypass the policy. The first sample
// of a source only seeds the reference value.
func (g *significance) check(s models.Sample) bool {
	if s.Event() {
		return true
	}
	if g.thresholdPct <= 0 {
		return false
	}

	v, ok := scalarOf(s)
	if !ok {
		return false
	}

	last, seen := g.lastSent[s.SourceID()]
	if !seen || last == 0 {
		g.lastSent[s.SourceID()] = v
		return false
	}

	return math.Abs(v-last)/math.Abs(last)*100.0 > g.thresholdPct
}

// -----------------------------------------------------------------------------

// markSent records the value of a sample that went downstream, so the next
// threshold test compares against what the consumer actually saw.
func (g *significance) markSent(s models.Sample) {
	if v, ok := scalarOf(s); ok {
		g.lastSent[s.SourceID()] = v
	}
}
