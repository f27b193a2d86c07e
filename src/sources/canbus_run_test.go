package sources

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/models"
)

// End to end over the synthetic bus traffic: the source must keep emitting
// decodable frames and silently absorb its own corrupt ones.
func TestCanBusSourceEmitsDecodedFrames(t *testing.T) {
	src := NewCanBusSource(models.MSourceConfig{
		Name:  "vehicle",
		Type:  "canbus",
		Buses: []string{"can0", "can1"},
	}, fastController(), "ERROR")

	sink := &safeSink{}
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	require.NoError(t, src.Start(ctx, sink.accept, &wg))
	time.Sleep(300 * time.Millisecond)
	cancel()
	wg.Wait()

	samples := sink.snapshot()
	require.NotEmpty(t, samples)

	buses := map[string]bool{}
	for _, s := range samples {
		frame, ok := s.(*models.MRawFrame)
		require.True(t, ok)
		buses[frame.Bus] = true

		require.NotNil(t, frame.Decoded, "all emitted known-id frames decode")
		switch frame.FrameID {
		case FrameEngineRPM:
			assert.InDelta(t, 3600, frame.Decoded.Value, 2900) // 700..6500
		case FrameVehicleSpeed:
			assert.InDelta(t, 110, frame.Decoded.Value, 110) // 0..220
		case FrameEngineTemp:
			assert.InDelta(t, 87.5, frame.Decoded.Value, 27.5) // 60..115
		case FrameBatteryVoltage:
			assert.InDelta(t, 13.15, frame.Decoded.Value, 1.65) // 11.5..14.8
		default:
			t.Fatalf("unexpected frame id 0x%x", frame.FrameID)
		}
	}
	assert.Len(t, buses, 2, "both buses must produce traffic")
}
