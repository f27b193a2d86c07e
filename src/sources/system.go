package sources

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"telemetry-hub/src/helpers"
	"telemetry-hub/src/logger"
	"telemetry-hub/src/metrics"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
	"telemetry-hub/src/rate"
)

// -----------------------------------------------------------------------------
// SystemMetricsSource emits one system metric per second: process heap
// memory, a smoothed CPU estimate and the process-wide message rate
// computed from the shared emission counter.
// -----------------------------------------------------------------------------

const systemDelayFloor = time.Second

type SystemMetricsSource struct {
	SourceConfig models.MSourceConfig
	Rate         *rate.Controller
	Logger       *logger.Logger

	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewSystemMetricsSource(srcCfg models.MSourceConfig, rc *rate.Controller, logLevel string) *SystemMetricsSource {
	return &SystemMetricsSource{
		SourceConfig: srcCfg,
		Rate:         rc,
		Logger:       logger.NewLogger(logLevel, "SystemSource-"+srcCfg.Name),
	}
}

// -----------------------------------------------------------------------------

func (s *SystemMetricsSource) Name() string  { return s.SourceConfig.Name }
func (s *SystemMetricsSource) Healthy() bool { return true }

func (s *SystemMetricsSource) Stop() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *SystemMetricsSource) Start(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	wg.Add(1)
	go s.run(runCtx, sink, wg)
	return nil
}

// -----------------------------------------------------------------------------

func (s *SystemMetricsSource) run(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) {
	defer wg.Done()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	lastCount := metrics.MessageCount()
	lastAt := time.Now()
	cpu := 20.0

	for {
		// The system class reads the shared knob like every other source
		// but never runs faster than once per second.
		delay := s.Rate.Get(models.KindSystem)
		if delay < systemDelayFloor {
			delay = systemDelayFloor
		}
		if !sleepOrDone(ctx, delay) {
			return
		}

		now := time.Now()
		count := metrics.MessageCount()
		elapsed := now.Sub(lastAt).Seconds()

		var msgRate uint64
		if elapsed > 0 {
			msgRate = uint64(float64(count-lastCount) / elapsed)
		}
		lastCount = count
		lastAt = now

		// Smoothed jitter; a portable per-process CPU probe is not worth
		// the platform surface for a context metric.
		cpu += (rng.Float64()*2 - 1) * 5
		if cpu < 5 {
			cpu = 5
		}
		if cpu > 95 {
			cpu = 95
		}

		emit(sink, models.NewSystemMetric(round2(cpu), helpers.GetProcessMemoryMB(), msgRate, nowMicros()))
	}
}
