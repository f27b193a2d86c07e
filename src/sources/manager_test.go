package sources

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telemetry-hub/src/logger"
	"telemetry-hub/src/models"
	"telemetry-hub/src/pipeline"
)

// -----------------------------------------------------------------------------

// stubSource implements IStreamSource without goroutines: Start captures
// the sink so the test can push samples through the manager's stage.
type stubSource struct {
	name    string
	healthy bool

	mu      sync.Mutex
	sink    pipeline.Sink
	started bool
	stopped bool
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Start(ctx context.Context, sink pipeline.Sink, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
	s.started = true
	return nil
}

func (s *stubSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return nil
}

func (s *stubSource) Healthy() bool { return s.healthy }

// -----------------------------------------------------------------------------

func newTestManager(sink *safeSink) *SourceManager {
	return NewSourceManager(logger.NewLogger("ERROR", "test"), func() pipeline.Stage {
		return pipeline.NewPassthrough(sink.accept)
	})
}

// -----------------------------------------------------------------------------

func TestManagerRejectsDuplicateNames(t *testing.T) {
	m := newTestManager(&safeSink{})

	require.NoError(t, m.AddSource(&stubSource{name: "a"}))
	err := m.AddSource(&stubSource{name: "a"})
	assert.Error(t, err)
}

func TestManagerStartAllWiresStages(t *testing.T) {
	sink := &safeSink{}
	m := newTestManager(sink)

	src := &stubSource{name: "a", healthy: true}
	require.NoError(t, m.AddSource(src))
	assert.False(t, src.started, "sources stay idle until StartAll")

	var wg sync.WaitGroup
	require.NoError(t, m.StartAll(context.Background(), &wg))
	require.True(t, src.started)

	// samples flow through the per-source stage into the shared sink
	src.sink(models.NewPriceTick("X", 1, 1, 1))
	assert.Len(t, sink.snapshot(), 1)

	m.StopAll()
}

func TestManagerAddAfterStartRunsImmediately(t *testing.T) {
	m := newTestManager(&safeSink{})

	var wg sync.WaitGroup
	require.NoError(t, m.StartAll(context.Background(), &wg))

	src := &stubSource{name: "late"}
	require.NoError(t, m.AddSource(src))
	assert.True(t, src.started)

	m.StopAll()
}

// -----------------------------------------------------------------------------

func TestManagerRemoveStopsSource(t *testing.T) {
	m := newTestManager(&safeSink{})

	src := &stubSource{name: "a"}
	require.NoError(t, m.AddSource(src))
	require.NoError(t, m.RemoveSource("a"))
	assert.True(t, src.stopped)

	_, err := m.GetSource("a")
	assert.Error(t, err)

	assert.Error(t, m.RemoveSource("a"))
}

func TestManagerHealth(t *testing.T) {
	m := newTestManager(&safeSink{})

	require.NoError(t, m.AddSource(&stubSource{name: "up", healthy: true}))
	require.NoError(t, m.AddSource(&stubSource{name: "down", healthy: false}))

	health := m.Health()
	assert.True(t, health["up"])
	assert.False(t, health["down"])
	assert.Len(t, m.GetAllSources(), 2)
}

// -----------------------------------------------------------------------------

func TestBuildSourceTypes(t *testing.T) {
	rc := fastController()

	src, err := BuildSource(models.MSourceConfig{Name: "m", Type: "synthetic", Symbols: []string{"X/Y"}}, rc, "ERROR")
	require.NoError(t, err)
	assert.IsType(t, &SyntheticMarketSource{}, src)

	src, err = BuildSource(models.MSourceConfig{Name: "s", Type: "system"}, rc, "ERROR")
	require.NoError(t, err)
	assert.IsType(t, &SystemMetricsSource{}, src)

	src, err = BuildSource(models.MSourceConfig{Name: "c", Type: "canbus", Buses: []string{"can0"}}, rc, "ERROR")
	require.NoError(t, err)
	assert.IsType(t, &CanBusSource{}, src)

	_, err = BuildSource(models.MSourceConfig{Name: "x", Type: "smoke-signals"}, rc, "ERROR")
	assert.Error(t, err)
}
