package sources

import (
	"context"
	"fmt"
	"sync"

	"telemetry-hub/src/logger"
	"telemetry-hub/src/pipeline"
)

// SourceManager aggregates IStreamSource instances and owns one pipeline
// stage per source. Sources added while the manager runs start immediately.
type SourceManager struct {
	Sources map[string]IStreamSource
	Logger  *logger.Logger

	stageFactory func() pipeline.Stage
	stages       map[string]pipeline.Stage

	mu         sync.RWMutex
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewSourceManager(log *logger.Logger, stageFactory func() pipeline.Stage) *SourceManager {
	return &SourceManager{
		Sources:      make(map[string]IStreamSource),
		Logger:       log,
		stageFactory: stageFactory,
		stages:       make(map[string]pipeline.Stage),
	}
}

// -----------------------------------------------------------------------------

// AddSource registers a new source and starts it if the manager is running
func (m *SourceManager) AddSource(source IStreamSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)

	if m.ctx != nil && m.ctx.Err() == nil {
		if err := m.startLocked(source); err != nil {
			delete(m.Sources, name)
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// startLocked wires a fresh stage in front of the source and starts it.
func (m *SourceManager) startLocked(source IStreamSource) error {
	stage := m.stageFactory()
	if err := source.Start(m.ctx, stage.Accept, m.wg); err != nil {
		stage.Close()
		return fmt.Errorf("failed to start source %s: %w", source.Name(), err)
	}
	m.stages[source.Name()] = stage
	m.Logger.Info("Started source: %s", source.Name())
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource stops and removes a source
func (m *SourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}

	if err := source.Stop(); err != nil {
		m.Logger.Error("Error stopping source %s: %v", name, err)
	}
	if stage, ok := m.stages[name]; ok {
		stage.Close()
		delete(m.stages, name)
	}

	delete(m.Sources, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

// GetSource retrieves a source by name
func (m *SourceManager) GetSource(name string) (IStreamSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// -----------------------------------------------------------------------------

// GetAllSources returns all registered sources
func (m *SourceManager) GetAllSources() []IStreamSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]IStreamSource, 0, len(m.Sources))
	for _, s := range m.Sources {
		list = append(list, s)
	}
	return list
}

// -----------------------------------------------------------------------------

// Health returns the health flag per source name.
func (m *SourceManager) Health() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health := make(map[string]bool, len(m.Sources))
	for name, s := range m.Sources {
		health[name] = s.Healthy()
	}
	return health
}

// -----------------------------------------------------------------------------

// StartAll starts every registered source under a derived context.
func (m *SourceManager) StartAll(ctx context.Context, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ctx, m.cancelFunc = context.WithCancel(ctx)
	m.wg = wg

	for _, source := range m.Sources {
		if err := m.startLocked(source); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// StopAll cancels every source and flushes every stage.
func (m *SourceManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	for name, stage := range m.stages {
		stage.Close()
		delete(m.stages, name)
	}
	m.Logger.Info("All sources stopped")
}
