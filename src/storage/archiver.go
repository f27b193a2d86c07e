package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"telemetry-hub/src/broadcast"
	"telemetry-hub/src/logger"
	"telemetry-hub/src/models"
)

const (
	archiverFlushSize     = 500
	archiverFlushInterval = 5 * time.Second
)

// -----------------------------------------------------------------------------
// Archiver tails the broadcaster like any other subscriber and writes what
// it sees to the configured store. It runs off the delivery hot path: a
// slow database makes the archiver lag and eventually skip samples, never
// stall publishing.
// -----------------------------------------------------------------------------

type Archiver struct {
	Store  ISampleStore
	Logger *logger.Logger

	buf        []MArchivedSample
	cancelFunc context.CancelFunc
}

// -----------------------------------------------------------------------------

func NewArchiver(store ISampleStore, logLevel string) *Archiver {
	return &Archiver{
		Store:  store,
		Logger: logger.NewLogger(logLevel, "Archiver"),
	}
}

// -----------------------------------------------------------------------------

func (a *Archiver) Start(ctx context.Context, b *broadcast.Broadcaster, wg *sync.WaitGroup) {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancelFunc = cancel

	sub := b.Subscribe()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer b.Unsubscribe(sub)
		a.run(runCtx, sub)
	}()
}

func (a *Archiver) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
}

// -----------------------------------------------------------------------------

func (a *Archiver) run(ctx context.Context, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(archiverFlushInterval)
	defer ticker.Stop()

	for {
		sample, err := sub.Next(ctx)
		if err != nil {
			a.flush()
			return
		}

		a.append(sample)

		flushDue := len(a.buf) >= archiverFlushSize
		select {
		case <-ticker.C:
			flushDue = true
		default:
		}
		if flushDue {
			a.flush()
		}
	}
}

// -----------------------------------------------------------------------------

func (a *Archiver) append(sample models.Sample) {
	payload, err := json.Marshal(sample)
	if err != nil {
		a.Logger.Error("Failed to marshal sample for archive: %v", err)
		return
	}

	a.buf = append(a.buf, MArchivedSample{
		Kind:      string(sample.Kind()),
		SourceID:  sample.SourceID(),
		Timestamp: sample.TS(),
		Payload:   string(payload),
	})
}

func (a *Archiver) flush() {
	if len(a.buf) == 0 {
		return
	}
	if err := a.Store.SaveSamplesBulk(a.buf); err != nil {
		a.Logger.Error("Archive flush failed, dropping %d rows: %v", len(a.buf), err)
	}
	a.buf = a.buf[:0]
}
