package storage

import (
	"fmt"

	"telemetry-hub/src/logger"
	"telemetry-hub/src/models"
)

// -----------------------------------------------------------------------------

// MArchivedSample is the flattened row shape written to the archive tables.
// The payload column keeps the full wire JSON so rows can be replayed.
type MArchivedSample struct {
	Kind      string
	SourceID  string
	Timestamp int64
	Payload   string
}

// -----------------------------------------------------------------------------

// ISampleStore abstracts the archive backends.
type ISampleStore interface {
	Initialize() error
	SaveSamplesBulk(rows []MArchivedSample) error
	Close() error
}

// -----------------------------------------------------------------------------

// NewStore builds the archive backend selected by the storage config, or
// nil when archiving is disabled.
func NewStore(cfg *models.MConfig, log *logger.Logger) (ISampleStore, error) {
	switch cfg.Storage.DBType {
	case "", "none":
		return nil, nil
	case "sqlite":
		return NewAsyncSQLiteDB(cfg, log)
	case "postgres":
		return NewPostgresDB(cfg, log)
	default:
		return nil, fmt.Errorf("unknown db_type: %s", cfg.Storage.DBType)
	}
}
