package config

import (
	"fmt"
	"os"

	"telemetry-hub/src/models"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Defaults matching the documented behavior: 50ms base delay (~20 Hz),
// clamp range 10..1000ms, broadcaster capacity 500.
const (
	DefaultRateMs        = 50
	DefaultRateMinMs     = 10
	DefaultRateMaxMs     = 1000
	DefaultBusCapacity   = 500
	DefaultBufferSize    = 200
	DefaultBatchSize     = 20
	DefaultBatchAgeMs    = 250
	DefaultControlPerSec = 5.0
	DefaultControlBurst  = 10
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// applyDefaults fills zero-valued tunables so a minimal YAML file works.
func (c *Config) applyDefaults() {
	if c.Rate.DefaultMs == 0 {
		c.Rate.DefaultMs = DefaultRateMs
	}
	if c.Rate.MinMs == 0 {
		c.Rate.MinMs = DefaultRateMinMs
	}
	if c.Rate.MaxMs == 0 {
		c.Rate.MaxMs = DefaultRateMaxMs
	}
	if c.Broadcast.Capacity == 0 {
		c.Broadcast.Capacity = DefaultBusCapacity
	}
	if c.Session.BufferSize == 0 {
		c.Session.BufferSize = DefaultBufferSize
	}
	if c.Session.ControlPerSec == 0 {
		c.Session.ControlPerSec = DefaultControlPerSec
	}
	if c.Session.ControlBurst == 0 {
		c.Session.ControlBurst = DefaultControlBurst
	}
	if c.Pipeline.Mode == "" {
		c.Pipeline.Mode = "none"
	}
	if c.Pipeline.BatchMaxSize == 0 {
		c.Pipeline.BatchMaxSize = DefaultBatchSize
	}
	if c.Pipeline.BatchMaxAgeMs == 0 {
		c.Pipeline.BatchMaxAgeMs = DefaultBatchAgeMs
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "none"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Rate bounds
	if c.Rate.MinMs <= 0 {
		return fmt.Errorf("rate min_ms must be greater than 0")
	}
	if c.Rate.MaxMs < c.Rate.MinMs {
		return fmt.Errorf("rate max_ms (%d) must be >= min_ms (%d)", c.Rate.MaxMs, c.Rate.MinMs)
	}

	if c.Broadcast.Capacity <= 0 {
		return fmt.Errorf("broadcast capacity must be greater than 0")
	}
	if c.Session.BufferSize <= 0 {
		return fmt.Errorf("session buffer_size must be greater than 0")
	}

	// Pipeline policy
	switch c.Pipeline.Mode {
	case "none":
	case "decimate":
		if c.Pipeline.DecimationFactor <= 0 {
			return fmt.Errorf("decimation_factor must be greater than 0 in decimate mode")
		}
	case "batch":
		if c.Pipeline.BatchMaxSize <= 0 {
			return fmt.Errorf("batch_max_size must be greater than 0 in batch mode")
		}
		if c.Pipeline.BatchMaxAgeMs <= 0 {
			return fmt.Errorf("batch_max_age_ms must be greater than 0 in batch mode")
		}
	default:
		return fmt.Errorf("unknown pipeline mode: %s", c.Pipeline.Mode)
	}
	if c.Pipeline.SignificantPct < 0 {
		return fmt.Errorf("significant_pct cannot be negative")
	}

	// Sources
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one stream source must be configured")
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("source %d must have a name", i)
		}
		switch src.Type {
		case "synthetic":
			if len(src.Symbols) == 0 {
				return fmt.Errorf("synthetic source '%s' must have at least one symbol", src.Name)
			}
		case "live":
			if src.URL == "" {
				return fmt.Errorf("live source '%s' must have a url", src.Name)
			}
		case "canbus":
			if len(src.Buses) == 0 {
				return fmt.Errorf("canbus source '%s' must have at least one bus", src.Name)
			}
		case "system":
		default:
			return fmt.Errorf("source '%s' has unknown type: %s", src.Name, src.Type)
		}
	}

	// Storage backend
	switch c.Storage.DBType {
	case "none", "postgres":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	default:
		return fmt.Errorf("unknown db_type: %s", c.Storage.DBType)
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
