package models

// MConfig Structure
type MConfig struct {
	Name      string           `yaml:"name"`
	Host      string           `yaml:"host"`
	Port      int              `yaml:"port"`
	LogLevel  string           `yaml:"log_level"`
	Rate      MRateConfig      `yaml:"rate"`
	Broadcast MBroadcastConfig `yaml:"broadcast"`
	Session   MSessionConfig   `yaml:"session"`
	Pipeline  MPipelineConfig  `yaml:"pipeline"`
	Sources   []MSourceConfig  `yaml:"sources"`
	Storage   MStorageConfig   `yaml:"storage"`
}

// MRateConfig bounds the shared inter-emission delay knob.
type MRateConfig struct {
	DefaultMs int `yaml:"default_ms"`
	MinMs     int `yaml:"min_ms"`
	MaxMs     int `yaml:"max_ms"`
}

type MBroadcastConfig struct {
	Capacity int `yaml:"capacity"`
}

type MSessionConfig struct {
	BufferSize    int     `yaml:"buffer_size"`     // rolling buffer cap per channel
	ControlPerSec float64 `yaml:"control_per_sec"` // control-message rate limit
	ControlBurst  int     `yaml:"control_burst"`
}

// MPipelineConfig selects the reduction policy between sources and the bus.
// Mode is one of "none", "decimate", "batch".
type MPipelineConfig struct {
	Mode             string  `yaml:"mode"`
	DecimationFactor int     `yaml:"decimation_factor"`
	BatchMaxSize     int     `yaml:"batch_max_size"`
	BatchMaxAgeMs    int     `yaml:"batch_max_age_ms"`
	SignificantPct   float64 `yaml:"significant_pct"` // e.g. 0.5 = 0.5% move always passes
}

// MSourceConfig doubles as the admin API payload, hence the json tags.
type MSourceConfig struct {
	Name        string             `yaml:"name" json:"name"`
	Type        string             `yaml:"type" json:"type"` // synthetic | live | canbus | system
	Symbols     []string           `yaml:"symbols" json:"symbols,omitempty"`
	StartPrices map[string]float64 `yaml:"start_prices" json:"start_prices,omitempty"`
	URL         string             `yaml:"url" json:"url,omitempty"`     // live feed endpoint
	Buses       []string           `yaml:"buses" json:"buses,omitempty"` // canbus bus names
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // none | sqlite | postgres
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}
