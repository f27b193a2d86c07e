package sources

import (
	"fmt"

	"telemetry-hub/src/models"
	"telemetry-hub/src/rate"
	"telemetry-hub/src/sources/live"
)

// -----------------------------------------------------------------------------

// BuildSource constructs the stream source described by srcCfg. The config
// layer has already validated the type-specific fields.
func BuildSource(srcCfg models.MSourceConfig, rc *rate.Controller, logLevel string) (IStreamSource, error) {
	switch srcCfg.Type {
	case "synthetic":
		return NewSyntheticMarketSource(srcCfg, rc, logLevel), nil
	case "live":
		return live.NewBinanceFeedSource(srcCfg, rc, logLevel), nil
	case "canbus":
		return NewCanBusSource(srcCfg, rc, logLevel), nil
	case "system":
		return NewSystemMetricsSource(srcCfg, rc, logLevel), nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", srcCfg.Type)
	}
}
