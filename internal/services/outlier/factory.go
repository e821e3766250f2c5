package outlier

import (
	"fmt"

	domsvc "PricePulse/internal/domain/service"
	"PricePulse/pkg/config"
)

// NewDetector builds the detector selected by engine.model.type.
func NewDetector(cfg *config.Config) (domsvc.OutlierDetector, error) {
	m := cfg.Engine.Model
	switch m.Type {
	case "", "iforest":
		return NewIsolationForest(
			WithEstimators(m.NEstimators),
			WithMaxSamples(m.MaxSamples),
			WithContamination(m.Contamination),
			WithSeed(m.Seed),
		), nil
	case "zscore":
		return NewZScoreDetector(m.ZScoreThreshold), nil
	case "remote":
		return NewRemoteDetector(m.RemoteURL, m.Timeout, 3), nil
	default:
		return nil, fmt.Errorf("unknown outlier model %q", m.Type)
	}
}

var (
	_ domsvc.OutlierDetector = (*IsolationForest)(nil)
	_ domsvc.OutlierDetector = (*ZScoreDetector)(nil)
	_ domsvc.OutlierDetector = (*RemoteDetector)(nil)
)
