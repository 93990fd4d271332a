package engine

import (
	"time"

	"phoenix/internal/config"
	"phoenix/internal/model"
)

// Producer is a pure signal detector over a bar window. Implementations
// must degrade to an empty slice on insufficient history or undefined
// indicator values, never error. Producers are read-only over the window
// and independent of each other.
type Producer interface {
	Name() string
	Produce(window []model.Bar, bias model.Bias) []model.Candidate
}

// Strategy tags. The VWAP reversion tag is also the marker the scorer uses
// to penalize counter-trend reversion candidates.
const (
	StrategyMeanReversion = "MeanReversion"
	StrategyMomentum      = "Momentum"
	StrategyVWAPReversion = "VWAP-Reversion"
	StrategySqueeze       = "BB-Squeeze-Breakout"
)

// NewProducers builds the producer list from configuration. The slice order
// is the fixed evaluation order and the selection tie-break order, so it
// must stay deterministic across backtest and live runs.
func NewProducers(cfg config.StrategiesConfig, loc *time.Location) []Producer {
	out := make([]Producer, 0, 4)
	if cfg.MeanReversion.Enabled {
		out = append(out, NewMeanReversion(cfg.MeanReversion))
	}
	if cfg.Momentum.Enabled {
		out = append(out, NewMomentum(cfg.Momentum))
	}
	if cfg.VWAPReversion.Enabled {
		out = append(out, NewVWAPReversion(cfg.VWAPReversion, loc))
	}
	if cfg.Squeeze.Enabled {
		out = append(out, NewSqueeze(cfg.Squeeze))
	}
	return out
}
