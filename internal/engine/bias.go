package engine

import (
	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
)

// BiasEstimator classifies a higher-timeframe bar series into
// BULLISH/BEARISH/SIDEWAYS using a trend EMA and ADX strength.
// Callers refresh the result on a coarse cadence; the decision core treats
// it as an externally supplied input.
type BiasEstimator struct {
	emaLength    int
	adxLength    int
	adxThreshold float64
}

// NewBiasEstimator creates a bias estimator from configuration.
func NewBiasEstimator(cfg config.BiasConfig) *BiasEstimator {
	return &BiasEstimator{
		emaLength:    cfg.EMALength,
		adxLength:    cfg.ADXLength,
		adxThreshold: cfg.ADXThreshold,
	}
}

// Estimate returns the market bias for a context-timeframe series.
// Insufficient history or weak trend strength yields SIDEWAYS.
func (e *BiasEstimator) Estimate(bars []model.Bar) model.Bias {
	if len(bars) < e.emaLength {
		return model.BiasSideways
	}

	closes := indicator.Closes(bars)
	ema := indicator.Last(indicator.EMA(closes, e.emaLength))
	adx := indicator.Last(indicator.ADX(bars, e.adxLength))
	if !indicator.Defined(ema) || !indicator.Defined(adx) {
		return model.BiasSideways
	}

	if adx <= e.adxThreshold {
		return model.BiasSideways
	}
	if bars[len(bars)-1].Close > ema {
		return model.BiasBullish
	}
	return model.BiasBearish
}
