package engine

import (
	"testing"

	"phoenix/internal/config"
	"phoenix/internal/model"

	"github.com/stretchr/testify/assert"
)

func testBiasEstimator() *BiasEstimator {
	return NewBiasEstimator(config.BiasConfig{
		EMALength:    3,
		ADXLength:    2,
		ADXThreshold: 20,
	})
}

func TestEstimateBullish(t *testing.T) {
	e := testBiasEstimator()
	bars := barsFromCloses([]float64{100, 102, 104, 106, 108, 110, 112, 114}, nil)
	assert.Equal(t, model.BiasBullish, e.Estimate(bars))
}

func TestEstimateBearish(t *testing.T) {
	e := testBiasEstimator()
	bars := barsFromCloses([]float64{114, 112, 110, 108, 106, 104, 102, 100}, nil)
	assert.Equal(t, model.BiasBearish, e.Estimate(bars))
}

func TestEstimateSidewaysOnWeakTrend(t *testing.T) {
	e := testBiasEstimator()
	// A perfectly flat series has no directional movement at all.
	bars := barsFromCloses([]float64{100, 100, 100, 100, 100, 100, 100, 100}, nil)
	assert.Equal(t, model.BiasSideways, e.Estimate(bars))
}

func TestEstimateSidewaysOnShortHistory(t *testing.T) {
	e := testBiasEstimator()
	assert.Equal(t, model.BiasSideways, e.Estimate(nil))
	assert.Equal(t, model.BiasSideways, e.Estimate(barsFromCloses([]float64{100, 101}, nil)))
}
