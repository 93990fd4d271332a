package engine

import (
	"math"
	"testing"

	"phoenix/internal/model"

	"github.com/stretchr/testify/assert"
)

func closedWithPnL(pnl float64) model.ClosedTrade {
	return model.ClosedTrade{Asset: "BTCUSDT", PnL: pnl}
}

func TestPerformanceEmpty(t *testing.T) {
	p := NewPerformance(10000)
	r := p.Summary()

	assert.Equal(t, 10000.0, r.InitialEquity)
	assert.Equal(t, 10000.0, r.FinalEquity)
	assert.Zero(t, r.Trades)
	assert.Zero(t, r.WinRate)
	assert.Zero(t, r.ProfitFactor)
	assert.Zero(t, r.MaxDrawdown)
}

func TestPerformanceMetrics(t *testing.T) {
	p := NewPerformance(10000)
	p.Add(closedWithPnL(100))
	p.Add(closedWithPnL(-60))
	p.Add(closedWithPnL(-40))
	p.Add(closedWithPnL(200))

	r := p.Summary()
	assert.Equal(t, 4, r.Trades)
	assert.Equal(t, 10200.0, r.FinalEquity)
	assert.Equal(t, 200.0, r.TotalPnL)
	assert.Equal(t, 0.5, r.WinRate)
	assert.InDelta(t, 3.0, r.ProfitFactor, 1e-9)

	// Peak 10100 after the first win, trough 10000 two losses later.
	assert.InDelta(t, 100.0/10100.0, r.MaxDrawdown, 1e-9)
}

func TestPerformanceProfitFactorNoLosses(t *testing.T) {
	p := NewPerformance(10000)
	p.Add(closedWithPnL(100))
	p.Add(closedWithPnL(50))

	r := p.Summary()
	assert.True(t, math.IsInf(r.ProfitFactor, 1))
	assert.Equal(t, 1.0, r.WinRate)
	assert.Zero(t, r.MaxDrawdown)
}

func TestPerformanceCurve(t *testing.T) {
	p := NewPerformance(1000)
	p.Add(closedWithPnL(10))
	p.Add(closedWithPnL(-5))

	assert.Equal(t, []float64{1000, 1010, 1005}, p.Curve())
	assert.Equal(t, 1005.0, p.Equity())
	assert.Len(t, p.Trades(), 2)
}

func TestPerformanceZeroPnLIsNotAWin(t *testing.T) {
	p := NewPerformance(1000)
	p.Add(closedWithPnL(0))

	r := p.Summary()
	assert.Equal(t, 1, r.Trades)
	assert.Zero(t, r.WinRate)
}
