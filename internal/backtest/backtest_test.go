package backtest

import (
	"testing"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/engine"
	"phoenix/internal/model"
	"phoenix/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSignal emits the same long candidate on every bar.
type fixedSignal struct{}

func (fixedSignal) Name() string { return "fixed" }

func (fixedSignal) Produce(_ []model.Bar, _ model.Bias) []model.Candidate {
	return []model.Candidate{{
		Side:       model.SideLong,
		EntryPrice: 110,
		StopLoss:   100,
		TakeProfit: 120,
		Score:      88,
		Strategy:   "fixed",
	}}
}

func testRunner(t *testing.T) (*Runner, *session.Clock) {
	t.Helper()
	clock, err := session.NewClock("Europe/Rome", "09:00", "17:30", 15)
	require.NoError(t, err)

	rules := engine.NewRules(config.RiskConfig{
		MaxLossFraction:       0.02,
		MaxTradesPerDay:       5,
		CooldownMinutes:       0,
		MinMinutesBeforeClose: 15,
		MinSignalScore:        70,
		Scope:                 "per_asset",
	}, clock, nil)
	scorer := engine.NewScorer(config.ScoringConfig{AlignmentBonus: 10, ReversionPenalty: 15}, 70, nil)
	sim := engine.NewSimulator(clock, rules, scorer, []engine.Producer{fixedSignal{}}, config.TrailingConfig{}, 14, nil)
	bias := engine.NewBiasEstimator(config.BiasConfig{EMALength: 50, ADXLength: 14, ADXThreshold: 20})
	return NewRunner(sim, bias, clock, nil), clock
}

func dayBar(t *testing.T, day, hour int, high, low, close float64) model.Bar {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	return model.Bar{
		Time:   time.Date(2026, 3, day, hour, 0, 0, 0, loc),
		Open:   close,
		High:   high,
		Low:    low,
		Close:  close,
		Volume: 1000,
	}
}

func TestRunReplaysFullLifecycle(t *testing.T) {
	runner, clock := testRunner(t)
	loc := clock.Location()
	evalFrom := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	trigger := []model.Bar{
		// Warm-up bar from the previous day: never evaluated.
		dayBar(t, 9, 12, 112, 108, 110),
		// Opens a trade.
		dayBar(t, 10, 10, 112, 108, 110),
		// Hits the target.
		dayBar(t, 10, 11, 121, 105, 118),
		// Re-enters on the next bar.
		dayBar(t, 10, 12, 112, 108, 110),
		// Hits the stop.
		dayBar(t, 10, 13, 112, 99, 101),
	}

	result := runner.Run("BTCUSDT", trigger, nil, evalFrom, 10000)

	require.Len(t, result.Trades, 2)
	assert.Equal(t, model.CloseTakeProfit, result.Trades[0].Reason)
	assert.Equal(t, 10.0, result.Trades[0].PnL)
	assert.Equal(t, model.CloseStopLoss, result.Trades[1].Reason)
	assert.Equal(t, -10.0, result.Trades[1].PnL)

	assert.Equal(t, 2, result.Report.Trades)
	assert.Equal(t, 0.0, result.Report.TotalPnL)
	assert.Equal(t, 10000.0, result.Report.FinalEquity)
	assert.Equal(t, 0.5, result.Report.WinRate)
}

func TestRunFlattensAtEndOfDay(t *testing.T) {
	runner, clock := testRunner(t)
	loc := clock.Location()
	evalFrom := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	open := dayBar(t, 10, 10, 112, 108, 110)
	// Neither level trades; the bar sits inside the flatten window.
	flatten := model.Bar{
		Time:   time.Date(2026, 3, 10, 17, 20, 0, 0, loc),
		Open:   111,
		High:   113,
		Low:    109,
		Close:  112,
		Volume: 1000,
	}

	result := runner.Run("BTCUSDT", []model.Bar{open, flatten}, nil, evalFrom, 10000)

	require.Len(t, result.Trades, 1)
	assert.Equal(t, model.CloseEODFlatten, result.Trades[0].Reason)
	assert.Equal(t, 112.0, result.Trades[0].ExitPrice)
}

func TestRunSkipsBarsBeforeEvalFrom(t *testing.T) {
	runner, clock := testRunner(t)
	loc := clock.Location()
	// Evaluation starts after all supplied bars.
	evalFrom := time.Date(2026, 4, 1, 0, 0, 0, 0, loc)

	result := runner.Run("BTCUSDT", []model.Bar{dayBar(t, 10, 10, 112, 108, 110)}, nil, evalFrom, 10000)
	assert.Empty(t, result.Trades)
	assert.Equal(t, 10000.0, result.Report.FinalEquity)
}
