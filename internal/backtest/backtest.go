// Package backtest replays bar history through the decision core. The run
// is single-threaded and fully deterministic: one pass, one bar at a time,
// with open-trade management strictly before entry evaluation, exactly as
// the live runner decides.
package backtest

import (
	"time"

	"phoenix/internal/engine"
	"phoenix/internal/model"
	"phoenix/internal/session"

	"go.uber.org/zap"
)

// Runner replays one asset's history.
type Runner struct {
	sim    *engine.Simulator
	bias   *engine.BiasEstimator
	clock  *session.Clock
	logger *zap.Logger
}

// NewRunner creates a backtest runner around a configured simulator.
func NewRunner(sim *engine.Simulator, bias *engine.BiasEstimator, clock *session.Clock, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{sim: sim, bias: bias, clock: clock, logger: logger}
}

// Result is the outcome of one asset's replay.
type Result struct {
	Asset  string
	Report engine.Report
	Trades []model.ClosedTrade
}

// Run replays triggerBars for one asset. Bars before evalFrom are warm-up
// history: they feed the indicators but are never evaluated for entries.
// contextBars is the higher-timeframe series for bias estimation, which is
// refreshed once per calendar day as in the live runner.
func (r *Runner) Run(asset string, triggerBars, contextBars []model.Bar, evalFrom time.Time, initialEquity float64) Result {
	perf := engine.NewPerformance(initialEquity)
	ctx := engine.NewAssetContext(asset, nil)
	lastBiasDay := ""

	for i, bar := range triggerBars {
		now := bar.Time
		if now.Before(evalFrom) {
			continue
		}

		day := r.clock.TradingDay(now)
		if day != lastBiasDay {
			ctx.SetBias(r.bias.Estimate(barsUpTo(contextBars, now)), now)
			lastBiasDay = day
		}

		res := r.sim.Step(ctx, triggerBars[:i+1], now, perf.Equity())
		if res.Closed != nil {
			perf.Add(*res.Closed)
		}
	}

	report := perf.Summary()
	r.logger.Info("backtest_complete",
		zap.String("asset", asset),
		zap.Int("trades", report.Trades),
		zap.Float64("final_equity", report.FinalEquity),
		zap.Float64("win_rate", report.WinRate),
		zap.Float64("profit_factor", report.ProfitFactor),
		zap.Float64("max_drawdown", report.MaxDrawdown),
	)
	return Result{Asset: asset, Report: report, Trades: perf.Trades()}
}

// barsUpTo returns the prefix of bars at or before ts. Bars are already
// time-ordered, so this is a cut, not a filter.
func barsUpTo(bars []model.Bar, ts time.Time) []model.Bar {
	n := len(bars)
	for n > 0 && bars[n-1].Time.After(ts) {
		n--
	}
	return bars[:n]
}
