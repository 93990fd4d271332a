package engine

import (
	"time"

	"phoenix/internal/config"
	"phoenix/internal/session"

	"go.uber.org/zap"
)

// DailyRiskState holds per-day mutable risk counters. One instance exists
// per asset or per account depending on the configured risk scope. Only the
// four sanctioned transitions below (ResetIfNewDay via the gate, OnFilled,
// OnClosedTrade) may mutate it.
type DailyRiskState struct {
	TradingDay   string     `json:"tradingDay"`
	RealizedPnL  float64    `json:"realizedPnl"`
	TradesCount  int        `json:"tradesCount"`
	LastLossTime *time.Time `json:"lastLossTime,omitempty"`
}

// ResetIfNewDay zeroes all counters the first time a call observes a new
// calendar day in the trading timezone. Calling it again on the same day
// is a no-op.
func (s *DailyRiskState) ResetIfNewDay(day string) bool {
	if s.TradingDay == day {
		return false
	}
	s.TradingDay = day
	s.RealizedPnL = 0
	s.TradesCount = 0
	s.LastLossTime = nil
	return true
}

// Denial reasons returned by the risk gate. Informational, not errors.
const (
	ReasonOK             = "OK"
	ReasonOutsideSession = "outside session"
	ReasonTooCloseToEnd  = "too close to session end"
	ReasonMaxTrades      = "max daily trades reached"
	ReasonDailyLossCap   = "daily loss cap reached"
	ReasonCooldown       = "post-loss cooldown active"
	ReasonScoreBelowMin  = "signal score below threshold"
)

// Rules is the intraday risk gate. Guards are evaluated in a fixed order,
// short-circuiting on the first failure, so denial reasons are reproducible
// between backtest and live runs.
type Rules struct {
	clock  *session.Clock
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewRules creates the risk gate from configuration.
func NewRules(cfg config.RiskConfig, clock *session.Clock, logger *zap.Logger) *Rules {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rules{clock: clock, cfg: cfg, logger: logger}
}

// AllowNewTrade evaluates all entry guards for a candidate score.
// The daily reset mutation always runs first, even when a guard denies.
func (r *Rules) AllowNewTrade(now time.Time, equity float64, state *DailyRiskState, score int) (bool, string) {
	if state.ResetIfNewDay(r.clock.TradingDay(now)) {
		r.logger.Info("risk_day_reset", zap.String("trading_day", state.TradingDay))
	}

	if !r.clock.InSession(now) {
		return false, ReasonOutsideSession
	}

	if r.clock.MinutesToClose(now) < r.cfg.MinMinutesBeforeClose {
		return false, ReasonTooCloseToEnd
	}

	if state.TradesCount >= r.cfg.MaxTradesPerDay {
		return false, ReasonMaxTrades
	}

	if equity > 0 && state.RealizedPnL <= -(r.cfg.MaxLossFraction*equity) {
		return false, ReasonDailyLossCap
	}

	if state.LastLossTime != nil {
		cooldownEnd := state.LastLossTime.Add(time.Duration(r.cfg.CooldownMinutes) * time.Minute)
		if now.Before(cooldownEnd) {
			return false, ReasonCooldown
		}
	}

	if score < r.cfg.MinSignalScore {
		return false, ReasonScoreBelowMin
	}

	return true, ReasonOK
}

// OnFilled records a new open trade against the daily count.
func (r *Rules) OnFilled(state *DailyRiskState) {
	state.TradesCount++
}

// OnClosedTrade folds a realized PnL into the daily state and starts the
// cooldown timer on a loss.
func (r *Rules) OnClosedTrade(state *DailyRiskState, pnl float64, now time.Time) {
	state.RealizedPnL += pnl
	if pnl < 0 {
		t := now
		state.LastLossTime = &t
	}
}
