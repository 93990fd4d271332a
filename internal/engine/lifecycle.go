package engine

import (
	"time"

	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
	"phoenix/internal/session"

	"go.uber.org/zap"
)

// Simulator runs the bar-by-bar trade lifecycle for one asset context:
// manage the open trade first, then evaluate a new entry. The same Step is
// driven by the backtester over history and by the live runner over fresh
// bars, which is what keeps the two paths decision-identical.
type Simulator struct {
	clock     *session.Clock
	rules     *Rules
	scorer    *Scorer
	producers []Producer
	trailing  config.TrailingConfig
	atrLength int
	logger    *zap.Logger
}

// NewSimulator wires the decision core together.
func NewSimulator(clock *session.Clock, rules *Rules, scorer *Scorer, producers []Producer, trailing config.TrailingConfig, atrLength int, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		clock:     clock,
		rules:     rules,
		scorer:    scorer,
		producers: producers,
		trailing:  trailing,
		atrLength: atrLength,
		logger:    logger,
	}
}

// StepResult reports what one bar did to the context.
type StepResult struct {
	Opened *model.OpenTrade
	Closed *model.ClosedTrade
	// Best is the selected candidate, set even when the gate denied it.
	Best         *model.Candidate
	DeniedReason string
}

// Step advances one bar. The window's last bar is the bar being evaluated
// and now is its decision timestamp. Open-trade management strictly
// precedes new-entry evaluation, and a trade closed on this bar may not
// re-enter on the same bar.
func (s *Simulator) Step(ctx *AssetContext, window []model.Bar, now time.Time, equity float64) StepResult {
	var res StepResult
	if len(window) == 0 {
		return res
	}
	bar := window[len(window)-1]
	ctx.Risk.ResetIfNewDay(s.clock.TradingDay(now))

	if ctx.Open != nil {
		atr := indicator.Last(indicator.ATR(window, s.atrLength))
		if s.trailing.Enabled {
			UpdateTrailingStop(ctx.Open, bar, atr, s.trailing.ATRMult)
		}
		if closed := s.evaluateClose(ctx.Open, bar, now); closed != nil {
			s.rules.OnClosedTrade(ctx.Risk, closed.PnL, now)
			ctx.Open = nil
			res.Closed = closed
			s.logger.Debug("trade_closed",
				zap.String("asset", closed.Asset),
				zap.String("reason", string(closed.Reason)),
				zap.Float64("pnl", closed.PnL),
			)
			return res
		}
		return res
	}

	if !s.clock.InSession(now) || s.clock.IsEODWindow(now) {
		return res
	}

	candidates := s.scorer.Collect(s.producers, window, ctx.Bias)
	best, ok := s.scorer.SelectBest(candidates)
	if !ok {
		return res
	}
	res.Best = &best

	allowed, reason := s.rules.AllowNewTrade(now, equity, ctx.Risk, best.Score)
	if !allowed {
		res.DeniedReason = reason
		s.logger.Debug("entry_denied",
			zap.String("asset", ctx.Asset),
			zap.String("strategy", best.Strategy),
			zap.String("reason", reason),
		)
		return res
	}

	s.rules.OnFilled(ctx.Risk)
	atr := indicator.Last(indicator.ATR(window, s.atrLength))
	if !indicator.Defined(atr) {
		atr = 0
	}
	trade := &model.OpenTrade{
		Asset:      ctx.Asset,
		Side:       best.Side,
		EntryPrice: best.EntryPrice,
		StopLoss:   best.StopLoss,
		TakeProfit: best.TakeProfit,
		Strategy:   best.Strategy,
		EntryTime:  now,
		InitialATR: atr,
	}
	ctx.Open = trade
	res.Opened = trade
	s.logger.Debug("trade_opened",
		zap.String("asset", ctx.Asset),
		zap.String("strategy", best.Strategy),
		zap.String("side", string(best.Side)),
		zap.Int("score", best.Score),
	)
	return res
}

// evaluateClose checks the close conditions in their fixed order: stop
// touch, then target touch, then EOD flatten. The stop is checked before
// the target so a bar touching both closes at the stop.
func (s *Simulator) evaluateClose(t *model.OpenTrade, bar model.Bar, now time.Time) *model.ClosedTrade {
	var reason model.CloseReason
	var exit float64

	switch t.Side {
	case model.SideLong:
		if bar.Low <= t.StopLoss {
			reason, exit = stopReason(t), t.StopLoss
		} else if bar.High >= t.TakeProfit {
			reason, exit = model.CloseTakeProfit, t.TakeProfit
		}
	case model.SideShort:
		if bar.High >= t.StopLoss {
			reason, exit = stopReason(t), t.StopLoss
		} else if bar.Low <= t.TakeProfit {
			reason, exit = model.CloseTakeProfit, t.TakeProfit
		}
	}

	if reason == "" && s.clock.IsEODWindow(now) {
		reason, exit = model.CloseEODFlatten, bar.Close
	}
	if reason == "" {
		return nil
	}

	return &model.ClosedTrade{
		Asset:      t.Asset,
		Side:       t.Side,
		EntryPrice: t.EntryPrice,
		ExitPrice:  exit,
		StopLoss:   t.StopLoss,
		TakeProfit: t.TakeProfit,
		Strategy:   t.Strategy,
		EntryTime:  t.EntryTime,
		ExitTime:   now,
		PnL:        model.PnL(t.Side, t.EntryPrice, exit),
		Reason:     reason,
	}
}

// stopReason distinguishes an original stop from one the trailing updater
// ratcheted.
func stopReason(t *model.OpenTrade) model.CloseReason {
	if t.Ratcheted {
		return model.CloseTrailingStop
	}
	return model.CloseStopLoss
}

// UpdateTrailingStop ratchets the protective stop toward the trade's favor
// using the current ATR, or the trade's entry-time ATR when the current
// value is undefined. The stop never loosens. Returns true if it moved.
func UpdateTrailingStop(t *model.OpenTrade, bar model.Bar, atr float64, mult float64) bool {
	if !indicator.Defined(atr) || atr <= 0 {
		atr = t.InitialATR
	}
	if atr <= 0 {
		return false
	}
	switch t.Side {
	case model.SideLong:
		if candidate := bar.High - mult*atr; candidate > t.StopLoss {
			t.StopLoss = candidate
			t.Ratcheted = true
			return true
		}
	case model.SideShort:
		if candidate := bar.Low + mult*atr; candidate < t.StopLoss {
			t.StopLoss = candidate
			t.Ratcheted = true
			return true
		}
	}
	return false
}
