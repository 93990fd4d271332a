// Package executor consumes the trade-intent queue. It runs as its own
// process so a slow or crashed consumer can never block or duplicate the
// decision core's work: intents are claimed atomically, checked for
// staleness against the live price, sized from a fixed risk budget, and
// transitioned to a terminal status.
package executor

import (
	"context"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/marketdata"
	"phoenix/internal/model"
	"phoenix/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const claimBatch = 10

// Service is the intent-queue consumer.
type Service struct {
	store  *store.Store
	prices marketdata.PriceSource
	cfg    config.ExecutorConfig
	logger *zap.Logger
}

// New creates the executor service.
func New(st *store.Store, prices marketdata.PriceSource, cfg config.ExecutorConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, prices: prices, cfg: cfg, logger: logger}
}

// Run polls the queue until ctx is cancelled. Each cycle first sweeps
// orphaned PROCESSING intents back to NEW, then claims and processes a
// batch. Single-intent failures never stop the loop.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.cfg.PollSeconds) * time.Second)
	defer ticker.Stop()

	s.logger.Info("executor_started",
		zap.Float64("max_slippage", s.cfg.MaxSlippage),
		zap.Float64("risk_per_trade_usd", s.cfg.RiskPerTradeUSD),
		zap.Bool("live_orders", s.cfg.LiveOrdersEnabled),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	stale := time.Duration(s.cfg.StaleAfterMinutes) * time.Minute
	if n, err := s.store.ResetStaleProcessing(ctx, stale); err != nil {
		s.logger.Error("stale_sweep_failed", zap.Error(err))
	} else if n > 0 {
		s.logger.Warn("stale_intents_reset", zap.Int64("count", n))
	}

	intents, err := s.store.ClaimNew(ctx, claimBatch)
	if err != nil {
		s.logger.Error("claim_failed", zap.Error(err))
		return
	}
	for _, intent := range intents {
		s.processIntent(ctx, intent)
	}
}

// processIntent drives one claimed intent to its next status.
func (s *Service) processIntent(ctx context.Context, intent model.TradeIntent) {
	log := s.logger.With(
		zap.String("intent_id", intent.ID),
		zap.String("asset", intent.Asset),
		zap.String("side", string(intent.Side)),
		zap.String("strategy", intent.Strategy),
	)

	price, err := s.prices.LastPrice(ctx, intent.Asset)
	if err != nil {
		// Price lookup failures are transient: hand the intent back to
		// the queue and retry next cycle.
		log.Warn("price_lookup_failed", zap.Error(err))
		s.transition(ctx, log, intent.ID, model.IntentNew)
		return
	}

	slippage := slippageFraction(price, intent.EntryPrice)
	if slippage > s.cfg.MaxSlippage {
		log.Warn("intent_canceled_stale",
			zap.Float64("signal_price", intent.EntryPrice),
			zap.Float64("market_price", price),
			zap.Float64("slippage", slippage),
		)
		s.transition(ctx, log, intent.ID, model.IntentCanceled)
		return
	}

	size := PositionSize(s.cfg.RiskPerTradeUSD, price, intent.StopLoss)
	if !size.IsPositive() {
		log.Warn("intent_canceled_unsizable", zap.String("size", size.String()))
		s.transition(ctx, log, intent.ID, model.IntentCanceled)
		return
	}

	status := model.IntentSimulated
	if s.cfg.LiveOrdersEnabled {
		status = model.IntentExecuted
	}
	log.Info("trade_plan",
		zap.Float64("entry_price", price),
		zap.String("size", size.String()),
		zap.Float64("take_profit", intent.TakeProfit),
		zap.Float64("stop_loss", intent.StopLoss),
		zap.String("timeframe", intent.Timeframe),
		zap.Float64("slippage", slippage),
		zap.String("status", string(status)),
	)
	s.transition(ctx, log, intent.ID, status)
}

func (s *Service) transition(ctx context.Context, log *zap.Logger, id string, status model.IntentStatus) {
	if err := s.store.SetIntentStatus(ctx, id, status); err != nil {
		log.Error("intent_transition_failed", zap.String("to", string(status)), zap.Error(err))
	}
}

// slippageFraction is the relative distance between the live price and the
// signal's entry price.
func slippageFraction(market, entry float64) float64 {
	if entry == 0 {
		return 0
	}
	d := market - entry
	if d < 0 {
		d = -d
	}
	return d / entry
}

// PositionSize divides the per-trade risk budget by the per-unit risk
// (distance from entry to stop) and rounds the quantity down: two decimal
// places for sizes above 10 units, three below.
func PositionSize(riskUSD, entry, stop float64) decimal.Decimal {
	perUnit := entry - stop
	if perUnit < 0 {
		perUnit = -perUnit
	}
	if perUnit == 0 {
		return decimal.Zero
	}
	size := decimal.NewFromFloat(riskUSD / perUnit)
	if size.GreaterThan(decimal.NewFromInt(10)) {
		return size.RoundFloor(2)
	}
	return size.RoundFloor(3)
}
