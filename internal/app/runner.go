package app

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/engine"
	"phoenix/internal/marketdata"
	"phoenix/internal/model"
	"phoenix/internal/notify"
	"phoenix/internal/session"
	"phoenix/internal/store"

	"go.uber.org/zap"
)

// Runner drives the live scan loop: fetch fresh bars per asset, refresh the
// cached higher-timeframe bias when it goes stale, and feed each asset's
// context through the same simulator step the backtester uses. Assets are
// scanned sequentially; a failure on one asset never blocks the others.
type Runner struct {
	cfg      *config.Config
	clock    *session.Clock
	sim      *engine.Simulator
	bias     *engine.BiasEstimator
	bars     marketdata.BarSource
	store    *store.Store
	notifier *notify.Notifier
	logger   *zap.Logger

	mu       sync.RWMutex
	contexts map[string]*engine.AssetContext
	equity   float64
}

// NewRunner creates a live runner with one context per configured asset.
// With account risk scope all contexts share a single daily state.
func NewRunner(cfg *config.Config, clock *session.Clock, sim *engine.Simulator, bias *engine.BiasEstimator, bars marketdata.BarSource, st *store.Store, notifier *notify.Notifier, logger *zap.Logger) *Runner {
	contexts := make(map[string]*engine.AssetContext, len(cfg.Runner.Assets))
	var shared *engine.DailyRiskState
	if cfg.Risk.Scope == "account" {
		shared = &engine.DailyRiskState{}
	}
	for _, asset := range cfg.Runner.Assets {
		risk := shared
		if risk == nil {
			risk = &engine.DailyRiskState{}
		}
		contexts[asset] = engine.NewAssetContext(asset, risk)
	}
	return &Runner{
		cfg:      cfg,
		clock:    clock,
		sim:      sim,
		bias:     bias,
		bars:     bars,
		store:    st,
		notifier: notifier,
		logger:   logger,
		contexts: contexts,
		equity:   cfg.Runner.Equity,
	}
}

// Run executes scan cycles until ctx is canceled. Outside the session the
// runner idles at a slower cadence instead of hammering the data provider.
func (r *Runner) Run(ctx context.Context) error {
	scanInterval := time.Duration(r.cfg.Runner.SleepSeconds) * time.Second
	idleInterval := 5 * scanInterval

	r.logger.Info("runner_started",
		zap.Strings("assets", r.cfg.Runner.Assets),
		zap.String("timeframe", r.cfg.Runner.OperationalTimeframe),
		zap.Duration("interval", scanInterval),
	)

	for {
		now := time.Now()
		wait := scanInterval
		if r.clock.InSession(now) {
			r.scanAll(ctx, now)
		} else {
			r.logger.Debug("outside_session", zap.Time("now", now))
			wait = idleInterval
		}

		select {
		case <-ctx.Done():
			r.logger.Info("runner_stopped")
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (r *Runner) scanAll(ctx context.Context, now time.Time) {
	for _, asset := range r.cfg.Runner.Assets {
		if err := r.scanAsset(ctx, asset, now); err != nil {
			r.logger.Error("asset_scan_failed",
				zap.String("asset", asset),
				zap.Error(err),
			)
			continue
		}
	}
}

// scanAsset runs one decision step for one asset.
func (r *Runner) scanAsset(ctx context.Context, asset string, now time.Time) error {
	r.mu.RLock()
	actx := r.contexts[asset]
	r.mu.RUnlock()

	biasRefresh := time.Duration(r.cfg.Runner.BiasRefreshHours) * time.Hour
	if actx.BiasStale(now, biasRefresh) {
		htf, err := r.bars.GetBars(ctx, asset, r.cfg.Runner.ContextTimeframe, r.cfg.Runner.BarLimit)
		if err != nil {
			return err
		}
		estimated := r.bias.Estimate(htf)
		r.mu.Lock()
		actx.SetBias(estimated, now)
		r.mu.Unlock()
		r.logger.Info("bias_refreshed",
			zap.String("asset", asset),
			zap.String("bias", string(estimated)),
		)
	}

	window, err := r.bars.GetBars(ctx, asset, r.cfg.Runner.OperationalTimeframe, r.cfg.Runner.BarLimit)
	if err != nil {
		return err
	}

	r.mu.Lock()
	res := r.sim.Step(actx, window, now, r.equity)
	if res.Closed != nil {
		r.equity += res.Closed.PnL
	}
	r.mu.Unlock()

	if res.Closed != nil {
		if err := r.store.InsertClosedTrade(ctx, *res.Closed); err != nil {
			r.logger.Error("closed_trade_persist_failed", zap.String("asset", asset), zap.Error(err))
		}
		r.notifier.TradeClosed(ctx, *res.Closed)
	}
	if res.Opened != nil && res.Best != nil {
		r.emitIntent(ctx, asset, *res.Best, now)
	}
	return nil
}

// emitIntent persists the approved signal and enqueues a trade intent,
// unless the asset already has one pending in the queue.
func (r *Runner) emitIntent(ctx context.Context, asset string, best model.Candidate, now time.Time) {
	active, err := r.store.HasActiveIntent(ctx, asset)
	if err != nil {
		r.logger.Error("intent_lookup_failed", zap.String("asset", asset), zap.Error(err))
		return
	}
	if active {
		r.logger.Warn("intent_skipped_active",
			zap.String("asset", asset),
			zap.String("strategy", best.Strategy),
		)
		return
	}

	if err := r.store.InsertSignal(ctx, model.TechnicalSignal{
		Asset:      asset,
		Timeframe:  r.cfg.Runner.OperationalTimeframe,
		Strategy:   best.Strategy,
		Signal:     string(best.Side),
		EntryPrice: best.EntryPrice,
		StopLoss:   best.StopLoss,
		TakeProfit: best.TakeProfit,
		Details:    "score=" + strconv.Itoa(best.Score),
		CreatedAt:  now,
	}); err != nil {
		r.logger.Error("signal_persist_failed", zap.String("asset", asset), zap.Error(err))
	}

	intent, err := r.store.InsertIntent(ctx, model.TradeIntent{
		Asset:      asset,
		Side:       best.Side,
		EntryPrice: best.EntryPrice,
		StopLoss:   best.StopLoss,
		TakeProfit: best.TakeProfit,
		Score:      best.Score,
		Strategy:   best.Strategy,
		Timeframe:  r.cfg.Runner.OperationalTimeframe,
	})
	if err != nil {
		r.logger.Error("intent_persist_failed", zap.String("asset", asset), zap.Error(err))
		return
	}

	r.logger.Info("intent_created",
		zap.String("id", intent.ID),
		zap.String("asset", asset),
		zap.String("strategy", best.Strategy),
		zap.String("side", string(best.Side)),
		zap.Int("score", best.Score),
	)
	r.notifier.IntentCreated(ctx, intent)
}

// assetStatus is the per-asset slice of the status snapshot.
type assetStatus struct {
	Asset         string           `json:"asset"`
	Bias          model.Bias       `json:"bias"`
	LastBiasCheck time.Time        `json:"lastBiasCheck"`
	Open          *model.OpenTrade `json:"openTrade,omitempty"`
	TradesToday   int              `json:"tradesToday"`
	RealizedPnL   float64          `json:"realizedPnl"`
}

// StatusJSON snapshots the runner state for the API.
func (r *Runner) StatusJSON() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := make([]assetStatus, 0, len(r.contexts))
	for _, asset := range r.cfg.Runner.Assets {
		actx := r.contexts[asset]
		assets = append(assets, assetStatus{
			Asset:         actx.Asset,
			Bias:          actx.Bias,
			LastBiasCheck: actx.LastBiasCheck,
			Open:          actx.Open,
			TradesToday:   actx.Risk.TradesCount,
			RealizedPnL:   actx.Risk.RealizedPnL,
		})
	}
	return json.Marshal(map[string]any{
		"equity":    r.equity,
		"inSession": r.clock.InSession(time.Now()),
		"assets":    assets,
		"timestamp": time.Now(),
	})
}
