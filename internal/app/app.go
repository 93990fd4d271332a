// Package app wires the live system together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phoenix/internal/api"
	"phoenix/internal/config"
	"phoenix/internal/engine"
	"phoenix/internal/logging"
	"phoenix/internal/marketdata"
	"phoenix/internal/notify"
	"phoenix/internal/session"
	"phoenix/internal/store"

	"go.uber.org/zap"
)

// App is the application lifecycle manager.
type App struct {
	cfg *config.Config
}

// New creates a new App instance.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Run starts the live runner, optional API server, and signal handling.
func (a *App) Run() error {
	log, err := logging.Build(a.cfg.App.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting phoenix",
		zap.String("version", "0.1.0"),
		zap.String("log_level", a.cfg.App.LogLevel),
	)

	clock, err := session.NewClock(a.cfg.Session.Timezone, a.cfg.Session.Start, a.cfg.Session.End, a.cfg.Session.EODMarginMinutes)
	if err != nil {
		return err
	}

	st, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	md := marketdata.NewBybitClient(
		a.cfg.MarketData.BaseURL,
		a.cfg.MarketData.Category,
		time.Duration(a.cfg.MarketData.TimeoutSeconds)*time.Second,
	)
	notifier := notify.New(a.cfg.Notify.WebhookURL, a.cfg.Notify.Enabled, log)

	rules := engine.NewRules(a.cfg.Risk, clock, log)
	scorer := engine.NewScorer(a.cfg.Scoring, a.cfg.Risk.MinSignalScore, log)
	producers := engine.NewProducers(a.cfg.Strategies, clock.Location())
	bias := engine.NewBiasEstimator(a.cfg.Runner.Bias)
	sim := engine.NewSimulator(clock, rules, scorer, producers, a.cfg.Trailing, a.cfg.Strategies.MeanReversion.ATRLength, log)

	runner := NewRunner(a.cfg, clock, sim, bias, md, st, notifier, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- runner.Run(ctx)
	}()

	if a.cfg.API.Enabled {
		srv := api.NewServer(a.cfg.API.ListenAddress, runner, st, log)
		go func() {
			errCh <- srv.Run(ctx)
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown_signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("fatal_error", zap.Error(err))
		}
	}

	cancel()
	log.Info("phoenix stopped")
	return nil
}
