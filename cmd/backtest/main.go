// Package main replays historical bars through the decision core and
// reports per-asset performance.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"phoenix/internal/backtest"
	"phoenix/internal/config"
	"phoenix/internal/engine"
	"phoenix/internal/logging"
	"phoenix/internal/marketdata"
	"phoenix/internal/session"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.Build(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("backtest_failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	clock, err := session.NewClock(cfg.Session.Timezone, cfg.Session.Start, cfg.Session.End, cfg.Session.EODMarginMinutes)
	if err != nil {
		return err
	}

	evalFrom, err := time.ParseInLocation("2006-01-02", cfg.Backtest.StartDate, clock.Location())
	if err != nil {
		return fmt.Errorf("parsing backtest.startDate: %w", err)
	}
	end, err := time.ParseInLocation("2006-01-02", cfg.Backtest.EndDate, clock.Location())
	if err != nil {
		return fmt.Errorf("parsing backtest.endDate: %w", err)
	}
	end = end.AddDate(0, 0, 1)
	warmStart := evalFrom.AddDate(0, 0, -cfg.Backtest.WarmupDays)

	md := marketdata.NewBybitClient(
		cfg.MarketData.BaseURL,
		cfg.MarketData.Category,
		time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second,
	)

	rules := engine.NewRules(cfg.Risk, clock, log)
	scorer := engine.NewScorer(cfg.Scoring, cfg.Risk.MinSignalScore, log)
	producers := engine.NewProducers(cfg.Strategies, clock.Location())
	bias := engine.NewBiasEstimator(cfg.Runner.Bias)
	sim := engine.NewSimulator(clock, rules, scorer, producers, cfg.Trailing, cfg.Strategies.MeanReversion.ATRLength, log)
	runner := backtest.NewRunner(sim, bias, clock, log)

	ctx := context.Background()
	for _, asset := range cfg.Runner.Assets {
		trigger, err := md.GetBarsRange(ctx, asset, cfg.Runner.OperationalTimeframe, warmStart, end)
		if err != nil {
			return fmt.Errorf("fetching %s %sm bars: %w", asset, cfg.Runner.OperationalTimeframe, err)
		}
		htf, err := md.GetBarsRange(ctx, asset, cfg.Runner.ContextTimeframe, warmStart, end)
		if err != nil {
			return fmt.Errorf("fetching %s %sm bars: %w", asset, cfg.Runner.ContextTimeframe, err)
		}

		result := runner.Run(asset, trigger, htf, evalFrom, cfg.Backtest.InitialEquity)
		report := result.Report

		fmt.Printf("%s: trades=%d winRate=%.2f profitFactor=%.2f maxDD=%.2f%% pnl=%.2f\n",
			asset, report.Trades, report.WinRate, report.ProfitFactor,
			report.MaxDrawdown*100, report.TotalPnL)
	}
	return nil
}
