// Package main runs the trade-intent queue consumer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/executor"
	"phoenix/internal/logging"
	"phoenix/internal/marketdata"
	"phoenix/internal/store"

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

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.Error("store_open_failed", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	md := marketdata.NewBybitClient(
		cfg.MarketData.BaseURL,
		cfg.MarketData.Category,
		time.Duration(cfg.MarketData.TimeoutSeconds)*time.Second,
	)

	svc := executor.New(st, md, cfg.Executor, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

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
	log.Info("executor stopped")
}
