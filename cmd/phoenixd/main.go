// Package main is the entry point for the PHOENIX live trading daemon.
package main

import (
	"flag"
	"fmt"
	"os"

	"phoenix/internal/app"
	"phoenix/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	// Optional .env for local overrides; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := app.New(cfg).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "phoenixd exited with error: %v\n", err)
		os.Exit(1)
	}
}
