// Package config handles loading and validating PHOENIX configuration from YAML files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the PHOENIX system.
type Config struct {
	App        AppConfig        `yaml:"app" validate:"required"`
	Session    SessionConfig    `yaml:"session" validate:"required"`
	Risk       RiskConfig       `yaml:"risk" validate:"required"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Trailing   TrailingConfig   `yaml:"trailing"`
	Runner     RunnerConfig     `yaml:"runner" validate:"required"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	MarketData MarketDataConfig `yaml:"marketData"`
	Store      StoreConfig      `yaml:"store" validate:"required"`
	Executor   ExecutorConfig   `yaml:"executor"`
	Notify     NotifyConfig     `yaml:"notify"`
	API        APIConfig        `yaml:"api"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env      string `yaml:"env" validate:"required,oneof=dev staging prod"`
	LogLevel string `yaml:"logLevel" validate:"required,oneof=debug info warn error"`
}

// SessionConfig defines the trading session window.
type SessionConfig struct {
	Timezone         string `yaml:"timezone" validate:"required"`
	Start            string `yaml:"start" validate:"required"`
	End              string `yaml:"end" validate:"required"`
	EODMarginMinutes int    `yaml:"eodMarginMinutes" validate:"gte=0"`
}

// RiskConfig holds the intraday risk-gate parameters.
type RiskConfig struct {
	MaxLossFraction       float64 `yaml:"maxLossFraction" validate:"gte=0"`
	MaxTradesPerDay       int     `yaml:"maxTradesPerDay" validate:"gt=0"`
	CooldownMinutes       int     `yaml:"cooldownMinutes" validate:"gte=0"`
	MinMinutesBeforeClose int     `yaml:"minMinutesBeforeClose" validate:"gte=0"`
	MinSignalScore        int     `yaml:"minSignalScore" validate:"gte=0"`
	// Scope selects daily-state ownership: per_asset or account.
	Scope string `yaml:"scope" validate:"oneof=per_asset account"`
}

// StrategiesConfig holds one parameter block per signal producer.
type StrategiesConfig struct {
	MeanReversion MeanReversionConfig `yaml:"meanReversion"`
	Momentum      MomentumConfig      `yaml:"momentum"`
	VWAPReversion VWAPReversionConfig `yaml:"vwapReversion"`
	Squeeze       SqueezeConfig       `yaml:"squeeze"`
}

// MeanReversionConfig parameterizes the volatility mean-reversion producer.
type MeanReversionConfig struct {
	Enabled       bool    `yaml:"enabled"`
	RSILength     int     `yaml:"rsiLength" validate:"gt=0"`
	RSILow        float64 `yaml:"rsiLow"`
	RSIHigh       float64 `yaml:"rsiHigh"`
	ATRLength     int     `yaml:"atrLength" validate:"gt=0"`
	VolumeZWindow int     `yaml:"volumeZWindow" validate:"gt=0"`
	VolumeZMin    float64 `yaml:"volumeZMin"`
	SLATRMult     float64 `yaml:"slAtrMult" validate:"gt=0"`
	TPATRMult     float64 `yaml:"tpAtrMult" validate:"gt=0"`
	BaseScore     int     `yaml:"baseScore"`
}

// MomentumConfig parameterizes the momentum breakout producer.
type MomentumConfig struct {
	Enabled    bool    `yaml:"enabled"`
	TrendMA    int     `yaml:"trendMa" validate:"gt=0"`
	ADXLength  int     `yaml:"adxLength" validate:"gt=0"`
	ADXMin     float64 `yaml:"adxMin"`
	RSILength  int     `yaml:"rsiLength" validate:"gt=0"`
	RSICrossLo float64 `yaml:"rsiCrossLo"`
	RSICrossHi float64 `yaml:"rsiCrossHi"`
	ATRLength  int     `yaml:"atrLength" validate:"gt=0"`
	SLATRMult  float64 `yaml:"slAtrMult" validate:"gt=0"`
	TPATRMult  float64 `yaml:"tpAtrMult" validate:"gt=0"`
	BaseScore  int     `yaml:"baseScore"`
}

// VWAPReversionConfig parameterizes the VWAP range-reversion producer.
type VWAPReversionConfig struct {
	Enabled    bool    `yaml:"enabled"`
	KATR       float64 `yaml:"kAtr" validate:"gt=0"`
	RSILength  int     `yaml:"rsiLength" validate:"gt=0"`
	RSILow     float64 `yaml:"rsiLow"`
	RSIHigh    float64 `yaml:"rsiHigh"`
	ADXLength  int     `yaml:"adxLength" validate:"gt=0"`
	ADXCeiling float64 `yaml:"adxCeiling"`
	ATRLength  int     `yaml:"atrLength" validate:"gt=0"`
	SLATRPad   float64 `yaml:"slAtrPad" validate:"gt=0"`
	BaseScore  int     `yaml:"baseScore"`
}

// SqueezeConfig parameterizes the Bollinger squeeze breakout producer.
type SqueezeConfig struct {
	Enabled          bool    `yaml:"enabled"`
	BBLength         int     `yaml:"bbLength" validate:"gt=0"`
	BBDev            float64 `yaml:"bbDev" validate:"gt=0"`
	SqueezeWindow    int     `yaml:"squeezeWindow" validate:"gt=0"`
	SqueezeTolerance float64 `yaml:"squeezeTolerance" validate:"gt=0"`
	VolumeZWindow    int     `yaml:"volumeZWindow" validate:"gt=0"`
	ATRLength        int     `yaml:"atrLength" validate:"gt=0"`
	TPATRMult        float64 `yaml:"tpAtrMult" validate:"gt=0"`
	BaseScore        int     `yaml:"baseScore"`
}

// ScoringConfig holds bias/coherence score adjustments.
type ScoringConfig struct {
	AlignmentBonus   int `yaml:"alignmentBonus"`
	ReversionPenalty int `yaml:"reversionPenalty"`
}

// TrailingConfig holds trailing stop settings.
type TrailingConfig struct {
	Enabled bool    `yaml:"enabled"`
	ATRMult float64 `yaml:"atrMult" validate:"gt=0"`
}

// BiasConfig holds the higher-timeframe bias estimator parameters.
type BiasConfig struct {
	EMALength    int     `yaml:"emaLength" validate:"gt=0"`
	ADXLength    int     `yaml:"adxLength" validate:"gt=0"`
	ADXThreshold float64 `yaml:"adxThreshold"`
}

// RunnerConfig holds live runner settings.
type RunnerConfig struct {
	Assets               []string   `yaml:"assets" validate:"required,min=1"`
	OperationalTimeframe string     `yaml:"operationalTimeframe" validate:"required"`
	ContextTimeframe     string     `yaml:"contextTimeframe" validate:"required"`
	SleepSeconds         int        `yaml:"sleepSeconds" validate:"gt=0"`
	BiasRefreshHours     int        `yaml:"biasRefreshHours" validate:"gt=0"`
	BarLimit             int        `yaml:"barLimit" validate:"gt=0"`
	Equity               float64    `yaml:"equity" validate:"gt=0"`
	Bias                 BiasConfig `yaml:"bias"`
}

// BacktestConfig holds backtester settings.
type BacktestConfig struct {
	StartDate     string  `yaml:"startDate"`
	EndDate       string  `yaml:"endDate"`
	InitialEquity float64 `yaml:"initialEquity"`
	WarmupDays    int     `yaml:"warmupDays"`
}

// MarketDataConfig configures the bar provider.
type MarketDataConfig struct {
	BaseURL        string `yaml:"baseUrl"`
	Category       string `yaml:"category"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// StoreConfig configures the durable sqlite store.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// ExecutorConfig configures the intent-queue consumer.
type ExecutorConfig struct {
	MaxSlippage       float64 `yaml:"maxSlippage" validate:"gt=0"`
	RiskPerTradeUSD   float64 `yaml:"riskPerTradeUsd" validate:"gt=0"`
	PollSeconds       int     `yaml:"pollSeconds" validate:"gt=0"`
	StaleAfterMinutes int     `yaml:"staleAfterMinutes" validate:"gt=0"`
	LiveOrdersEnabled bool    `yaml:"liveOrdersEnabled"`
}

// NotifyConfig configures the fire-and-forget webhook notifier.
type NotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhookUrl"`
}

// APIConfig holds the read-only status API server settings.
type APIConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listenAddress"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults applies sensible defaults for optional fields.
func (c *Config) setDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "Europe/Rome"
	}
	if c.Session.Start == "" {
		c.Session.Start = "09:00"
	}
	if c.Session.End == "" {
		c.Session.End = "17:30"
	}
	if c.Session.EODMarginMinutes == 0 {
		c.Session.EODMarginMinutes = 15
	}

	if c.Risk.MaxLossFraction == 0 {
		c.Risk.MaxLossFraction = 0.02
	}
	if c.Risk.MaxTradesPerDay == 0 {
		c.Risk.MaxTradesPerDay = 5
	}
	if c.Risk.CooldownMinutes == 0 {
		c.Risk.CooldownMinutes = 30
	}
	if c.Risk.MinMinutesBeforeClose == 0 {
		c.Risk.MinMinutesBeforeClose = 15
	}
	if c.Risk.MinSignalScore == 0 {
		c.Risk.MinSignalScore = 70
	}
	if c.Risk.Scope == "" {
		c.Risk.Scope = "per_asset"
	}

	mr := &c.Strategies.MeanReversion
	if mr.RSILength == 0 {
		mr.Enabled = true
		mr.RSILength = 14
		mr.RSILow = 35
		mr.RSIHigh = 65
		mr.ATRLength = 14
		mr.VolumeZWindow = 20
		mr.VolumeZMin = 0.5
		mr.SLATRMult = 1.5
		mr.TPATRMult = 2.0
		mr.BaseScore = 88
	}
	mo := &c.Strategies.Momentum
	if mo.TrendMA == 0 {
		mo.Enabled = true
		mo.TrendMA = 50
		mo.ADXLength = 14
		mo.ADXMin = 20
		mo.RSILength = 14
		mo.RSICrossLo = 45
		mo.RSICrossHi = 55
		mo.ATRLength = 14
		mo.SLATRMult = 1.5
		mo.TPATRMult = 2.5
		mo.BaseScore = 75
	}
	vr := &c.Strategies.VWAPReversion
	if vr.KATR == 0 {
		vr.Enabled = true
		vr.KATR = 1.0
		vr.RSILength = 14
		vr.RSILow = 40
		vr.RSIHigh = 60
		vr.ADXLength = 14
		vr.ADXCeiling = 30
		vr.ATRLength = 14
		vr.SLATRPad = 1.2
		vr.BaseScore = 75
	}
	sq := &c.Strategies.Squeeze
	if sq.BBLength == 0 {
		sq.Enabled = true
		sq.BBLength = 20
		sq.BBDev = 2.0
		sq.SqueezeWindow = 40
		sq.SqueezeTolerance = 1.1
		sq.VolumeZWindow = 20
		sq.ATRLength = 14
		sq.TPATRMult = 2.0
		sq.BaseScore = 80
	}

	if c.Scoring.AlignmentBonus == 0 {
		c.Scoring.AlignmentBonus = 10
	}
	if c.Scoring.ReversionPenalty == 0 {
		c.Scoring.ReversionPenalty = 15
	}
	if c.Trailing.ATRMult == 0 {
		c.Trailing.Enabled = true
		c.Trailing.ATRMult = 1.5
	}

	if c.Runner.OperationalTimeframe == "" {
		c.Runner.OperationalTimeframe = "60"
	}
	if c.Runner.ContextTimeframe == "" {
		c.Runner.ContextTimeframe = "240"
	}
	if c.Runner.SleepSeconds == 0 {
		c.Runner.SleepSeconds = 60
	}
	if c.Runner.BiasRefreshHours == 0 {
		c.Runner.BiasRefreshHours = 4
	}
	if c.Runner.BarLimit == 0 {
		c.Runner.BarLimit = 400
	}
	if c.Runner.Equity == 0 {
		c.Runner.Equity = 10000
	}
	if c.Runner.Bias.EMALength == 0 {
		c.Runner.Bias.EMALength = 50
	}
	if c.Runner.Bias.ADXLength == 0 {
		c.Runner.Bias.ADXLength = 14
	}
	if c.Runner.Bias.ADXThreshold == 0 {
		c.Runner.Bias.ADXThreshold = 20
	}

	if c.Backtest.InitialEquity == 0 {
		c.Backtest.InitialEquity = 10000
	}
	if c.Backtest.WarmupDays == 0 {
		c.Backtest.WarmupDays = 40
	}

	if c.MarketData.BaseURL == "" {
		c.MarketData.BaseURL = "https://api.bybit.com"
	}
	if c.MarketData.Category == "" {
		c.MarketData.Category = "linear"
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 10
	}

	if c.Store.Path == "" {
		c.Store.Path = "data/phoenix.db"
	}

	if c.Executor.MaxSlippage == 0 {
		c.Executor.MaxSlippage = 0.005
	}
	if c.Executor.RiskPerTradeUSD == 0 {
		c.Executor.RiskPerTradeUSD = 10.0
	}
	if c.Executor.PollSeconds == 0 {
		c.Executor.PollSeconds = 10
	}
	if c.Executor.StaleAfterMinutes == 0 {
		c.Executor.StaleAfterMinutes = 10
	}

	if c.API.ListenAddress == "" {
		c.API.ListenAddress = ":8750"
	}
}

// validate enforces the constraints that would otherwise surface as
// confusing behavior deep inside the decision core.
func (c *Config) validate() error {
	if c.Risk.Scope != "per_asset" && c.Risk.Scope != "account" {
		return fmt.Errorf("risk.scope must be per_asset or account, got %q", c.Risk.Scope)
	}
	if len(c.Runner.Assets) == 0 {
		return fmt.Errorf("runner.assets must list at least one asset")
	}
	if c.Risk.MaxLossFraction < 0 || c.Risk.MaxLossFraction >= 1 {
		return fmt.Errorf("risk.maxLossFraction must be in [0, 1), got %g", c.Risk.MaxLossFraction)
	}
	return nil
}
