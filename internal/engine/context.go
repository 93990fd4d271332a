package engine

import (
	"time"

	"phoenix/internal/model"
)

// AssetContext carries everything one asset's evaluation mutates: its daily
// risk state, the cached higher-timeframe bias, and the single open trade.
// It is exclusively owned by whichever execution context evaluates the
// asset; nothing here is safe for concurrent use.
type AssetContext struct {
	Asset string
	// Risk may point at a shared account-wide state when risk.scope is
	// "account"; with per_asset scope every context owns its own.
	Risk          *DailyRiskState
	Bias          model.Bias
	LastBiasCheck time.Time
	Open          *model.OpenTrade
}

// NewAssetContext creates a context with a SIDEWAYS bias and the given
// risk state (shared or owned).
func NewAssetContext(asset string, risk *DailyRiskState) *AssetContext {
	if risk == nil {
		risk = &DailyRiskState{}
	}
	return &AssetContext{
		Asset: asset,
		Risk:  risk,
		Bias:  model.BiasSideways,
	}
}

// BiasStale reports whether the cached bias is due for a refresh.
func (c *AssetContext) BiasStale(now time.Time, refresh time.Duration) bool {
	return c.LastBiasCheck.IsZero() || now.Sub(c.LastBiasCheck) >= refresh
}

// SetBias caches a freshly estimated bias.
func (c *AssetContext) SetBias(bias model.Bias, now time.Time) {
	c.Bias = bias
	c.LastBiasCheck = now
}
