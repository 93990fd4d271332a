package engine

import (
	"testing"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRiskConfig() config.RiskConfig {
	return config.RiskConfig{
		MaxLossFraction:       0.02,
		MaxTradesPerDay:       5,
		CooldownMinutes:       30,
		MinMinutesBeforeClose: 15,
		MinSignalScore:        70,
		Scope:                 "per_asset",
	}
}

func testClock(t *testing.T) *session.Clock {
	t.Helper()
	c, err := session.NewClock("Europe/Rome", "09:00", "17:30", 15)
	require.NoError(t, err)
	return c
}

func midSession(t *testing.T) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	return time.Date(2026, 3, 10, 11, 0, 0, 0, loc)
}

func TestResetIfNewDay(t *testing.T) {
	lossAt := time.Now()
	state := &DailyRiskState{
		TradingDay:   "2026-03-09",
		RealizedPnL:  -120,
		TradesCount:  3,
		LastLossTime: &lossAt,
	}

	assert.True(t, state.ResetIfNewDay("2026-03-10"))
	assert.Equal(t, "2026-03-10", state.TradingDay)
	assert.Zero(t, state.RealizedPnL)
	assert.Zero(t, state.TradesCount)
	assert.Nil(t, state.LastLossTime)

	// Same day again is a no-op.
	state.TradesCount = 2
	assert.False(t, state.ResetIfNewDay("2026-03-10"))
	assert.Equal(t, 2, state.TradesCount)
}

func TestAllowNewTradeHappyPath(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	state := &DailyRiskState{}

	ok, reason := rules.AllowNewTrade(midSession(t), 10000, state, 88)
	assert.True(t, ok)
	assert.Equal(t, ReasonOK, reason)
}

func TestAllowNewTradeOutsideSession(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	loc, _ := time.LoadLocation("Europe/Rome")
	night := time.Date(2026, 3, 10, 20, 0, 0, 0, loc)

	ok, reason := rules.AllowNewTrade(night, 10000, &DailyRiskState{}, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonOutsideSession, reason)
}

func TestAllowNewTradeTooCloseToEnd(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	loc, _ := time.LoadLocation("Europe/Rome")
	late := time.Date(2026, 3, 10, 17, 16, 0, 0, loc)

	ok, reason := rules.AllowNewTrade(late, 10000, &DailyRiskState{}, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonTooCloseToEnd, reason)
}

func TestAllowNewTradeMaxTrades(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)
	state := &DailyRiskState{TradingDay: "2026-03-10", TradesCount: 5}

	ok, reason := rules.AllowNewTrade(now, 10000, state, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonMaxTrades, reason)
}

func TestAllowNewTradeDailyLossCap(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)

	// 2% of 10000 is 200; a 201 loss trips the cap.
	state := &DailyRiskState{TradingDay: "2026-03-10", RealizedPnL: -201}
	ok, reason := rules.AllowNewTrade(now, 10000, state, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonDailyLossCap, reason)

	// Exactly at the cap also denies.
	state = &DailyRiskState{TradingDay: "2026-03-10", RealizedPnL: -200}
	ok, reason = rules.AllowNewTrade(now, 10000, state, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonDailyLossCap, reason)

	// Just inside the cap passes.
	state = &DailyRiskState{TradingDay: "2026-03-10", RealizedPnL: -199}
	ok, _ = rules.AllowNewTrade(now, 10000, state, 88)
	assert.True(t, ok)
}

func TestAllowNewTradeCooldown(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)

	lossAt := now.Add(-29 * time.Minute)
	state := &DailyRiskState{TradingDay: "2026-03-10", LastLossTime: &lossAt}
	ok, reason := rules.AllowNewTrade(now, 10000, state, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonCooldown, reason)

	// Cooldown elapsed.
	lossAt = now.Add(-30 * time.Minute)
	state = &DailyRiskState{TradingDay: "2026-03-10", LastLossTime: &lossAt}
	ok, _ = rules.AllowNewTrade(now, 10000, state, 88)
	assert.True(t, ok)
}

func TestAllowNewTradeScoreThreshold(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)
	state := &DailyRiskState{TradingDay: "2026-03-10"}

	ok, reason := rules.AllowNewTrade(now, 10000, state, 69)
	assert.False(t, ok)
	assert.Equal(t, ReasonScoreBelowMin, reason)

	ok, _ = rules.AllowNewTrade(now, 10000, state, 70)
	assert.True(t, ok)
}

func TestGuardOrderTradesBeforeLossCap(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)

	// Both the trade count and the loss cap would deny; the count guard
	// runs first so its reason wins.
	state := &DailyRiskState{TradingDay: "2026-03-10", TradesCount: 5, RealizedPnL: -500}
	ok, reason := rules.AllowNewTrade(now, 10000, state, 88)
	assert.False(t, ok)
	assert.Equal(t, ReasonMaxTrades, reason)
}

func TestAllowNewTradeResetsOnNewDay(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)

	// Yesterday's exhausted counters must not leak into today.
	state := &DailyRiskState{TradingDay: "2026-03-09", TradesCount: 5, RealizedPnL: -500}
	ok, reason := rules.AllowNewTrade(now, 10000, state, 88)
	assert.True(t, ok)
	assert.Equal(t, ReasonOK, reason)
	assert.Equal(t, "2026-03-10", state.TradingDay)
}

func TestOnClosedTrade(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)
	state := &DailyRiskState{TradingDay: "2026-03-10"}

	rules.OnClosedTrade(state, 50, now)
	assert.Equal(t, 50.0, state.RealizedPnL)
	assert.Nil(t, state.LastLossTime)

	rules.OnClosedTrade(state, -80, now)
	assert.Equal(t, -30.0, state.RealizedPnL)
	require.NotNil(t, state.LastLossTime)
	assert.Equal(t, now, *state.LastLossTime)
}

func TestZeroEquityDisablesLossCap(t *testing.T) {
	rules := NewRules(testRiskConfig(), testClock(t), nil)
	now := midSession(t)
	state := &DailyRiskState{TradingDay: "2026-03-10", RealizedPnL: -500}

	ok, _ := rules.AllowNewTrade(now, 0, state, 88)
	assert.True(t, ok)
}
