package executor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"phoenix/internal/config"
	"phoenix/internal/model"
	"phoenix/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPrices returns a fixed price, or an error when err is set.
type stubPrices struct {
	price float64
	err   error
}

func (s *stubPrices) LastPrice(_ context.Context, _ string) (float64, error) {
	return s.price, s.err
}

func testExecutorConfig() config.ExecutorConfig {
	return config.ExecutorConfig{
		MaxSlippage:       0.005,
		RiskPerTradeUSD:   10,
		PollSeconds:       1,
		StaleAfterMinutes: 10,
	}
}

func testQueue(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func insertIntent(t *testing.T, st *store.Store) model.TradeIntent {
	t.Helper()
	intent, err := st.InsertIntent(context.Background(), model.TradeIntent{
		Asset:      "BTCUSDT",
		Side:       model.SideLong,
		EntryPrice: 110,
		StopLoss:   100,
		TakeProfit: 120,
		Score:      88,
		Strategy:   "MeanReversion",
		Timeframe:  "60",
	})
	require.NoError(t, err)
	return intent
}

func intentStatus(t *testing.T, st *store.Store, id string) model.IntentStatus {
	t.Helper()
	intents, err := st.RecentIntents(context.Background(), 10)
	require.NoError(t, err)
	for _, it := range intents {
		if it.ID == id {
			return it.Status
		}
	}
	t.Fatalf("intent %s not found", id)
	return ""
}

func TestCycleSimulatesFreshIntent(t *testing.T) {
	st := testQueue(t)
	intent := insertIntent(t, st)
	svc := New(st, &stubPrices{price: 110.1}, testExecutorConfig(), nil)

	svc.cycle(context.Background())

	assert.Equal(t, model.IntentSimulated, intentStatus(t, st, intent.ID))
}

func TestCycleExecutesWhenLiveOrdersEnabled(t *testing.T) {
	st := testQueue(t)
	intent := insertIntent(t, st)
	cfg := testExecutorConfig()
	cfg.LiveOrdersEnabled = true
	svc := New(st, &stubPrices{price: 110}, cfg, nil)

	svc.cycle(context.Background())

	assert.Equal(t, model.IntentExecuted, intentStatus(t, st, intent.ID))
}

func TestCycleCancelsStaleIntent(t *testing.T) {
	st := testQueue(t)
	intent := insertIntent(t, st)
	// Market ran 2% past the signal price, far beyond the 0.5% tolerance.
	svc := New(st, &stubPrices{price: 112.2}, testExecutorConfig(), nil)

	svc.cycle(context.Background())

	assert.Equal(t, model.IntentCanceled, intentStatus(t, st, intent.ID))
}

func TestCycleRetriesOnPriceFailure(t *testing.T) {
	st := testQueue(t)
	intent := insertIntent(t, st)
	svc := New(st, &stubPrices{err: errors.New("upstream down")}, testExecutorConfig(), nil)

	svc.cycle(context.Background())

	// Transient failure puts the intent back in the queue.
	assert.Equal(t, model.IntentNew, intentStatus(t, st, intent.ID))
}

func TestSlippageFraction(t *testing.T) {
	assert.InDelta(t, 0.01, slippageFraction(101, 100), 1e-9)
	assert.InDelta(t, 0.01, slippageFraction(99, 100), 1e-9)
	assert.Zero(t, slippageFraction(100, 0))
}

func TestPositionSize(t *testing.T) {
	// 10 USD over a 10-point stop distance: one unit, three decimals.
	assert.Equal(t, "1", PositionSize(10, 110, 100).String())

	// Small sizes keep three decimals, rounded down.
	assert.Equal(t, "0.333", PositionSize(10, 130, 100).String())

	// Sizes above ten units coarsen to two decimals.
	assert.Equal(t, "33.33", PositionSize(10, 100.3, 100).String())

	// No stop distance means no sizable trade.
	assert.True(t, PositionSize(10, 100, 100).IsZero())
}

func TestPositionSizeShortSide(t *testing.T) {
	// Stop above entry sizes identically.
	assert.Equal(t, "1", PositionSize(10, 100, 110).String())
}
