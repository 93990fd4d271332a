package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"phoenix/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntentCreatedPostsPayload(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))
	}))
	defer srv.Close()

	n := New(srv.URL, true, nil)
	n.IntentCreated(context.Background(), model.TradeIntent{
		Asset:    "BTCUSDT",
		Side:     model.SideLong,
		Score:    88,
		Strategy: "MeanReversion",
	})

	assert.Equal(t, "intent_created", got.Event)
	assert.Contains(t, got.Text, "BTCUSDT")
	assert.Contains(t, got.Text, "score 88")
}

func TestDisabledNotifierNeverCalls(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	n := New(srv.URL, false, nil)
	n.TradeClosed(context.Background(), model.ClosedTrade{Asset: "BTCUSDT"})
	assert.False(t, called)

	// An empty URL disables even when the flag is on.
	n = New("", true, nil)
	n.TradeClosed(context.Background(), model.ClosedTrade{Asset: "BTCUSDT"})
	assert.False(t, called)
}
