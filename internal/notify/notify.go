// Package notify pushes trade events to a webhook. Delivery is
// fire-and-forget: failures are logged and never propagate back into the
// decision core.
package notify

import (
	"context"
	"fmt"
	"time"

	"phoenix/internal/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Notifier sends formatted trade events to a webhook URL.
type Notifier struct {
	http    *resty.Client
	url     string
	enabled bool
	logger  *zap.Logger
}

// New creates a notifier. An empty webhook URL disables it.
func New(webhookURL string, enabled bool, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		http:    resty.New().SetTimeout(5 * time.Second),
		url:     webhookURL,
		enabled: enabled && webhookURL != "",
		logger:  logger,
	}
}

type payload struct {
	Event     string    `json:"event"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IntentCreated announces a newly queued trade intent.
func (n *Notifier) IntentCreated(ctx context.Context, intent model.TradeIntent) {
	n.send(ctx, "intent_created", fmt.Sprintf(
		"%s %s %s | entry %.5f sl %.5f tp %.5f | score %d (%s, tf %s)",
		intent.Asset, intent.Side, intent.Status, intent.EntryPrice,
		intent.StopLoss, intent.TakeProfit, intent.Score, intent.Strategy, intent.Timeframe,
	))
}

// TradeClosed announces a closed trade.
func (n *Notifier) TradeClosed(ctx context.Context, trade model.ClosedTrade) {
	n.send(ctx, "trade_closed", fmt.Sprintf(
		"%s %s closed %s | entry %.5f exit %.5f pnl %.2f (%s)",
		trade.Asset, trade.Side, trade.Reason, trade.EntryPrice,
		trade.ExitPrice, trade.PnL, trade.Strategy,
	))
}

func (n *Notifier) send(ctx context.Context, event, text string) {
	if !n.enabled {
		return
	}
	resp, err := n.http.R().
		SetContext(ctx).
		SetBody(payload{Event: event, Text: text, Timestamp: time.Now().UTC()}).
		Post(n.url)
	if err != nil {
		n.logger.Warn("notify_failed", zap.String("event", event), zap.Error(err))
		return
	}
	if resp.IsError() {
		n.logger.Warn("notify_rejected",
			zap.String("event", event),
			zap.Int("status", resp.StatusCode()),
		)
	}
}
