// Package model defines shared data types used across all PHOENIX modules.
package model

import (
	"fmt"
	"time"
)

// Side represents a trading direction.
type Side string

const (
	SideLong  Side = "Long"
	SideShort Side = "Short"
)

// Bias represents the higher-timeframe market bias.
type Bias string

const (
	BiasBullish  Bias = "BULLISH"
	BiasBearish  Bias = "BEARISH"
	BiasSideways Bias = "SIDEWAYS"
)

// CloseReason explains why an open trade was closed.
type CloseReason string

const (
	CloseStopLoss     CloseReason = "StopLoss"
	CloseTakeProfit   CloseReason = "TakeProfit"
	CloseTrailingStop CloseReason = "TrailingStop"
	CloseEODFlatten   CloseReason = "EODFlatten"
)

// IntentStatus represents a trade intent's position in the queue state machine.
type IntentStatus string

const (
	IntentNew        IntentStatus = "NEW"
	IntentProcessing IntentStatus = "PROCESSING"
	IntentSimulated  IntentStatus = "SIMULATED"
	IntentExecuted   IntentStatus = "EXECUTED"
	IntentCanceled   IntentStatus = "CANCELED"
	IntentError      IntentStatus = "ERROR"
)

// Bar is one OHLCV sample for a fixed time interval.
// Sequences are strictly increasing by timestamp.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Candidate is a signal produced by one strategy for one bar.
// Candidates are never mutated after creation; scoring produces a copy.
type Candidate struct {
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entryPrice"`
	StopLoss   float64 `json:"stopLoss"`
	TakeProfit float64 `json:"takeProfit"`
	Score      int     `json:"score"`
	Strategy   string  `json:"strategy"`
}

// Validate checks the stop/target ordering invariant for the candidate's side.
func (c Candidate) Validate() error {
	switch c.Side {
	case SideLong:
		if !(c.StopLoss < c.EntryPrice && c.EntryPrice < c.TakeProfit) {
			return fmt.Errorf("long candidate %s: want sl < entry < tp, got sl=%g entry=%g tp=%g",
				c.Strategy, c.StopLoss, c.EntryPrice, c.TakeProfit)
		}
	case SideShort:
		if !(c.TakeProfit < c.EntryPrice && c.EntryPrice < c.StopLoss) {
			return fmt.Errorf("short candidate %s: want tp < entry < sl, got sl=%g entry=%g tp=%g",
				c.Strategy, c.StopLoss, c.EntryPrice, c.TakeProfit)
		}
	default:
		return fmt.Errorf("candidate %s: unknown side %q", c.Strategy, c.Side)
	}
	return nil
}

// WithScore returns a copy of the candidate with an adjusted score.
func (c Candidate) WithScore(score int) Candidate {
	c.Score = score
	return c
}

// OpenTrade is the single in-flight position for one asset.
// Only StopLoss may be mutated after creation, by the trailing updater.
type OpenTrade struct {
	Asset      string    `json:"asset"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entryPrice"`
	StopLoss   float64   `json:"stopLoss"`
	TakeProfit float64   `json:"takeProfit"`
	Strategy   string    `json:"strategy"`
	EntryTime  time.Time `json:"entryTime"`
	InitialATR float64   `json:"initialAtr"`
	// Ratcheted records whether the trailing updater ever moved the stop,
	// which decides StopLoss vs TrailingStop as the close reason.
	Ratcheted bool `json:"ratcheted"`
}

// ClosedTrade is the terminal record of a completed trade.
type ClosedTrade struct {
	Asset      string      `json:"asset"`
	Side       Side        `json:"side"`
	EntryPrice float64     `json:"entryPrice"`
	ExitPrice  float64     `json:"exitPrice"`
	StopLoss   float64     `json:"stopLoss"`
	TakeProfit float64     `json:"takeProfit"`
	Strategy   string      `json:"strategy"`
	EntryTime  time.Time   `json:"entryTime"`
	ExitTime   time.Time   `json:"exitTime"`
	PnL        float64     `json:"pnl"`
	Reason     CloseReason `json:"closeReason"`
}

// TradeIntent is a durable record of an approved-but-not-yet-executed decision.
type TradeIntent struct {
	ID         string       `json:"id"`
	Asset      string       `json:"asset"`
	Side       Side         `json:"side"`
	EntryPrice float64      `json:"entryPrice"`
	StopLoss   float64      `json:"stopLoss"`
	TakeProfit float64      `json:"takeProfit"`
	Score      int          `json:"score"`
	Strategy   string       `json:"strategy"`
	Timeframe  string       `json:"timeframe"`
	Status     IntentStatus `json:"status"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TechnicalSignal is the durable log entry for an approved signal.
type TechnicalSignal struct {
	ID         int64     `json:"id"`
	Asset      string    `json:"asset"`
	Timeframe  string    `json:"timeframe"`
	Strategy   string    `json:"strategy"`
	Signal     string    `json:"signal"`
	EntryPrice float64   `json:"entryPrice"`
	StopLoss   float64   `json:"stopLoss"`
	TakeProfit float64   `json:"takeProfit"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}

// APIResponse is the standard envelope for API payloads.
type APIResponse struct {
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Direction returns +1 for Long and -1 for Short.
func (s Side) Direction() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// PnL computes the signed per-unit profit for a trade closed at exit.
func PnL(side Side, entry, exit float64) float64 {
	return (exit - entry) * side.Direction()
}
