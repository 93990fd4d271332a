package engine

import (
	"math"

	"phoenix/internal/model"
)

// Performance folds closed trades into equity and drawdown statistics.
// Reporting only; it feeds nothing back into the decision core.
type Performance struct {
	initialEquity float64
	equity        float64
	peak          float64
	maxDrawdown   float64
	curve         []float64
	trades        []model.ClosedTrade
	grossProfit   float64
	grossLoss     float64
	wins          int
}

// NewPerformance creates an aggregator starting at the given equity.
func NewPerformance(initialEquity float64) *Performance {
	return &Performance{
		initialEquity: initialEquity,
		equity:        initialEquity,
		peak:          initialEquity,
		curve:         []float64{initialEquity},
	}
}

// Add folds one closed trade into the statistics.
func (p *Performance) Add(trade model.ClosedTrade) {
	p.trades = append(p.trades, trade)
	p.equity += trade.PnL
	p.curve = append(p.curve, p.equity)

	if trade.PnL > 0 {
		p.wins++
		p.grossProfit += trade.PnL
	} else if trade.PnL < 0 {
		p.grossLoss += -trade.PnL
	}

	if p.equity > p.peak {
		p.peak = p.equity
	}
	if p.peak > 0 {
		dd := (p.peak - p.equity) / p.peak
		if dd > p.maxDrawdown {
			p.maxDrawdown = dd
		}
	}
}

// Equity returns the current equity.
func (p *Performance) Equity() float64 { return p.equity }

// Curve returns the equity curve including the starting point.
func (p *Performance) Curve() []float64 { return p.curve }

// Trades returns the closed trades in arrival order.
func (p *Performance) Trades() []model.ClosedTrade { return p.trades }

// Report is the final summary of a run.
type Report struct {
	InitialEquity float64 `json:"initialEquity"`
	FinalEquity   float64 `json:"finalEquity"`
	TotalPnL      float64 `json:"totalPnl"`
	Trades        int     `json:"trades"`
	WinRate       float64 `json:"winRate"`
	ProfitFactor  float64 `json:"profitFactor"`
	MaxDrawdown   float64 `json:"maxDrawdown"`
}

// Summary computes the derived metrics. Profit factor is +Inf with no
// losses and 0 with no trades.
func (p *Performance) Summary() Report {
	r := Report{
		InitialEquity: p.initialEquity,
		FinalEquity:   p.equity,
		TotalPnL:      p.equity - p.initialEquity,
		Trades:        len(p.trades),
		MaxDrawdown:   p.maxDrawdown,
	}
	if len(p.trades) == 0 {
		return r
	}
	r.WinRate = float64(p.wins) / float64(len(p.trades))
	if p.grossLoss == 0 {
		r.ProfitFactor = math.Inf(1)
	} else {
		r.ProfitFactor = p.grossProfit / p.grossLoss
	}
	return r
}
