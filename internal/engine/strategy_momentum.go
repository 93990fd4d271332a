package engine

import (
	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
)

// Momentum detects trend-following entries: price on the trend side of a
// long moving average with ADX confirming strength, triggered by an RSI
// momentum crossing.
type Momentum struct {
	cfg config.MomentumConfig
}

// NewMomentum creates the momentum breakout producer.
func NewMomentum(cfg config.MomentumConfig) *Momentum {
	return &Momentum{cfg: cfg}
}

func (p *Momentum) Name() string { return StrategyMomentum }

// Produce checks the latest bar for a momentum trigger. The RSI crossing
// accepts either the midline cross or the wider RSICrossLo→RSICrossHi jump.
func (p *Momentum) Produce(window []model.Bar, _ model.Bias) []model.Candidate {
	if len(window) < p.cfg.TrendMA+1 {
		return nil
	}

	closes := indicator.Closes(window)
	ma := indicator.SMA(closes, p.cfg.TrendMA)
	adx := indicator.ADX(window, p.cfg.ADXLength)
	rsi := indicator.RSI(closes, p.cfg.RSILength)
	atr := indicator.ATR(window, p.cfg.ATRLength)

	n := len(window)
	trigger := window[n-1]
	lastMA, lastADX, lastATR := ma[n-1], adx[n-1], atr[n-1]
	prevRSI, lastRSI := rsi[n-2], rsi[n-1]
	if !indicator.Defined(lastMA) || !indicator.Defined(lastADX) ||
		!indicator.Defined(lastATR) || !indicator.Defined(prevRSI) || !indicator.Defined(lastRSI) {
		return nil
	}
	if lastADX <= p.cfg.ADXMin {
		return nil
	}

	var out []model.Candidate

	crossedUp := (prevRSI < 50 && lastRSI > 50) ||
		(prevRSI < p.cfg.RSICrossLo && lastRSI > p.cfg.RSICrossHi)
	if trigger.Close > lastMA && crossedUp {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideLong,
			EntryPrice: entry,
			StopLoss:   trigger.Low - p.cfg.SLATRMult*lastATR,
			TakeProfit: entry + p.cfg.TPATRMult*lastATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyMomentum,
		})
	}

	crossedDown := (prevRSI > 50 && lastRSI < 50) ||
		(prevRSI > p.cfg.RSICrossHi && lastRSI < p.cfg.RSICrossLo)
	if trigger.Close < lastMA && crossedDown {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideShort,
			EntryPrice: entry,
			StopLoss:   trigger.High + p.cfg.SLATRMult*lastATR,
			TakeProfit: entry - p.cfg.TPATRMult*lastATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyMomentum,
		})
	}

	return out
}
