package engine

import (
	"math"
	"time"

	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
)

// VWAPReversion trades stretches away from the session-anchored VWAP back
// toward it. It only fires in a weak-trend regime (ADX below a ceiling),
// requires the distance from VWAP to exceed k ATRs, and wants a one-bar
// reversal confirmation. The target is the VWAP itself.
type VWAPReversion struct {
	cfg config.VWAPReversionConfig
	loc *time.Location
}

// NewVWAPReversion creates the VWAP range-reversion producer. The location
// anchors the VWAP reset at each session day boundary.
func NewVWAPReversion(cfg config.VWAPReversionConfig, loc *time.Location) *VWAPReversion {
	return &VWAPReversion{cfg: cfg, loc: loc}
}

func (p *VWAPReversion) Name() string { return StrategyVWAPReversion }

// Produce evaluates the last bar against the session VWAP.
func (p *VWAPReversion) Produce(window []model.Bar, _ model.Bias) []model.Candidate {
	if len(window) < 100 {
		return nil
	}

	closes := indicator.Closes(window)
	vwap := indicator.SessionVWAP(window, p.loc)
	adx := indicator.ADX(window, p.cfg.ADXLength)
	rsi := indicator.RSI(closes, p.cfg.RSILength)
	atr := indicator.ATR(window, p.cfg.ATRLength)

	n := len(window)
	prev, trigger := window[n-2], window[n-1]
	lastVWAP, lastADX, lastRSI, lastATR := vwap[n-1], adx[n-1], rsi[n-1], atr[n-1]
	if !indicator.Defined(lastVWAP) || !indicator.Defined(lastADX) ||
		!indicator.Defined(lastRSI) || !indicator.Defined(lastATR) {
		return nil
	}
	if lastADX >= p.cfg.ADXCeiling {
		return nil
	}

	distATR := math.Abs(trigger.Close-lastVWAP) / math.Max(1e-9, lastATR)
	if distATR < p.cfg.KATR {
		return nil
	}

	var out []model.Candidate

	if trigger.Close < lastVWAP && lastRSI <= p.cfg.RSILow && trigger.Close > prev.Close {
		out = append(out, model.Candidate{
			Side:       model.SideLong,
			EntryPrice: trigger.Close,
			StopLoss:   trigger.Low - p.cfg.SLATRPad*lastATR,
			TakeProfit: lastVWAP,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyVWAPReversion,
		})
	}

	if trigger.Close > lastVWAP && lastRSI >= p.cfg.RSIHigh && trigger.Close < prev.Close {
		out = append(out, model.Candidate{
			Side:       model.SideShort,
			EntryPrice: trigger.Close,
			StopLoss:   trigger.High + p.cfg.SLATRPad*lastATR,
			TakeProfit: lastVWAP,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyVWAPReversion,
		})
	}

	return out
}
