package engine

import (
	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
)

// MeanReversion detects exhaustion bars: an extreme RSI reading on elevated
// volume at bar T, confirmed by bar T+1 closing at least 0.5% beyond T's
// close in the signal direction.
type MeanReversion struct {
	cfg config.MeanReversionConfig
}

// NewMeanReversion creates the volatility mean-reversion producer.
func NewMeanReversion(cfg config.MeanReversionConfig) *MeanReversion {
	return &MeanReversion{cfg: cfg}
}

func (p *MeanReversion) Name() string { return StrategyMeanReversion }

// confirmation threshold: T+1 must close 0.5% beyond T's close.
const meanRevConfirm = 0.005

// Produce scans the last two bars of the window for a reversion setup.
func (p *MeanReversion) Produce(window []model.Bar, _ model.Bias) []model.Candidate {
	if len(window) < 5 {
		return nil
	}

	closes := indicator.Closes(window)
	rsi := indicator.RSI(closes, p.cfg.RSILength)
	atr := indicator.ATR(window, p.cfg.ATRLength)
	volZ := indicator.VolumeZScore(window, p.cfg.VolumeZWindow)

	n := len(window)
	setup, trigger := window[n-2], window[n-1]
	setupRSI, setupATR, setupZ := rsi[n-2], atr[n-2], volZ[n-2]
	if !indicator.Defined(setupRSI) || !indicator.Defined(setupATR) || !indicator.Defined(setupZ) {
		return nil
	}
	if setupZ < p.cfg.VolumeZMin {
		return nil
	}

	var out []model.Candidate

	if setupRSI <= p.cfg.RSILow && trigger.Close > setup.Close*(1+meanRevConfirm) {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideLong,
			EntryPrice: entry,
			StopLoss:   setup.Low - p.cfg.SLATRMult*setupATR,
			TakeProfit: entry + p.cfg.TPATRMult*setupATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyMeanReversion,
		})
	}

	if setupRSI >= p.cfg.RSIHigh && trigger.Close < setup.Close*(1-meanRevConfirm) {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideShort,
			EntryPrice: entry,
			StopLoss:   setup.High + p.cfg.SLATRMult*setupATR,
			TakeProfit: entry - p.cfg.TPATRMult*setupATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategyMeanReversion,
		})
	}

	return out
}
