package engine

import (
	"phoenix/internal/config"
	"phoenix/internal/indicator"
	"phoenix/internal/model"
)

// Squeeze flags a Bollinger band-width compression near its recent minimum
// and trades the breakout bar, in the bias direction only, when the
// breakout comes with above-average volume. The stop sits on the opposite
// band; the target is an ATR multiple beyond entry.
type Squeeze struct {
	cfg config.SqueezeConfig
}

// NewSqueeze creates the compression breakout producer.
func NewSqueeze(cfg config.SqueezeConfig) *Squeeze {
	return &Squeeze{cfg: cfg}
}

func (p *Squeeze) Name() string { return StrategySqueeze }

// Produce checks the setup bar for a squeeze and the trigger bar for a
// band breakout aligned with the supplied bias.
func (p *Squeeze) Produce(window []model.Bar, bias model.Bias) []model.Candidate {
	need := p.cfg.BBLength + p.cfg.SqueezeWindow
	if len(window) < need {
		return nil
	}

	closes := indicator.Closes(window)
	bands := indicator.Bollinger(closes, p.cfg.BBLength, p.cfg.BBDev)
	squeeze := indicator.RollingMin(bands.Width, p.cfg.SqueezeWindow)
	atr := indicator.ATR(window, p.cfg.ATRLength)
	volZ := indicator.VolumeZScore(window, p.cfg.VolumeZWindow)

	n := len(window)
	setup, trigger := window[n-2], window[n-1]
	setupWidth, setupMin := bands.Width[n-2], squeeze[n-2]
	upper, lower := bands.Upper[n-2], bands.Lower[n-2]
	lastATR, lastZ := atr[n-1], indicator.Last(volZ)
	if !indicator.Defined(setupWidth) || !indicator.Defined(setupMin) ||
		!indicator.Defined(lastATR) || !indicator.Defined(lastZ) {
		return nil
	}

	inSqueeze := setupWidth <= setupMin*p.cfg.SqueezeTolerance
	if !inSqueeze || lastZ < 0 {
		return nil
	}

	var out []model.Candidate

	if bias == model.BiasBullish && setup.Close < upper && trigger.Close > upper {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideLong,
			EntryPrice: entry,
			StopLoss:   bands.Lower[n-1],
			TakeProfit: entry + p.cfg.TPATRMult*lastATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategySqueeze,
		})
	}

	if bias == model.BiasBearish && setup.Close > lower && trigger.Close < lower {
		entry := trigger.Close
		out = append(out, model.Candidate{
			Side:       model.SideShort,
			EntryPrice: entry,
			StopLoss:   bands.Upper[n-1],
			TakeProfit: entry - p.cfg.TPATRMult*lastATR,
			Score:      p.cfg.BaseScore,
			Strategy:   StrategySqueeze,
		})
	}

	return out
}
