package engine

import (
	"phoenix/internal/config"
	"phoenix/internal/model"

	"go.uber.org/zap"
)

// Scorer adjusts candidate scores for coherence with the higher-timeframe
// bias and selects the best surviving candidate.
type Scorer struct {
	alignmentBonus   int
	reversionPenalty int
	minScore         int
	logger           *zap.Logger
}

// NewScorer creates the bias/coherence scorer.
func NewScorer(cfg config.ScoringConfig, minScore int, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		alignmentBonus:   cfg.AlignmentBonus,
		reversionPenalty: cfg.ReversionPenalty,
		minScore:         minScore,
		logger:           logger,
	}
}

// Aligned reports whether a candidate trades with the bias direction.
func Aligned(bias model.Bias, side model.Side) bool {
	return (bias == model.BiasBullish && side == model.SideLong) ||
		(bias == model.BiasBearish && side == model.SideShort)
}

// Adjust returns a copy of the candidate with the coherence adjustment
// applied. Aligned candidates gain the bonus; reversion candidates fighting
// a directional bias take the penalty. A SIDEWAYS bias changes nothing.
func (s *Scorer) Adjust(c model.Candidate, bias model.Bias) model.Candidate {
	if bias == model.BiasSideways {
		return c
	}
	if Aligned(bias, c.Side) {
		return c.WithScore(c.Score + s.alignmentBonus)
	}
	if c.Strategy == StrategyVWAPReversion {
		return c.WithScore(c.Score - s.reversionPenalty)
	}
	return c
}

// Collect runs the producers in their fixed order over one window and
// returns the adjusted candidates that pass invariant validation and the
// score threshold. Invalid candidates are discarded, never acted on.
func (s *Scorer) Collect(producers []Producer, window []model.Bar, bias model.Bias) []model.Candidate {
	var out []model.Candidate
	for _, p := range producers {
		for _, c := range p.Produce(window, bias) {
			if err := c.Validate(); err != nil {
				s.logger.Warn("candidate_discarded", zap.Error(err))
				continue
			}
			adjusted := s.Adjust(c, bias)
			if adjusted.Score < s.minScore {
				continue
			}
			out = append(out, adjusted)
		}
	}
	return out
}

// SelectBest returns the strict-maximum-score candidate. Ties keep the
// earliest candidate in producer evaluation order, which makes selection
// reproducible between backtest and live runs.
func (s *Scorer) SelectBest(candidates []model.Candidate) (model.Candidate, bool) {
	if len(candidates) == 0 {
		return model.Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
