package engine

import (
	"math"
	"time"

	"augur/internal/domain/signal"
	"augur/pkg/errors"
	"augur/pkg/ranges"
)

// Weights distributes the per-timeframe raw score across signal
// sources. SMC structure is weighted above raw indicators by design.
// The four weights must sum to 1.
type Weights struct {
	SMC        float64
	Indicators float64
	ML         float64
	Confluence float64
}

// DefaultWeights returns the production component weights.
func DefaultWeights() Weights {
	return Weights{SMC: 0.40, Indicators: 0.25, ML: 0.20, Confluence: 0.15}
}

// Validate fails fast when weights are negative or don't sum to 1.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"smc": w.SMC, "indicators": w.Indicators, "ml": w.ML, "confluence": w.Confluence,
	} {
		if v < 0 || v > 1 {
			return errors.NewValidationError("weights."+name, "must be in [0,1]", v)
		}
	}
	if sum := w.SMC + w.Indicators + w.ML + w.Confluence; math.Abs(sum-1) > 1e-6 {
		return errors.NewValidationError("weights", "must sum to 1", sum)
	}
	return nil
}

// withoutML redistributes the ML weight proportionally when no model
// is loaded.
func (w Weights) withoutML() Weights {
	rest := w.SMC + w.Indicators + w.Confluence
	if w.ML == 0 || rest == 0 {
		return w
	}
	scale := 1.0 / rest
	return Weights{
		SMC:        w.SMC * scale,
		Indicators: w.Indicators * scale,
		ML:         0,
		Confluence: w.Confluence * scale,
	}
}

// decisionInput carries the per-timeframe component scores, each in
// [-1, 1].
type decisionInput struct {
	Symbol         string
	Timeframe      signal.Timeframe
	EvaluatedAt    time.Time
	IndicatorScore float64
	SMCScore       float64
	MLScore        float64
	MLAvailable    bool
	Confluence     float64
	KeyLevels      []ranges.Range
}

// decide runs the three-state transition: raw above +threshold is
// bullish, below -threshold bearish, otherwise neutral. Confidence is
// the linear rescale of |raw| from [threshold, 1] onto [0, 1].
func decide(in decisionInput, weights Weights, threshold float64) signal.TimeframeSentiment {
	w := weights
	if !in.MLAvailable {
		w = w.withoutML()
	}

	raw := w.SMC*in.SMCScore +
		w.Indicators*in.IndicatorScore +
		w.ML*in.MLScore +
		w.Confluence*in.Confluence
	raw = clamp(raw, -1, 1)

	sentiment := signal.SentimentNeutral
	switch {
	case raw > threshold:
		sentiment = signal.SentimentBullish
	case raw < -threshold:
		sentiment = signal.SentimentBearish
	}

	confidence := 0.0
	if sentiment != signal.SentimentNeutral && threshold < 1 {
		confidence = clamp((math.Abs(raw)-threshold)/(1-threshold), 0, 1)
	}

	return signal.TimeframeSentiment{
		Symbol:          in.Symbol,
		Timeframe:       in.Timeframe,
		Sentiment:       sentiment,
		RawScore:        raw,
		Confidence:      confidence,
		ThresholdUsed:   threshold,
		EvaluatedAt:     in.EvaluatedAt,
		IndicatorScore:  in.IndicatorScore,
		SMCScore:        in.SMCScore,
		MLScore:         in.MLScore,
		ConfluenceBonus: in.Confluence,
		KeyLevels:       in.KeyLevels,
	}
}

// smcScore condenses scored signals into a direction in [-1, 1]:
// bullish quality mass against bearish quality mass.
func smcScore(scored []signal.ScoredSignal) float64 {
	var bull, bear float64
	for _, sc := range scored {
		switch sc.Element.Sentiment {
		case signal.SentimentBullish:
			bull += sc.QualityScore
		case signal.SentimentBearish:
			bear += sc.QualityScore
		}
	}
	total := bull + bear
	if total == 0 {
		return 0
	}
	return (bull - bear) / total
}

// confluenceScore reduces zones to a direction in [-1, 1] using the
// strongest zone on each side.
func confluenceScore(zones []signal.ConfluenceZone) float64 {
	var bestBull, bestBear float64
	for _, z := range zones {
		switch z.Sentiment {
		case signal.SentimentBullish:
			if z.Score > bestBull {
				bestBull = z.Score
			}
		case signal.SentimentBearish:
			if z.Score > bestBear {
				bestBear = z.Score
			}
		}
	}
	return bestBull - bestBear
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
