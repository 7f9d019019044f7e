package engine

import (
	"time"

	"augur/internal/domain/signal"
)

// Aggregator reconciles per-timeframe sentiments into one dominant
// verdict. Longer timeframes carry more weight; D1 dominates.
type Aggregator struct {
	// CrossTFBonusPerMatch is added to final confidence for each pair
	// of timeframes that place a same-direction signal at the same
	// price level, up to CrossTFBonusCap.
	CrossTFBonusPerMatch float64
	CrossTFBonusCap      float64

	// LevelTolerance is the relative price tolerance for treating two
	// key levels as the same (fraction of price).
	LevelTolerance float64
}

// DefaultAggregator returns production aggregation settings.
func DefaultAggregator() *Aggregator {
	return &Aggregator{
		CrossTFBonusPerMatch: 0.05,
		CrossTFBonusCap:      0.25,
		LevelTolerance:       0.002,
	}
}

// Aggregate computes the weighted vote across timeframes. An exactly
// zero weighted sum resolves to neutral. Alignment is the fraction of
// total weight agreeing with the dominant sentiment; 1.0 means
// unanimity.
func (a *Aggregator) Aggregate(symbol string, evaluatedAt time.Time, tfs []signal.TimeframeSentiment, price float64, modelVersion string) signal.AggregatedSentiment {
	agg := signal.AggregatedSentiment{
		Symbol:       symbol,
		EvaluatedAt:  evaluatedAt,
		Dominant:     signal.SentimentNeutral,
		ByTimeframe:  tfs,
		PriceAtEval:  price,
		ModelVersion: modelVersion,
	}
	if len(tfs) == 0 {
		return agg
	}

	var vote, totalWeight float64
	for _, tf := range tfs {
		weight := tf.Timeframe.Weight()
		totalWeight += weight
		vote += tf.Sentiment.Direction() * weight * tf.Confidence
	}
	agg.Dominant = signal.FromDirection(vote)

	var agreeing float64
	for _, tf := range tfs {
		if tf.Sentiment == agg.Dominant {
			agreeing += tf.Timeframe.Weight()
		}
	}
	if totalWeight > 0 {
		agg.AlignmentScore = agreeing / totalWeight
		agg.Confidence = clamp(abs(vote)/totalWeight, 0, 1)
	}

	if agg.Dominant != signal.SentimentNeutral {
		agg.Confidence = clamp(agg.Confidence+a.crossTimeframeBonus(tfs, agg.Dominant, price), 0, 1)
	}
	return agg
}

// crossTimeframeBonus rewards distinct timeframes pointing at the same
// price region in the dominant direction.
func (a *Aggregator) crossTimeframeBonus(tfs []signal.TimeframeSentiment, dominant signal.Sentiment, price float64) float64 {
	tolerance := a.LevelTolerance * price

	bonus := 0.0
	for i := 0; i < len(tfs); i++ {
		if tfs[i].Sentiment != dominant {
			continue
		}
		for j := i + 1; j < len(tfs); j++ {
			if tfs[j].Sentiment != dominant {
				continue
			}
			if levelsCoincide(tfs[i], tfs[j], tolerance) {
				bonus += a.CrossTFBonusPerMatch
				if bonus >= a.CrossTFBonusCap {
					return a.CrossTFBonusCap
				}
			}
		}
	}
	return bonus
}

func levelsCoincide(a, b signal.TimeframeSentiment, tolerance float64) bool {
	for _, la := range a.KeyLevels {
		for _, lb := range b.KeyLevels {
			if la.WithinTolerance(lb, tolerance) {
				return true
			}
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
