package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/domain/signal"
	"augur/pkg/ranges"
)

func baseInput() decisionInput {
	return decisionInput{
		Symbol:      "BTCUSDT",
		Timeframe:   signal.TimeframeH1,
		EvaluatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	bad := Weights{SMC: 0.5, Indicators: 0.25, ML: 0.20, Confluence: 0.15}
	assert.Error(t, bad.Validate(), "weights summing above 1 must fail")

	negative := Weights{SMC: 1.2, Indicators: -0.2, ML: 0, Confluence: 0}
	assert.Error(t, negative.Validate())
}

func TestWeightsWithoutMLRedistributes(t *testing.T) {
	w := DefaultWeights().withoutML()

	assert.Zero(t, w.ML)
	assert.InDelta(t, 1.0, w.SMC+w.Indicators+w.Confluence, 1e-9)
	// Proportions among the remaining components are preserved.
	assert.InDelta(t, 0.40/0.25, w.SMC/w.Indicators, 1e-9)
}

func TestDecideBullish(t *testing.T) {
	in := baseInput()
	in.SMCScore = 0.9
	in.IndicatorScore = 0.8
	in.Confluence = 0.8

	ts := decide(in, DefaultWeights(), 0.35)

	assert.Equal(t, signal.SentimentBullish, ts.Sentiment)
	assert.InDelta(t, 0.85, ts.RawScore, 1e-9)
	assert.InDelta(t, (0.85-0.35)/0.65, ts.Confidence, 1e-9)
	assert.Equal(t, 0.35, ts.ThresholdUsed)
}

func TestDecideBearish(t *testing.T) {
	in := baseInput()
	in.SMCScore = -0.9
	in.IndicatorScore = -0.8
	in.Confluence = -0.8

	ts := decide(in, DefaultWeights(), 0.35)

	assert.Equal(t, signal.SentimentBearish, ts.Sentiment)
	assert.InDelta(t, -0.85, ts.RawScore, 1e-9)
	assert.Greater(t, ts.Confidence, 0.0)
}

func TestDecideNeutralInsideThreshold(t *testing.T) {
	in := baseInput()
	in.SMCScore = 0.2
	in.IndicatorScore = 0.2
	in.Confluence = 0.2

	ts := decide(in, DefaultWeights(), 0.35)

	assert.Equal(t, signal.SentimentNeutral, ts.Sentiment)
	assert.Zero(t, ts.Confidence)
}

func TestDecideExactlyAtThresholdIsNeutral(t *testing.T) {
	in := baseInput()
	in.SMCScore = 0.35
	in.IndicatorScore = 0.35
	in.Confluence = 0.35
	in.MLScore = 0.35
	in.MLAvailable = true

	ts := decide(in, DefaultWeights(), 0.35)
	require.InDelta(t, 0.35, ts.RawScore, 1e-9)
	assert.Equal(t, signal.SentimentNeutral, ts.Sentiment)
}

func TestDecideMLVoteCounts(t *testing.T) {
	in := baseInput()
	in.SMCScore = 1
	in.IndicatorScore = 1
	in.Confluence = 1
	in.MLScore = -1
	in.MLAvailable = true

	ts := decide(in, DefaultWeights(), 0.35)

	// 0.40 + 0.25 - 0.20 + 0.15
	assert.InDelta(t, 0.60, ts.RawScore, 1e-9)
	assert.Equal(t, signal.SentimentBullish, ts.Sentiment)
	assert.InDelta(t, -1.0, ts.MLScore, 1e-9)
}

func TestSMCScoreDirection(t *testing.T) {
	assert.Zero(t, smcScore(nil))

	bull := signal.ScoredSignal{
		Element:      &signal.SMCElement{Sentiment: signal.SentimentBullish},
		QualityScore: 0.6,
	}
	bear := signal.ScoredSignal{
		Element:      &signal.SMCElement{Sentiment: signal.SentimentBearish},
		QualityScore: 0.2,
	}

	assert.InDelta(t, 1.0, smcScore([]signal.ScoredSignal{bull}), 1e-9)
	assert.InDelta(t, -1.0, smcScore([]signal.ScoredSignal{bear}), 1e-9)
	assert.InDelta(t, 0.5, smcScore([]signal.ScoredSignal{bull, bear}), 1e-9)
}

func TestConfluenceScoreUsesStrongestPerSide(t *testing.T) {
	zones := []signal.ConfluenceZone{
		{Sentiment: signal.SentimentBullish, Score: 0.75},
		{Sentiment: signal.SentimentBullish, Score: 0.90},
		{Sentiment: signal.SentimentBearish, Score: 0.80},
	}
	assert.InDelta(t, 0.10, confluenceScore(zones), 1e-9)
	assert.Zero(t, confluenceScore(nil))
}

func TestKeyLevelsTopNPlusZones(t *testing.T) {
	mk := func(q, lo, hi float64) signal.ScoredSignal {
		return signal.ScoredSignal{
			Element:      &signal.SMCElement{PriceRange: ranges.New(lo, hi)},
			QualityScore: q,
		}
	}
	scored := []signal.ScoredSignal{
		mk(0.2, 90, 91), mk(0.9, 100, 101), mk(0.5, 95, 96), mk(0.7, 98, 99),
	}
	zones := []signal.ConfluenceZone{
		{PriceRange: ranges.New(100, 102), Score: 0.8},
	}

	levels := keyLevels(scored, zones, 3)
	require.Len(t, levels, 4)
	assert.Equal(t, ranges.New(100, 101), levels[0])
	assert.Equal(t, ranges.New(98, 99), levels[1])
	assert.Equal(t, ranges.New(95, 96), levels[2])
	assert.Equal(t, ranges.New(100, 102), levels[3])
}
