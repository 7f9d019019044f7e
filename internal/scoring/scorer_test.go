package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/ranges"
)

var evalTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

func bullishBlock(strength float64) *signal.SMCElement {
	return signal.NewSMCElement(
		"BTCUSDT", signal.TimeframeH1,
		signal.KindOrderBlock, signal.SentimentBullish,
		ranges.New(99, 100), 0, evalTime, strength,
	)
}

// touchBar builds the i-th hourly bar of the series. Distinct bars
// carry distinct open times, which mitigation keys on.
func touchBar(i int, low, high float64) market_data.Bar {
	return market_data.Bar{
		Symbol: "BTCUSDT", Timeframe: "H1",
		OpenTime: evalTime.Add(time.Duration(i) * time.Hour),
		Open:     high, High: high, Low: low, Close: low, Volume: 100,
	}
}

func TestUpdateMitigationFillIsMonotonic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)

	changed := s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(0, 99.7, 100.5))
	require.Len(t, changed, 1)
	assert.InDelta(t, 0.3, el.FillFraction, 1e-9)
	assert.Equal(t, 1, el.TestedCount)

	// A shallower revisit counts as a test but never lowers the fill.
	s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(1, 99.9, 100.5))
	assert.InDelta(t, 0.3, el.FillFraction, 1e-9)
	assert.Equal(t, 2, el.TestedCount)
}

func TestUpdateMitigationAppliesEachBarOnce(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)
	bar := touchBar(0, 99.7, 100.5)

	// The window tail is re-read on every evaluation cycle, so the same
	// touching bar comes back many times before the next one closes.
	for i := 0; i < 60; i++ {
		changed := s.UpdateMitigation([]*signal.SMCElement{el}, bar)
		if i == 0 {
			require.Len(t, changed, 1)
		} else {
			assert.Empty(t, changed)
		}
	}

	assert.Equal(t, 1, el.TestedCount)
	assert.InDelta(t, 0.3, el.FillFraction, 1e-9)
	assert.False(t, el.Weakened)
}

func TestUpdateMitigationIgnoresUntouchedElements(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)

	changed := s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(0, 101, 102))
	assert.Empty(t, changed)
	assert.Zero(t, el.FillFraction)
	assert.Zero(t, el.TestedCount)
}

func TestUpdateMitigationWeakensOnce(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)

	s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(0, 99.4, 100.5))
	assert.InDelta(t, 0.6, el.FillFraction, 1e-9)
	assert.True(t, el.Weakened)
	assert.InDelta(t, 0.4, el.BaseStrength, 1e-9)

	// Deeper penetration below the invalidation line does not stack the
	// penalty.
	s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(1, 99.35, 100.5))
	assert.InDelta(t, 0.65, el.FillFraction, 1e-9)
	assert.InDelta(t, 0.4, el.BaseStrength, 1e-9)
	assert.True(t, el.Active)
}

func TestUpdateMitigationInvalidationIsTerminal(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)

	changed := s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(0, 99.1, 100.5))
	require.Len(t, changed, 1)
	assert.False(t, el.Active)
	assert.Zero(t, el.BaseStrength)

	// Dead elements are skipped entirely.
	changed = s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(1, 99.5, 100.5))
	assert.Empty(t, changed)
	assert.False(t, el.Active)
}

func TestUpdateMitigationBearishPenetratesFromBelow(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := signal.NewSMCElement(
		"BTCUSDT", signal.TimeframeH1,
		signal.KindOrderBlock, signal.SentimentBearish,
		ranges.New(100, 101), 0, evalTime, 0.8,
	)

	s.UpdateMitigation([]*signal.SMCElement{el}, touchBar(0, 99.5, 100.5))
	assert.InDelta(t, 0.5, el.FillFraction, 1e-9)
	assert.True(t, el.Weakened)
}

func TestScoreFreshnessBonus(t *testing.T) {
	s := NewScorer(DefaultConfig())
	fresh := bullishBlock(0.8)
	tested := bullishBlock(0.8)
	tested.TestedCount = 1

	scored := s.Score([]*signal.SMCElement{fresh, tested}, evalTime, 1.0, signal.TrendRanging)
	require.Len(t, scored, 2)
	assert.InDelta(t, 0.96, scored[0].QualityScore, 1e-9)
	assert.InDelta(t, 0.80, scored[1].QualityScore, 1e-9)
}

func TestScoreHalfLifeDecay(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)
	el.CreatedAt = evalTime.Add(-20 * time.Hour) // 20 H1 bars

	scored := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendRanging)
	require.Len(t, scored, 1)
	assert.Equal(t, 20, scored[0].AgeInBars)
	assert.InDelta(t, 0.48, scored[0].QualityScore, 1e-9)
}

func TestScoreSizeFactorFloor(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := signal.NewSMCElement(
		"BTCUSDT", signal.TimeframeH1,
		signal.KindFairValueGap, signal.SentimentBullish,
		ranges.New(99.95, 100.0), 0, evalTime, 0.8,
	)

	// Width 0.05 against an ATR of 1 sits far below the floor of 0.25.
	scored := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendRanging)
	require.Len(t, scored, 1)
	assert.InDelta(t, 0.8*1.2*0.25, scored[0].QualityScore, 1e-9)
}

func TestScoreTrendAlignment(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.6)

	aligned := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendUp)
	require.Len(t, aligned, 1)
	assert.InDelta(t, 0.6*1.2*1.15, aligned[0].QualityScore, 1e-9)

	against := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendDown)
	require.Len(t, against, 1)
	assert.InDelta(t, 0.6*1.2, against[0].QualityScore, 1e-9)
}

func TestScoreClampsToOne(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(1.0)

	scored := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendUp)
	require.Len(t, scored, 1)
	assert.Equal(t, 1.0, scored[0].QualityScore)
}

func TestScoreSkipsInactive(t *testing.T) {
	s := NewScorer(DefaultConfig())
	el := bullishBlock(0.8)
	el.Invalidate()

	scored := s.Score([]*signal.SMCElement{el}, evalTime, 1.0, signal.TrendRanging)
	assert.Empty(t, scored)
}
