package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/domain/signal"
	"augur/internal/indicators"
)

func TestBuildFeatureVector(t *testing.T) {
	snap := &indicators.Snapshot{
		Price:          102,
		RSI14:          62,
		MACDHistogram:  0.4,
		StochK:         70,
		StochD:         65,
		EMA9:           101,
		EMA21:          100,
		EMA55:          98,
		ADX14:          28,
		ATRRatio:       1.1,
		BollingerUpper: 104,
		BollingerMid:   100,
		BollingerLower: 96,
		VolumeRatio:    1.3,
		OBVSlope:       1,
	}

	features := BuildFeatureVector(snap, 0.6, signal.TrendUp)
	require.Len(t, features, FeatureCount)

	assert.InDelta(t, 0.62, features[0], 1e-9)
	assert.InDelta(t, 0.4, features[1], 1e-9)
	assert.InDelta(t, 0.70, features[2], 1e-9)
	assert.InDelta(t, 0.65, features[3], 1e-9)
	assert.InDelta(t, 101.0/100.0-1, features[4], 1e-9)
	assert.InDelta(t, 100.0/98.0-1, features[5], 1e-9)
	assert.InDelta(t, 102.0/98.0-1, features[6], 1e-9)
	assert.InDelta(t, 0.28, features[7], 1e-9)
	assert.InDelta(t, 1.1, features[8], 1e-9)
	// (price - mid) / band width
	assert.InDelta(t, 2.0/8.0, features[9], 1e-9)
	assert.InDelta(t, 1.3, features[10], 1e-9)
	assert.InDelta(t, 1.0, features[11], 1e-9)
	assert.InDelta(t, 0.6, features[12], 1e-9)
	assert.InDelta(t, 1.0, features[13], 1e-9)
}

func TestBuildFeatureVectorDegenerateInputs(t *testing.T) {
	// Zero EMAs and a collapsed band must not divide by zero.
	features := BuildFeatureVector(&indicators.Snapshot{}, 0, signal.TrendRanging)
	require.Len(t, features, FeatureCount)
	for i, f := range features {
		assert.Zero(t, f, "feature %d", i)
	}
}

func TestTrendDirectionEncoding(t *testing.T) {
	assert.Equal(t, 1.0, trendDirection(signal.TrendUp))
	assert.Equal(t, -1.0, trendDirection(signal.TrendDown))
	assert.Equal(t, 0.0, trendDirection(signal.TrendRanging))
}
