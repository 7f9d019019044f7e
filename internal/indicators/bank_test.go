package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/domain/market_data"
	"augur/pkg/errors"
)

// driftSeries walks price by step per bar with a small alternating
// wiggle so every indicator has nonzero range to work with.
func driftSeries(n int, step float64) []market_data.Bar {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	bars := make([]market_data.Bar, 0, n)
	for i := 0; i < n; i++ {
		c := 100 + step*float64(i)
		if i%2 == 0 {
			c += 0.1
		}
		bars = append(bars, market_data.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "H1",
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      c - 0.2,
			High:      c + 0.3,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
		})
	}
	return bars
}

func TestComputeRequiresMinBars(t *testing.T) {
	b := NewBank(0)

	_, err := b.Compute(driftSeries(MinBars-1, 0.5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrDataUnavailable))
}

func TestComputeUptrend(t *testing.T) {
	b := NewBank(0)
	series := driftSeries(120, 0.5)

	snap, err := b.Compute(series)
	require.NoError(t, err)

	assert.Equal(t, series[len(series)-1].Close, snap.Price)
	assert.Greater(t, snap.RSI14, 50.0)
	assert.Greater(t, snap.EMA9, snap.EMA21)
	assert.Greater(t, snap.EMA21, snap.EMA55)
	assert.Greater(t, snap.ADX14, 0.0)
	assert.Greater(t, snap.ATR14, 0.0)
	assert.Greater(t, snap.ATRRatio, 0.0)
	assert.Greater(t, snap.BollingerUpper, snap.BollingerMid)
	assert.Greater(t, snap.BollingerMid, snap.BollingerLower)
	assert.Zero(t, snap.EMA200, "series too short for the 200 EMA")

	assert.Greater(t, snap.Score(), 0.0)
}

func TestComputeDowntrend(t *testing.T) {
	b := NewBank(0)

	snap, err := b.Compute(driftSeries(120, -0.5))
	require.NoError(t, err)

	assert.Less(t, snap.RSI14, 50.0)
	assert.Less(t, snap.EMA9, snap.EMA21)
	assert.Less(t, snap.Score(), 0.0)
}

func TestComputeLongSeriesFillsEMA200(t *testing.T) {
	b := NewBank(0)

	snap, err := b.Compute(driftSeries(220, 0.5))
	require.NoError(t, err)
	assert.Greater(t, snap.EMA200, 0.0)
}

func TestSnapshotScoreComponents(t *testing.T) {
	bullish := Snapshot{
		Price:         105,
		RSI14:         25, // oversold
		MACDHistogram: 0.5,
		StochK:        40,
		StochD:        30,
		EMA9:          104, EMA21: 103, EMA55: 102,
		BollingerMid: 100,
		VolumeRatio:  1.2,
		OBVSlope:     1,
	}
	assert.InDelta(t, 1.0, bullish.Score(), 1e-9)

	bearish := Snapshot{
		Price:         95,
		RSI14:         75,
		MACDHistogram: -0.5,
		StochK:        60,
		StochD:        70,
		EMA9:          96, EMA21: 97, EMA55: 98,
		BollingerMid: 100,
		VolumeRatio:  1.2,
		OBVSlope:     -1,
	}
	assert.InDelta(t, -1.0, bearish.Score(), 1e-9)

	flat := Snapshot{
		Price:        100,
		RSI14:        50,
		BollingerMid: 100,
		EMA9:         100, EMA21: 100, EMA55: 100,
	}
	assert.Zero(t, flat.Score())
}
