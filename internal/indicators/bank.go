package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"augur/internal/domain/market_data"
	"augur/pkg/errors"
)

// MinBars is the shortest series the bank will evaluate. The 55-period
// EMA is the longest warm-up among the default readings.
const MinBars = 55

// Snapshot holds one evaluation's worth of classical indicator
// readings for a bar series.
type Snapshot struct {
	Price float64

	// Momentum
	RSI14         float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	StochK        float64
	StochD        float64

	// Trend
	EMA9   float64
	EMA21  float64
	EMA55  float64
	EMA200 float64 // zero when the series is too short
	ADX14  float64

	// Volatility
	ATR14          float64
	ATRRatio       float64 // current ATR / rolling average ATR
	BollingerUpper float64
	BollingerMid   float64
	BollingerLower float64

	// Volume
	VolumeRatio float64 // last volume / 20-bar average
	OBVSlope    float64 // sign of recent OBV drift
}

// Bank computes classical technical indicators from a chronological
// bar series.
type Bank struct {
	atrAvgWindow int
}

// NewBank creates an indicator bank. atrAvgWindow sets the rolling
// window used for the ATR volatility ratio (default 50 when <= 0).
func NewBank(atrAvgWindow int) *Bank {
	if atrAvgWindow <= 0 {
		atrAvgWindow = 50
	}
	return &Bank{atrAvgWindow: atrAvgWindow}
}

// Compute builds a Snapshot from bars ordered oldest first.
func (b *Bank) Compute(bars []market_data.Bar) (*Snapshot, error) {
	if len(bars) < MinBars {
		return nil, errors.Wrapf(errors.ErrDataUnavailable,
			"indicators need at least %d bars, got %d", MinBars, len(bars))
	}

	high, low, closes, volume := split(bars)

	snap := &Snapshot{Price: closes[len(closes)-1]}

	rsi := talib.Rsi(closes, 14)
	snap.RSI14 = last(rsi)

	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	snap.MACD = last(macd)
	snap.MACDSignal = last(macdSignal)
	snap.MACDHistogram = last(macdHist)

	slowK, slowD := talib.Stoch(high, low, closes, 14, 3, talib.SMA, 3, talib.SMA)
	snap.StochK = last(slowK)
	snap.StochD = last(slowD)

	snap.EMA9 = last(talib.Ema(closes, 9))
	snap.EMA21 = last(talib.Ema(closes, 21))
	snap.EMA55 = last(talib.Ema(closes, 55))
	if len(closes) >= 200 {
		snap.EMA200 = last(talib.Ema(closes, 200))
	}

	snap.ADX14 = last(talib.Adx(high, low, closes, 14))

	atr := talib.Atr(high, low, closes, 14)
	snap.ATR14 = last(atr)
	snap.ATRRatio = atrRatio(atr, b.atrAvgWindow)

	upper, mid, lower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)
	snap.BollingerUpper = last(upper)
	snap.BollingerMid = last(mid)
	snap.BollingerLower = last(lower)

	snap.VolumeRatio = volumeRatio(volume, 20)
	snap.OBVSlope = obvSlope(closes, volume, 10)

	return snap, nil
}

// Score condenses the snapshot into a directional reading in [-1, 1].
// Positive is bullish. Each component votes with a fixed weight; the
// sum is clamped.
func (s *Snapshot) Score() float64 {
	var score float64

	// RSI: oversold argues up, overbought argues down
	switch {
	case s.RSI14 < 30:
		score += 0.25
	case s.RSI14 > 70:
		score -= 0.25
	case s.RSI14 > 55:
		score += 0.10
	case s.RSI14 < 45:
		score -= 0.10
	}

	// MACD histogram direction
	switch {
	case s.MACDHistogram > 0:
		score += 0.20
	case s.MACDHistogram < 0:
		score -= 0.20
	}

	// EMA ribbon alignment
	switch {
	case s.EMA9 > s.EMA21 && s.EMA21 > s.EMA55:
		score += 0.30
	case s.EMA9 < s.EMA21 && s.EMA21 < s.EMA55:
		score -= 0.30
	}

	// Price vs mid Bollinger
	switch {
	case s.Price > s.BollingerMid:
		score += 0.10
	case s.Price < s.BollingerMid:
		score -= 0.10
	}

	// Stochastic cross
	switch {
	case s.StochK > s.StochD && s.StochK < 80:
		score += 0.10
	case s.StochK < s.StochD && s.StochK > 20:
		score -= 0.10
	}

	// Volume-confirmed OBV drift
	if s.VolumeRatio > 1.0 {
		score += 0.05 * s.OBVSlope
	}

	return clamp(score, -1, 1)
}

func split(bars []market_data.Bar) (high, low, closes, volume []float64) {
	high = make([]float64, len(bars))
	low = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	volume = make([]float64, len(bars))
	for i, bar := range bars {
		high[i] = bar.High
		low[i] = bar.Low
		closes[i] = bar.Close
		volume[i] = bar.Volume
	}
	return
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// atrRatio compares the latest ATR against its rolling average over
// window values, skipping the talib warm-up zeros.
func atrRatio(atr []float64, window int) float64 {
	valid := atr[:0:0]
	for _, v := range atr {
		if v > 0 {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return 1
	}
	if len(valid) < window {
		window = len(valid)
	}
	sum := 0.0
	for _, v := range valid[len(valid)-window:] {
		sum += v
	}
	avg := sum / float64(window)
	if avg == 0 {
		return 1
	}
	return valid[len(valid)-1] / avg
}

func volumeRatio(volume []float64, window int) float64 {
	if len(volume) == 0 {
		return 1
	}
	if len(volume) < window {
		window = len(volume)
	}
	sum := 0.0
	for _, v := range volume[len(volume)-window:] {
		sum += v
	}
	avg := sum / float64(window)
	if avg == 0 {
		return 1
	}
	return volume[len(volume)-1] / avg
}

// obvSlope returns the sign of the on-balance-volume drift over the
// last window bars.
func obvSlope(closes, volume []float64, window int) float64 {
	obv := talib.Obv(closes, volume)
	if len(obv) < window+1 {
		return 0
	}
	delta := obv[len(obv)-1] - obv[len(obv)-1-window]
	switch {
	case delta > 0:
		return 1
	case delta < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
