package smc

import (
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
)

// swingPoint is a local extreme with its bar index.
type swingPoint struct {
	price float64
	index int
}

// findSwingHighs returns bars whose high exceeds every high within
// lookback bars on both sides. Bars are chronological, oldest first.
func findSwingHighs(bars []market_data.Bar, lookback int) []swingPoint {
	points := make([]swingPoint, 0)
	for i := lookback; i < len(bars)-lookback; i++ {
		bar := bars[i]
		isSwing := true
		for j := 1; j <= lookback; j++ {
			if bars[i+j].High >= bar.High || bars[i-j].High >= bar.High {
				isSwing = false
				break
			}
		}
		if isSwing {
			points = append(points, swingPoint{price: bar.High, index: i})
		}
	}
	return points
}

// findSwingLows returns bars whose low undercuts every low within
// lookback bars on both sides.
func findSwingLows(bars []market_data.Bar, lookback int) []swingPoint {
	points := make([]swingPoint, 0)
	for i := lookback; i < len(bars)-lookback; i++ {
		bar := bars[i]
		isSwing := true
		for j := 1; j <= lookback; j++ {
			if bars[i+j].Low <= bar.Low || bars[i-j].Low <= bar.Low {
				isSwing = false
				break
			}
		}
		if isSwing {
			points = append(points, swingPoint{price: bar.Low, index: i})
		}
	}
	return points
}

// structuralTrend classifies the prevailing trend from swing
// progression: consecutive higher highs plus higher lows make an
// uptrend, lower highs plus lower lows a downtrend, anything else is
// ranging. A terminal break of the most recent swing against that
// reading (change of character) flips the verdict to ranging.
func structuralTrend(bars []market_data.Bar, lookback int) signal.StructureTrend {
	highs := findSwingHighs(bars, lookback)
	lows := findSwingLows(bars, lookback)

	var hh, hl, lh, ll int
	for i := 1; i < len(highs); i++ {
		if highs[i].price > highs[i-1].price {
			hh++
		} else {
			lh++
		}
	}
	for i := 1; i < len(lows); i++ {
		if lows[i].price > lows[i-1].price {
			hl++
		} else {
			ll++
		}
	}

	trend := signal.TrendRanging
	switch {
	case hh >= 2 && hl >= 2:
		trend = signal.TrendUp
	case lh >= 2 && ll >= 2:
		trend = signal.TrendDown
	}

	if trend == signal.TrendRanging || len(bars) == 0 {
		return trend
	}

	// Change of character: latest close violating the last protected
	// swing invalidates the trend reading.
	lastClose := bars[len(bars)-1].Close
	if trend == signal.TrendUp && len(lows) > 0 {
		if lastClose < lows[len(lows)-1].price {
			return signal.TrendRanging
		}
	}
	if trend == signal.TrendDown && len(highs) > 0 {
		if lastClose > highs[len(highs)-1].price {
			return signal.TrendRanging
		}
	}
	return trend
}

// avgTrueRange is a plain ATR over the last period bars, used for
// detection tolerances.
func avgTrueRange(bars []market_data.Bar, period int) float64 {
	if len(bars) < 2 {
		return 0
	}
	if period >= len(bars) {
		period = len(bars) - 1
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += bars[i].TrueRange(bars[i-1].Close)
	}
	return sum / float64(period)
}
