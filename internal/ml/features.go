package ml

import (
	"augur/internal/domain/signal"
	"augur/internal/indicators"
)

// FeatureCount is the width of the model input vector. Training and
// inference must agree on it.
const FeatureCount = 14

// BuildFeatureVector flattens an indicator snapshot plus structural
// context into the model input. Order is part of the model contract;
// never reorder without retraining.
func BuildFeatureVector(snap *indicators.Snapshot, smcDirection float64, trend signal.StructureTrend) []float64 {
	bandWidth := snap.BollingerUpper - snap.BollingerLower
	bandPosition := 0.0
	if bandWidth > 0 {
		bandPosition = (snap.Price - snap.BollingerMid) / bandWidth
	}

	return []float64{
		snap.RSI14 / 100,
		snap.MACDHistogram,
		snap.StochK / 100,
		snap.StochD / 100,
		ratioMinusOne(snap.EMA9, snap.EMA21),
		ratioMinusOne(snap.EMA21, snap.EMA55),
		ratioMinusOne(snap.Price, snap.EMA55),
		snap.ADX14 / 100,
		snap.ATRRatio,
		bandPosition,
		snap.VolumeRatio,
		snap.OBVSlope,
		smcDirection,
		trendDirection(trend),
	}
}

func ratioMinusOne(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a/b - 1
}

func trendDirection(t signal.StructureTrend) float64 {
	switch t {
	case signal.TrendUp:
		return 1
	case signal.TrendDown:
		return -1
	}
	return 0
}
