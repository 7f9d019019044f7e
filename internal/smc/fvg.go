package smc

import (
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/ranges"
)

// detectFVG finds three-bar fair value gaps. With chronological bars, a
// bullish gap exists where bars[i-1].High < bars[i+1].Low — the middle
// bar moved so fast it left the imbalance. Gaps smaller than
// MinGapATRFraction of the ATR are noise and skipped.
func (d *Detector) detectFVG(symbol string, tf signal.Timeframe, bars []market_data.Bar, atr float64) []*signal.SMCElement {
	if atr <= 0 {
		return nil
	}
	minGap := d.cfg.MinGapATRFraction * atr

	elements := make([]*signal.SMCElement, 0)

	for i := 1; i < len(bars)-1; i++ {
		prev := bars[i-1]
		middle := bars[i]
		next := bars[i+1]

		// Bullish FVG: gap between prev high and next low.
		if next.Low > prev.High {
			gap := next.Low - prev.High
			if gap >= minGap {
				elements = append(elements, signal.NewSMCElement(
					symbol, tf, signal.KindFairValueGap, signal.SentimentBullish,
					ranges.Range{Low: prev.High, High: next.Low},
					i, middle.OpenTime,
					fvgStrength(gap, atr),
				))
			}
		}

		// Bearish FVG: gap between next high and prev low.
		if next.High < prev.Low {
			gap := prev.Low - next.High
			if gap >= minGap {
				elements = append(elements, signal.NewSMCElement(
					symbol, tf, signal.KindFairValueGap, signal.SentimentBearish,
					ranges.Range{Low: next.High, High: prev.Low},
					i, middle.OpenTime,
					fvgStrength(gap, atr),
				))
			}
		}
	}
	return elements
}

// fvgStrength grades a gap by its size relative to ATR, capped at 1.
func fvgStrength(gap, atr float64) float64 {
	strength := 0.4 + 0.3*(gap/atr)
	if strength > 1 {
		return 1
	}
	return strength
}
