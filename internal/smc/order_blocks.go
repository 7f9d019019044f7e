package smc

import (
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/ranges"
)

// detectOrderBlocks finds the last opposing candle before a
// displacement move. The element range is the body of the originating
// bar. atr sets the displacement scale.
func (d *Detector) detectOrderBlocks(symbol string, tf signal.Timeframe, bars []market_data.Bar, atr float64) []*signal.SMCElement {
	if atr <= 0 {
		return nil
	}
	minMove := d.cfg.DisplacementATR * atr

	elements := make([]*signal.SMCElement, 0)

	// Leave room for the displacement window after the candidate bar.
	for i := 1; i < len(bars)-displacementWindow; i++ {
		candidate := bars[i]

		// Displacement up after a bearish candle: bullish order block.
		if candidate.IsBearish() {
			highest := candidate.High
			for j := 1; j <= displacementWindow; j++ {
				if bars[i+j].High > highest {
					highest = bars[i+j].High
				}
			}
			if highest-candidate.Low >= minMove {
				elements = append(elements, signal.NewSMCElement(
					symbol, tf, signal.KindOrderBlock, signal.SentimentBullish,
					ranges.New(candidate.Open, candidate.Close),
					i, candidate.OpenTime,
					orderBlockStrength(highest-candidate.Low, atr, relativeVolume(bars, i)),
				))
			}
		}

		// Displacement down after a bullish candle: bearish order block.
		if candidate.IsBullish() {
			lowest := candidate.Low
			for j := 1; j <= displacementWindow; j++ {
				if bars[i+j].Low < lowest {
					lowest = bars[i+j].Low
				}
			}
			if candidate.High-lowest >= minMove {
				elements = append(elements, signal.NewSMCElement(
					symbol, tf, signal.KindOrderBlock, signal.SentimentBearish,
					ranges.New(candidate.Open, candidate.Close),
					i, candidate.OpenTime,
					orderBlockStrength(candidate.High-lowest, atr, relativeVolume(bars, i)),
				))
			}
		}
	}
	return elements
}

// displacementWindow is how many bars after the candidate may carry
// the move.
const displacementWindow = 3

// orderBlockStrength grades a block by displacement size and volume.
// Larger, higher-volume displacements make stronger blocks.
func orderBlockStrength(move, atr, volRatio float64) float64 {
	strength := 0.4
	strength += 0.15 * (move/atr - 1.0)
	if volRatio > 1.5 {
		strength += 0.15
	} else if volRatio > 1.0 {
		strength += 0.05
	}
	if strength > 1 {
		return 1
	}
	if strength < 0.1 {
		return 0.1
	}
	return strength
}

// relativeVolume compares a bar's volume against the series average.
func relativeVolume(bars []market_data.Bar, i int) float64 {
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	avg := sum / float64(len(bars))
	if avg == 0 {
		return 1
	}
	return bars[i].Volume / avg
}
