package smc

import (
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/logger"
)

// Config tunes SMC pattern detection.
type Config struct {
	// MinLookback is the shortest bar series worth scanning. Shorter
	// input produces no elements, which is not an error.
	MinLookback int

	// SwingLookback is how many bars on each side must confirm a swing
	// point.
	SwingLookback int

	// DisplacementATR is the minimum post-candle move, in ATR
	// multiples, for an order block.
	DisplacementATR float64

	// MinGapATRFraction is the minimum FVG size as a fraction of ATR.
	MinGapATRFraction float64

	// ClusterATRFactor scales the equal-high/low clustering tolerance.
	ClusterATRFactor float64

	// MinClusterSize is the minimum swing points per liquidity zone.
	MinClusterSize int

	// ATRPeriod is the lookback for the detection-scale ATR.
	ATRPeriod int
}

// DefaultConfig returns production detection settings.
func DefaultConfig() Config {
	return Config{
		MinLookback:       20,
		SwingLookback:     5,
		DisplacementATR:   1.5,
		MinGapATRFraction: 0.25,
		ClusterATRFactor:  0.5,
		MinClusterSize:    2,
		ATRPeriod:         14,
	}
}

// Detection is the result of one scan over a bar series.
type Detection struct {
	NewElements []*signal.SMCElement
	Trend       signal.StructureTrend
	ATR         float64
}

// Detector finds order blocks, fair value gaps and liquidity zones in
// a bar series.
type Detector struct {
	cfg Config
	log *logger.Logger
}

// NewDetector creates a detector with the given config.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg: cfg,
		log: logger.Get().With("component", "smc_detector"),
	}
}

// Detect scans chronological bars for SMC elements. Previously known
// elements are used for containment dedup: a new zone lying inside an
// existing zone of the same kind and direction is discarded, as is a
// smaller duplicate within this scan. Invalidated existing zones still
// suppress rediscovery, otherwise a dead zone inside the lookback
// window would come back on the next scan. Insufficient lookback
// yields an empty detection.
func (d *Detector) Detect(symbol string, tf signal.Timeframe, bars []market_data.Bar, existing []*signal.SMCElement) *Detection {
	det := &Detection{Trend: signal.TrendRanging}

	if len(bars) < d.cfg.MinLookback {
		d.log.Debugw("series below minimum lookback, skipping detection",
			"symbol", symbol, "timeframe", tf, "bars", len(bars))
		return det
	}

	atr := avgTrueRange(bars, d.cfg.ATRPeriod)
	det.ATR = atr
	det.Trend = structuralTrend(bars, d.cfg.SwingLookback)
	if atr <= 0 {
		return det
	}

	candidates := make([]*signal.SMCElement, 0)
	candidates = append(candidates, d.detectOrderBlocks(symbol, tf, bars, atr)...)
	candidates = append(candidates, d.detectFVG(symbol, tf, bars, atr)...)
	candidates = append(candidates, d.detectLiquidityZones(symbol, tf, bars, atr)...)

	det.NewElements = dedupe(candidates, existing)

	d.log.Debugw("SMC detection complete",
		"symbol", symbol,
		"timeframe", tf,
		"candidates", len(candidates),
		"new_elements", len(det.NewElements),
		"trend", det.Trend,
	)
	return det
}

// dedupe drops candidates contained by an existing zone of the same
// kind and direction, active or not, then drops candidates contained
// by a larger accepted candidate. Invalid ranges never survive.
func dedupe(candidates []*signal.SMCElement, existing []*signal.SMCElement) []*signal.SMCElement {
	kept := make([]*signal.SMCElement, 0, len(candidates))

	for _, cand := range candidates {
		if !cand.PriceRange.Valid() {
			continue
		}
		contained := false
		for _, ex := range existing {
			if sameShape(ex, cand) && ex.PriceRange.Contains(cand.PriceRange) {
				contained = true
				break
			}
		}
		if contained {
			continue
		}
		for _, k := range kept {
			if sameShape(k, cand) && k.PriceRange.Contains(cand.PriceRange) {
				contained = true
				break
			}
		}
		if !contained {
			kept = append(kept, cand)
		}
	}
	return kept
}

func sameShape(a, b *signal.SMCElement) bool {
	return a.Kind == b.Kind && a.Sentiment == b.Sentiment
}
