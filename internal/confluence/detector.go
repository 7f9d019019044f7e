package confluence

import (
	"github.com/google/uuid"

	"augur/internal/domain/signal"
	"augur/pkg/logger"
	"augur/pkg/ranges"
)

// Config tunes confluence zone detection.
type Config struct {
	// Base is the starting score for any pair of agreeing elements.
	Base float64

	// ExtraContributorIncrement is added per contributor beyond two,
	// up to ExtraContributorCap in total.
	ExtraContributorIncrement float64
	ExtraContributorCap       float64

	// KindVarietyIncrement is added when contributors span at least
	// two distinct element kinds — independent signal types agreeing.
	KindVarietyIncrement float64

	// LiquidityIncrement is added when a liquidity zone participates.
	LiquidityIncrement float64

	// EquilibriumIncrement is added when the zone sits on the right
	// side of equilibrium: discount for bullish, premium for bearish.
	EquilibriumIncrement float64

	// QualityIncrement is added when the mean contributor quality
	// clears QualityFloor.
	QualityIncrement float64
	QualityFloor     float64

	// EmitThreshold is the minimum score for a zone to be emitted.
	EmitThreshold float64

	// ToleranceATRFactor scales the range-proximity tolerance by ATR.
	ToleranceATRFactor float64
}

// DefaultConfig returns production confluence settings.
func DefaultConfig() Config {
	return Config{
		Base:                      0.5,
		ExtraContributorIncrement: 0.1,
		ExtraContributorCap:       0.2,
		KindVarietyIncrement:      0.15,
		LiquidityIncrement:        0.1,
		EquilibriumIncrement:      0.05,
		QualityIncrement:          0.1,
		QualityFloor:              0.6,
		EmitThreshold:             0.7,
		ToleranceATRFactor:        0.5,
	}
}

// Detector finds price regions where multiple independent signals
// agree. Zones are a derived, read-only view: the same element may sit
// in several zones.
type Detector struct {
	cfg Config
	log *logger.Logger
}

// NewDetector creates a confluence detector.
func NewDetector(cfg Config) *Detector {
	return &Detector{
		cfg: cfg,
		log: logger.Get().With("component", "confluence_detector"),
	}
}

// Find groups same-direction signals whose ranges overlap (or sit
// within an ATR-scaled tolerance) and scores each group. equilibrium
// is the midpoint of the recent swing range; pass 0 when unknown.
func (d *Detector) Find(signals []signal.ScoredSignal, atr, equilibrium float64) []signal.ConfluenceZone {
	if len(signals) < 2 {
		return nil
	}
	tolerance := d.cfg.ToleranceATRFactor * atr

	zones := make([]signal.ConfluenceZone, 0)
	for _, sentiment := range []signal.Sentiment{signal.SentimentBullish, signal.SentimentBearish} {
		zones = append(zones, d.findDirectional(signals, sentiment, tolerance, equilibrium)...)
	}
	return zones
}

func (d *Detector) findDirectional(all []signal.ScoredSignal, sentiment signal.Sentiment, tolerance, equilibrium float64) []signal.ConfluenceZone {
	group := make([]signal.ScoredSignal, 0)
	for _, sc := range all {
		if sc.Element != nil && sc.Element.Sentiment == sentiment {
			group = append(group, sc)
		}
	}
	if len(group) < 2 {
		return nil
	}

	zones := make([]signal.ConfluenceZone, 0)
	used := make([]bool, len(group))

	for i := range group {
		if used[i] {
			continue
		}
		cluster := []signal.ScoredSignal{group[i]}
		span := group[i].Element.PriceRange
		used[i] = true

		// Greedy growth: anything near the accumulated span joins.
		for j := i + 1; j < len(group); j++ {
			if used[j] {
				continue
			}
			if span.WithinTolerance(group[j].Element.PriceRange, tolerance) {
				cluster = append(cluster, group[j])
				span = span.Union(group[j].Element.PriceRange)
				used[j] = true
			}
		}

		if len(cluster) < 2 {
			continue
		}

		score := d.scoreCluster(cluster, sentiment, equilibrium)
		if score < d.cfg.EmitThreshold {
			continue
		}

		ids := make([]uuid.UUID, len(cluster))
		for k, sc := range cluster {
			ids[k] = sc.Element.ID
		}
		zones = append(zones, signal.ConfluenceZone{
			PriceRange: span,
			Sentiment:  sentiment,
			ElementIDs: ids,
			Score:      score,
		})
	}
	return zones
}

// scoreCluster starts from the base and adds fixed increments per
// agreeing factor, capped at 1.
func (d *Detector) scoreCluster(cluster []signal.ScoredSignal, sentiment signal.Sentiment, equilibrium float64) float64 {
	score := d.cfg.Base

	extra := float64(len(cluster)-2) * d.cfg.ExtraContributorIncrement
	if extra > d.cfg.ExtraContributorCap {
		extra = d.cfg.ExtraContributorCap
	}
	score += extra

	kinds := make(map[signal.ElementKind]bool, 3)
	hasLiquidity := false
	qualitySum := 0.0
	span := cluster[0].Element.PriceRange
	for _, sc := range cluster {
		kinds[sc.Element.Kind] = true
		if sc.Element.Kind == signal.KindLiquidityZone {
			hasLiquidity = true
		}
		qualitySum += sc.QualityScore
		span = span.Union(sc.Element.PriceRange)
	}

	if len(kinds) >= 2 {
		score += d.cfg.KindVarietyIncrement
	}
	if hasLiquidity {
		score += d.cfg.LiquidityIncrement
	}
	if equilibrium > 0 && alignedWithEquilibrium(span, sentiment, equilibrium) {
		score += d.cfg.EquilibriumIncrement
	}
	if qualitySum/float64(len(cluster)) >= d.cfg.QualityFloor {
		score += d.cfg.QualityIncrement
	}

	if score > 1 {
		return 1
	}
	return score
}

// alignedWithEquilibrium reports whether the zone sits in discount for
// a bullish read or in premium for a bearish one.
func alignedWithEquilibrium(span ranges.Range, sentiment signal.Sentiment, equilibrium float64) bool {
	if sentiment == signal.SentimentBullish {
		return span.Mid() < equilibrium
	}
	return span.Mid() > equilibrium
}
