package scoring

import (
	"math"
	"time"

	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	"augur/pkg/logger"
)

// Config tunes signal quality scoring and mitigation.
type Config struct {
	// InvalidationThreshold is the fill fraction at which an element
	// dies permanently.
	InvalidationThreshold float64

	// WeakenThreshold is the fill fraction that triggers the one-shot
	// strength penalty.
	WeakenThreshold float64

	// WeakenPenalty multiplies base strength when the weaken threshold
	// is crossed. Applied at most once per element.
	WeakenPenalty float64

	// FreshnessBonus multiplies the score of a never-tested element.
	FreshnessBonus float64

	// HalfLifeBars is the decay half-life: score halves every this
	// many bars of age.
	HalfLifeBars float64

	// TrendAlignBonus multiplies the score when the element direction
	// agrees with the structural trend.
	TrendAlignBonus float64

	// MinSizeFactor floors the ATR-normalized size contribution so
	// thin but valid zones keep a voice. The factor is capped at 1.
	MinSizeFactor float64
}

// DefaultConfig returns production scoring settings.
func DefaultConfig() Config {
	return Config{
		InvalidationThreshold: 0.8,
		WeakenThreshold:       0.5,
		WeakenPenalty:         0.5,
		FreshnessBonus:        1.2,
		HalfLifeBars:          20,
		TrendAlignBonus:       1.15,
		MinSizeFactor:         0.25,
	}
}

// Scorer owns all mutation of SMC element state: mitigation fill,
// tested counts, weakening and invalidation. Nothing else writes those
// fields. Quality scores are derived fresh every cycle from stored
// base strength plus age, never persisted.
type Scorer struct {
	cfg Config
	log *logger.Logger
}

// NewScorer creates a scorer with the given config.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{
		cfg: cfg,
		log: logger.Get().With("component", "quality_scorer"),
	}
}

// UpdateMitigation applies one new bar to every active element and
// returns the elements whose stored state changed. A bar an element
// has already been tested against is skipped, so replaying the window
// tail across evaluation cycles cannot inflate tested counts.
// Per-element problems are isolated: a malformed element is skipped
// and logged, never aborting the rest.
func (s *Scorer) UpdateMitigation(elements []*signal.SMCElement, bar market_data.Bar) []*signal.SMCElement {
	changed := make([]*signal.SMCElement, 0)

	for _, el := range elements {
		if el == nil || !el.Active {
			continue
		}
		if !el.PriceRange.Valid() {
			s.log.Warnw("skipping element with malformed range",
				"element_id", el.ID, "kind", el.Kind)
			continue
		}

		if s.applyBar(el, bar) {
			changed = append(changed, el)
		}
	}
	return changed
}

// applyBar runs the mitigation state machine for one element against
// one bar. Each bar is applied at most once per element, so a touching
// bar replayed across evaluation cycles is a no-op. Returns whether
// stored state changed.
func (s *Scorer) applyBar(el *signal.SMCElement, bar market_data.Bar) bool {
	touched := bar.Low <= el.PriceRange.High && bar.High >= el.PriceRange.Low
	if !touched {
		return false
	}

	if !el.RecordTest(bar.OpenTime) {
		return false
	}

	// Penetration depth depends on which side price attacks from:
	// bullish zones sit under price and get drilled from above,
	// bearish zones the other way around.
	var frac float64
	if el.Sentiment == signal.SentimentBullish {
		frac = el.PriceRange.PenetrationFrom(bar.Low, true)
	} else {
		frac = el.PriceRange.PenetrationFrom(bar.High, false)
	}
	el.RaiseFill(frac)

	if el.FillFraction >= s.cfg.InvalidationThreshold {
		el.Invalidate()
		s.log.Debugw("element invalidated by mitigation",
			"element_id", el.ID, "kind", el.Kind, "fill", el.FillFraction)
		return true
	}

	if el.FillFraction >= s.cfg.WeakenThreshold {
		if el.ApplyWeakenPenalty(s.cfg.WeakenPenalty) {
			s.log.Debugw("element weakened by partial mitigation",
				"element_id", el.ID, "kind", el.Kind, "fill", el.FillFraction)
		}
	}

	// The test counter advanced, so stored state changed.
	return true
}

// Score derives quality scores for all active elements as of the
// latest bar's open time. The decay and the mitigation penalty
// compound multiplicatively; mitigation does not reset the decay
// clock. An empty result is normal when nothing is active.
func (s *Scorer) Score(elements []*signal.SMCElement, asOf time.Time, atr float64, trend signal.StructureTrend) []signal.ScoredSignal {
	scored := make([]signal.ScoredSignal, 0, len(elements))

	for _, el := range elements {
		if el == nil || !el.Active {
			continue
		}
		if !el.PriceRange.Valid() {
			s.log.Warnw("skipping element with malformed range",
				"element_id", el.ID, "kind", el.Kind)
			continue
		}

		age := el.AgeInBarsAt(asOf)
		quality := el.BaseStrength

		if el.Fresh() {
			quality *= s.cfg.FreshnessBonus
		}

		quality *= math.Pow(0.5, float64(age)/s.cfg.HalfLifeBars)

		if atr > 0 {
			size := el.PriceRange.Width() / atr
			if size > 1 {
				size = 1
			}
			if size < s.cfg.MinSizeFactor {
				size = s.cfg.MinSizeFactor
			}
			quality *= size
		}

		if trend.Agrees(el.Sentiment) {
			quality *= s.cfg.TrendAlignBonus
		}

		scored = append(scored, signal.ScoredSignal{
			Element:      el,
			QualityScore: clamp01(quality),
			AgeInBars:    age,
		})
	}
	return scored
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
