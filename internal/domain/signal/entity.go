package signal

import (
	"time"

	"github.com/google/uuid"

	"augur/pkg/ranges"
)

// ScoredSignal wraps an SMC element with its quality score for one
// evaluation cycle. Derived data, recomputed every cycle, never stored.
type ScoredSignal struct {
	Element      *SMCElement `json:"element"`
	QualityScore float64     `json:"quality_score"` // [0, 1]
	AgeInBars    int         `json:"age_in_bars"`
}

// ConfluenceZone is a price region where two or more independent
// signals agree. Ephemeral, recomputed per evaluation; the same element
// may participate in several zones.
type ConfluenceZone struct {
	PriceRange ranges.Range `json:"price_range"`
	Sentiment  Sentiment    `json:"sentiment"`
	ElementIDs []uuid.UUID  `json:"element_ids"` // at least two contributors
	Score      float64      `json:"score"`       // [0, 1]
}

// TimeframeSentiment is the per-timeframe decision output. Immutable
// once produced.
type TimeframeSentiment struct {
	Symbol        string    `json:"symbol"`
	Timeframe     Timeframe `json:"timeframe"`
	Sentiment     Sentiment `json:"sentiment"`
	RawScore      float64   `json:"raw_score"`  // [-1, 1]
	Confidence    float64   `json:"confidence"` // [0, 1]
	ThresholdUsed float64   `json:"threshold_used"`
	EvaluatedAt   time.Time `json:"evaluated_at"`

	// Component breakdown, for audit and event payloads
	IndicatorScore  float64 `json:"indicator_score"`
	SMCScore        float64 `json:"smc_score"`
	MLScore         float64 `json:"ml_score"`
	ConfluenceBonus float64 `json:"confluence_bonus"`

	// Key price levels surfaced to cross-timeframe confluence
	KeyLevels []ranges.Range `json:"key_levels,omitempty"`
}

// AggregatedSentiment is the final multi-timeframe verdict for one
// evaluation of a symbol.
type AggregatedSentiment struct {
	Symbol         string               `json:"symbol"`
	EvaluatedAt    time.Time            `json:"evaluated_at"`
	Dominant       Sentiment            `json:"dominant"`
	Confidence     float64              `json:"confidence"`      // [0, 1]
	AlignmentScore float64              `json:"alignment_score"` // [0, 1], 1 = unanimous
	ByTimeframe    []TimeframeSentiment `json:"by_timeframe"`
	PriceAtEval    float64              `json:"price_at_eval"`
	ModelVersion   string               `json:"model_version"`
}
