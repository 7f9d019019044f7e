package signal

import (
	"time"

	"github.com/google/uuid"

	"augur/pkg/ranges"
)

// ElementKind identifies the variant of a detected SMC element.
type ElementKind string

const (
	KindOrderBlock    ElementKind = "order_block"
	KindFairValueGap  ElementKind = "fair_value_gap"
	KindLiquidityZone ElementKind = "liquidity_zone"
)

// SMCElement is a detected Smart Money Concepts structure. Detection
// creates it; the quality scorer is the single writer of its mutable
// state (FillFraction, TestedCount, BaseStrength, Active, Weakened).
// Elements are never deleted — invalidated ones stay around for audit
// and confluence history but contribute zero score.
type SMCElement struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	Symbol       string       `db:"symbol" json:"symbol"`
	Timeframe    Timeframe    `db:"timeframe" json:"timeframe"`
	Kind         ElementKind  `db:"kind" json:"kind"`
	Sentiment    Sentiment    `db:"sentiment" json:"sentiment"` // bullish or bearish
	PriceRange   ranges.Range `db:"-" json:"price_range"`
	CreatedAtBar int          `db:"created_at_bar" json:"created_at_bar"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	TestedCount  int          `db:"tested_count" json:"tested_count"`
	FillFraction float64      `db:"fill_fraction" json:"fill_fraction"`
	BaseStrength float64      `db:"base_strength" json:"base_strength"`
	Active       bool         `db:"active" json:"active"`
	Weakened     bool         `db:"weakened" json:"weakened"` // one-shot mitigation penalty applied
	LastTestAt   time.Time    `db:"last_test_at" json:"last_test_at"`
}

// NewSMCElement creates an active element with the given base strength.
func NewSMCElement(symbol string, tf Timeframe, kind ElementKind, sentiment Sentiment, pr ranges.Range, barIndex int, createdAt time.Time, baseStrength float64) *SMCElement {
	return &SMCElement{
		ID:           uuid.New(),
		Symbol:       symbol,
		Timeframe:    tf,
		Kind:         kind,
		Sentiment:    sentiment,
		PriceRange:   pr,
		CreatedAtBar: barIndex,
		CreatedAt:    createdAt,
		BaseStrength: clamp01(baseStrength),
		Active:       true,
	}
}

// RaiseFill lifts the fill fraction to frac if higher. Fill is
// monotonically non-decreasing and clamped to [0, 1]. Calls on an
// inactive element are ignored.
func (e *SMCElement) RaiseFill(frac float64) {
	if !e.Active {
		return
	}
	frac = clamp01(frac)
	if frac > e.FillFraction {
		e.FillFraction = frac
	}
}

// RecordTest increments the touch counter and remembers the bar that
// caused it. Mitigation counts each bar at most once, so a bar at or
// before LastTestAt is rejected.
func (e *SMCElement) RecordTest(barOpen time.Time) bool {
	if !e.Active || !barOpen.After(e.LastTestAt) {
		return false
	}
	e.TestedCount++
	e.LastTestAt = barOpen
	return true
}

// ApplyWeakenPenalty multiplies base strength by factor, at most once
// over the element's lifetime. Returns whether the penalty was applied.
func (e *SMCElement) ApplyWeakenPenalty(factor float64) bool {
	if !e.Active || e.Weakened {
		return false
	}
	e.BaseStrength = clamp01(e.BaseStrength * factor)
	e.Weakened = true
	return true
}

// Invalidate permanently deactivates the element and zeroes its
// strength. This is terminal: an inactive element never reactivates.
func (e *SMCElement) Invalidate() {
	e.Active = false
	e.BaseStrength = 0
}

// Fresh reports whether the element has never been tested.
func (e *SMCElement) Fresh() bool {
	return e.TestedCount == 0
}

// AgeInBars returns how many bars have passed since creation given the
// current bar index. Only meaningful within one detection window.
func (e *SMCElement) AgeInBars(currentBar int) int {
	age := currentBar - e.CreatedAtBar
	if age < 0 {
		return 0
	}
	return age
}

// AgeInBarsAt converts wall-clock age at t into bars of the element's
// timeframe. Stable across evaluation runs as the bar window slides.
func (e *SMCElement) AgeInBarsAt(t time.Time) int {
	if t.Before(e.CreatedAt) {
		return 0
	}
	return int(t.Sub(e.CreatedAt) / e.Timeframe.BarDuration())
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
