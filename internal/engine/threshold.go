package engine

import (
	"augur/pkg/errors"
)

// ThresholdPolicy computes the acceptance threshold a raw score must
// clear, in absolute value, to be classified non-neutral. Stateless:
// purely a function of current trend strength and volatility regime.
type ThresholdPolicy struct {
	Base float64
	Min  float64
	Max  float64
}

// DefaultThresholdPolicy returns the production policy.
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{Base: 0.35, Min: 0.25, Max: 0.50}
}

// Validate fails fast on an out-of-range policy.
func (p ThresholdPolicy) Validate() error {
	if p.Min <= 0 || p.Max <= p.Min {
		return errors.NewValidationError("threshold.bounds", "need 0 < min < max", []float64{p.Min, p.Max})
	}
	if p.Base < p.Min || p.Base > p.Max {
		return errors.NewValidationError("threshold.base", "base outside bounds", p.Base)
	}
	return nil
}

// Compute adjusts the base threshold by trend strength (ADX) and
// volatility regime (current ATR over its rolling average), then
// clamps to the policy bounds. Strong trends lower the bar, dead or
// erratic markets raise it.
func (p ThresholdPolicy) Compute(adx, volatilityRatio float64) float64 {
	threshold := p.Base

	switch {
	case adx > 40:
		threshold -= 0.05
	case adx > 25:
		threshold -= 0.02
	case adx < 15:
		threshold += 0.10
	}

	switch {
	case volatilityRatio > 1.5:
		threshold += 0.05
	case volatilityRatio > 1.2:
		threshold += 0.02
	}

	if threshold < p.Min {
		return p.Min
	}
	if threshold > p.Max {
		return p.Max
	}
	return threshold
}
