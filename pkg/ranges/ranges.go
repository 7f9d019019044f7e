package ranges

import "math"

// Range is an inclusive price interval. Low must not exceed High for the
// range to be considered valid.
type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// New returns a Range, swapping the bounds if given in reverse order.
func New(a, b float64) Range {
	if a > b {
		return Range{Low: b, High: a}
	}
	return Range{Low: a, High: b}
}

// Valid reports whether the range has strictly positive width.
func (r Range) Valid() bool {
	return r.Low < r.High
}

// Width returns High - Low.
func (r Range) Width() float64 {
	return r.High - r.Low
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 {
	return (r.Low + r.High) / 2
}

// ContainsPrice reports whether price falls inside the range.
func (r Range) ContainsPrice(price float64) bool {
	return price >= r.Low && price <= r.High
}

// Contains reports whether other lies entirely within r.
func (r Range) Contains(other Range) bool {
	return other.Low >= r.Low && other.High <= r.High
}

// Overlaps reports whether the two ranges share any prices.
func (r Range) Overlaps(other Range) bool {
	return r.Low <= other.High && other.Low <= r.High
}

// Intersect returns the overlapping portion of two ranges and whether
// one exists.
func (r Range) Intersect(other Range) (Range, bool) {
	if !r.Overlaps(other) {
		return Range{}, false
	}
	return Range{
		Low:  math.Max(r.Low, other.Low),
		High: math.Min(r.High, other.High),
	}, true
}

// WithinTolerance reports whether the two ranges overlap or sit within
// tolerance price units of each other. A zero-width range acts as a
// single price level.
func (r Range) WithinTolerance(other Range, tolerance float64) bool {
	if r.Overlaps(other) {
		return true
	}
	if r.Low > other.High {
		return r.Low-other.High <= tolerance
	}
	return other.Low-r.High <= tolerance
}

// Union returns the smallest range covering both inputs.
func (r Range) Union(other Range) Range {
	return Range{
		Low:  math.Min(r.Low, other.Low),
		High: math.Max(r.High, other.High),
	}
}

// PenetrationFrom returns the fraction of the range covered by a move
// that reached price, entering from the given side. Values are clamped
// to [0, 1]. fromAbove means price pushed down into the range.
func (r Range) PenetrationFrom(price float64, fromAbove bool) float64 {
	if !r.Valid() {
		return 0
	}
	var depth float64
	if fromAbove {
		depth = r.High - price
	} else {
		depth = price - r.Low
	}
	frac := depth / r.Width()
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}
