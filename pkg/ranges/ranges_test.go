package ranges

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SwapsReversedBounds(t *testing.T) {
	r := New(1.10, 1.05)
	assert.Equal(t, 1.05, r.Low)
	assert.Equal(t, 1.10, r.High)
	assert.True(t, r.Valid())
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Range
		want bool
	}{
		{"disjoint", Range{1.0, 1.1}, Range{1.2, 1.3}, false},
		{"touching", Range{1.0, 1.1}, Range{1.1, 1.2}, true},
		{"nested", Range{1.0, 2.0}, Range{1.4, 1.6}, true},
		{"partial", Range{1.0, 1.5}, Range{1.4, 2.0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestIntersect(t *testing.T) {
	got, ok := Range{1.0, 1.5}.Intersect(Range{1.2, 2.0})
	require.True(t, ok)
	assert.Equal(t, Range{1.2, 1.5}, got)

	_, ok = Range{1.0, 1.1}.Intersect(Range{1.5, 1.6})
	assert.False(t, ok)
}

func TestWithinTolerance(t *testing.T) {
	a := Range{1.00, 1.05}
	b := Range{1.06, 1.10}

	assert.True(t, a.WithinTolerance(b, 0.02))
	assert.False(t, a.WithinTolerance(b, 0.005))

	// Zero-width range behaves as a single level
	level := Range{1.055, 1.055}
	assert.True(t, level.WithinTolerance(a, 0.01))
}

func TestPenetrationFrom(t *testing.T) {
	r := Range{1.00, 1.10}

	// Price pushed halfway down into the range
	assert.InDelta(t, 0.5, r.PenetrationFrom(1.05, true), 1e-9)

	// Price pushed fully through from below, clamped at 1
	assert.Equal(t, 1.0, r.PenetrationFrom(1.50, false))

	// Price never reached the range
	assert.Equal(t, 0.0, r.PenetrationFrom(0.90, false))
	assert.Equal(t, 0.0, r.PenetrationFrom(1.20, true))
}

func TestContains(t *testing.T) {
	outer := Range{1.0, 2.0}
	assert.True(t, outer.Contains(Range{1.2, 1.8}))
	assert.False(t, outer.Contains(Range{0.9, 1.5}))
	assert.True(t, outer.ContainsPrice(1.5))
	assert.False(t, outer.ContainsPrice(2.1))
}
