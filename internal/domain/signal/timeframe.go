package signal

import "time"

// Timeframe identifies a bar granularity.
type Timeframe string

const (
	TimeframeM15 Timeframe = "M15"
	TimeframeH1  Timeframe = "H1"
	TimeframeH4  Timeframe = "H4"
	TimeframeD1  Timeframe = "D1"
	TimeframeW1  Timeframe = "W1"
)

// DefaultTimeframes is the standard multi-timeframe evaluation set,
// ordered from fastest to slowest.
var DefaultTimeframes = []Timeframe{TimeframeM15, TimeframeH1, TimeframeH4, TimeframeD1}

// Valid reports whether the timeframe is a known granularity.
func (tf Timeframe) Valid() bool {
	switch tf {
	case TimeframeM15, TimeframeH1, TimeframeH4, TimeframeD1, TimeframeW1:
		return true
	}
	return false
}

// Weight returns the aggregation priority weight. Longer timeframes
// dominate: D1 carries the most weight.
func (tf Timeframe) Weight() float64 {
	switch tf {
	case TimeframeM15:
		return 1.0
	case TimeframeH1:
		return 1.5
	case TimeframeH4:
		return 2.0
	case TimeframeD1:
		return 3.0
	case TimeframeW1:
		return 4.0
	}
	return 1.0
}

// BarDuration returns the wall-clock span of one bar.
func (tf Timeframe) BarDuration() time.Duration {
	switch tf {
	case TimeframeM15:
		return 15 * time.Minute
	case TimeframeH1:
		return time.Hour
	case TimeframeH4:
		return 4 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	case TimeframeW1:
		return 7 * 24 * time.Hour
	}
	return time.Hour
}

// VerificationWindow returns how long a prediction on this timeframe
// must age before its outcome can be judged. The table is monotonic
// with granularity.
func (tf Timeframe) VerificationWindow() time.Duration {
	switch tf {
	case TimeframeM15:
		return time.Hour
	case TimeframeH1:
		return 4 * time.Hour
	case TimeframeH4:
		return 12 * time.Hour
	case TimeframeD1:
		return 24 * time.Hour
	case TimeframeW1:
		return 7 * 24 * time.Hour
	}
	return 4 * time.Hour
}
