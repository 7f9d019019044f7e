package market_data

import "time"

// Bar represents a single OHLCV candle. Bars are immutable and ordered
// by OpenTime, unique per (symbol, timeframe, open time).
type Bar struct {
	Symbol    string    `ch:"symbol" db:"symbol"`
	Timeframe string    `ch:"timeframe" db:"timeframe"` // M15, H1, H4, D1
	OpenTime  time.Time `ch:"open_time" db:"open_time"`
	Open      float64   `ch:"open" db:"open"`
	High      float64   `ch:"high" db:"high"`
	Low       float64   `ch:"low" db:"low"`
	Close     float64   `ch:"close" db:"close"`
	Volume    float64   `ch:"volume" db:"volume"`
}

// Body returns the open/close body size of the bar.
func (b Bar) Body() float64 {
	if b.Close >= b.Open {
		return b.Close - b.Open
	}
	return b.Open - b.Close
}

// IsBullish reports whether the bar closed above its open.
func (b Bar) IsBullish() bool {
	return b.Close > b.Open
}

// IsBearish reports whether the bar closed below its open.
func (b Bar) IsBearish() bool {
	return b.Close < b.Open
}

// TrueRange returns the bar's true range given the previous close.
func (b Bar) TrueRange(prevClose float64) float64 {
	tr := b.High - b.Low
	if hc := abs(b.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(b.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
