package market_data

import (
	"context"
	"time"
)

// Repository supplies historical bars. Implementations must return bars
// in chronological order (oldest first) and fail with
// errors.ErrDataUnavailable when the series holds no bars at all.
type Repository interface {
	// GetBars returns up to the most recent count bars for
	// (symbol, timeframe). The result may be shorter than count;
	// callers enforce their own minimum window.
	GetBars(ctx context.Context, symbol, timeframe string, count int) ([]Bar, error)

	// LatestPrice returns the close of the newest bar for the symbol on
	// its finest stored timeframe, with the bar's open time.
	LatestPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}
