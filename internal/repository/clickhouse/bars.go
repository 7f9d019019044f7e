package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"augur/internal/domain/market_data"
	"augur/internal/metrics"
	"augur/pkg/errors"
)

// Compile-time check
var _ market_data.Repository = (*BarRepository)(nil)

// BarRepository reads and writes OHLCV bars in ClickHouse.
type BarRepository struct {
	conn driver.Conn
}

// NewBarRepository creates a new bar repository
func NewBarRepository(conn driver.Conn) *BarRepository {
	return &BarRepository{conn: conn}
}

// InsertBars inserts OHLCV bars in batch
func (r *BarRepository) InsertBars(ctx context.Context, bars []market_data.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	started := time.Now()

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO ohlcv (
			symbol, timeframe, open_time, open, high, low, close, volume
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	for _, bar := range bars {
		err := batch.Append(
			bar.Symbol, bar.Timeframe, bar.OpenTime,
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append bar")
		}
	}

	err = batch.Send()
	metrics.RecordDBQuery("clickhouse", "insert_bars", time.Since(started), err)
	return err
}

// GetBars returns up to the most recent count bars, oldest first.
func (r *BarRepository) GetBars(ctx context.Context, symbol, timeframe string, count int) ([]market_data.Bar, error) {
	started := time.Now()

	var bars []market_data.Bar
	query := `
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM ohlcv
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY open_time DESC
		LIMIT $3`

	err := r.conn.Select(ctx, &bars, query, symbol, timeframe, count)
	metrics.RecordDBQuery("clickhouse", "get_bars", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query bars")
	}
	if len(bars) == 0 {
		return nil, errors.Wrapf(errors.ErrDataUnavailable, "no bars for %s %s", symbol, timeframe)
	}

	// Newest-first from the query, chronological for callers.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

// LatestPrice returns the newest close across all timeframes, using
// the finest stored series.
func (r *BarRepository) LatestPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	started := time.Now()

	var row struct {
		Close    float64   `ch:"close"`
		OpenTime time.Time `ch:"open_time"`
	}
	query := `
		SELECT close, open_time
		FROM ohlcv
		WHERE symbol = $1
		ORDER BY open_time DESC, timeframe ASC
		LIMIT 1`

	err := r.conn.QueryRow(ctx, query, symbol).ScanStruct(&row)
	metrics.RecordDBQuery("clickhouse", "latest_price", time.Since(started), err)
	if err != nil {
		return 0, time.Time{}, errors.Wrapf(errors.ErrDataUnavailable, "no price for %s: %v", symbol, err)
	}
	return row.Close, row.OpenTime, nil
}
