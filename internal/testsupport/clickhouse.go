package testsupport

import (
	"context"
	"fmt"
	"testing"
	"time"

	"augur/internal/adapters/clickhouse"
	"augur/internal/adapters/config"
	"augur/internal/domain/market_data"
)

// ClickHouseTestHelper manages cleanup for ClickHouse integration tests.
type ClickHouseTestHelper struct {
	client *clickhouse.Client
}

// NewClickHouseTestHelper creates a ClickHouse client for tests.
func NewClickHouseTestHelper(t *testing.T, cfg config.ClickHouseConfig) *ClickHouseTestHelper {
	t.Helper()

	client, err := clickhouse.NewClient(cfg)
	if err != nil {
		t.Fatalf("failed to connect to clickhouse: %v", err)
	}

	helper := &ClickHouseTestHelper{client: client}
	t.Cleanup(func() { _ = client.Close() })
	return helper
}

// Client returns the underlying ClickHouse client.
func (h *ClickHouseTestHelper) Client() *clickhouse.Client {
	return h.client
}

// CreateTempTable creates a temporary table and registers cleanup.
func (h *ClickHouseTestHelper) CreateTempTable(t *testing.T, schema string) string {
	t.Helper()

	table := fmt.Sprintf("tmp_test_%d", time.Now().UnixNano())
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()", table, schema)

	if err := h.client.Exec(context.Background(), query); err != nil {
		t.Fatalf("failed to create clickhouse table: %v", err)
	}

	t.Cleanup(func() {
		_ = h.client.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	})

	return table
}

// CleanupTable drops the provided table immediately.
func (h *ClickHouseTestHelper) CleanupTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
}

// TruncateTable removes all data from the table but keeps the structure
func (h *ClickHouseTestHelper) TruncateTable(ctx context.Context, table string) error {
	return h.client.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s", table))
}

// RegisterTableCleanup schedules cleanup of specific table data after
// the test completes. Useful for shared tables that must not be dropped.
func (h *ClickHouseTestHelper) RegisterTableCleanup(t *testing.T, table, condition string) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		query := fmt.Sprintf("DELETE FROM %s WHERE %s", table, condition)
		_ = h.client.Exec(ctx, query)
	})
}

// InsertBars writes OHLCV bars into the shared ohlcv table and registers
// cleanup for the inserted symbol.
func (h *ClickHouseTestHelper) InsertBars(t *testing.T, bars []market_data.Bar) {
	t.Helper()

	if len(bars) == 0 {
		return
	}
	h.RegisterTableCleanup(t, "ohlcv", fmt.Sprintf("symbol = '%s'", bars[0].Symbol))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	batch, err := h.client.Conn().PrepareBatch(ctx, `
		INSERT INTO ohlcv (symbol, timeframe, open_time, open, high, low, close, volume)
	`)
	if err != nil {
		t.Fatalf("failed to prepare batch: %v", err)
	}
	for _, bar := range bars {
		if err := batch.AppendStruct(&bar); err != nil {
			t.Fatalf("failed to append bar: %v", err)
		}
	}
	if err := batch.Send(); err != nil {
		t.Fatalf("failed to send batch: %v", err)
	}
}

// BarFixture builds OHLCV bars for tests with sane defaults.
type BarFixture struct {
	bar market_data.Bar
}

// NewBarFixture creates a fixture for a bullish H1 candle.
func NewBarFixture() *BarFixture {
	openTime := time.Now().UTC().Truncate(time.Hour)
	return &BarFixture{
		bar: market_data.Bar{
			Symbol:    UniqueSymbol("BTCUSDT"),
			Timeframe: "H1",
			OpenTime:  openTime,
			Open:      50000,
			High:      50500,
			Low:       49800,
			Close:     50400,
			Volume:    1200,
		},
	}
}

func (f *BarFixture) WithSymbol(symbol string) *BarFixture {
	f.bar.Symbol = symbol
	return f
}

func (f *BarFixture) WithTimeframe(timeframe string) *BarFixture {
	f.bar.Timeframe = timeframe
	return f
}

func (f *BarFixture) WithOpenTime(t time.Time) *BarFixture {
	f.bar.OpenTime = t
	return f
}

func (f *BarFixture) WithPrices(open, high, low, close float64) *BarFixture {
	f.bar.Open = open
	f.bar.High = high
	f.bar.Low = low
	f.bar.Close = close
	return f
}

func (f *BarFixture) WithVolume(volume float64) *BarFixture {
	f.bar.Volume = volume
	return f
}

// Bullish makes the candle close above its open.
func (f *BarFixture) Bullish() *BarFixture {
	return f.WithPrices(50000, 50600, 49900, 50500)
}

// Bearish makes the candle close below its open.
func (f *BarFixture) Bearish() *BarFixture {
	return f.WithPrices(50500, 50600, 49800, 50000)
}

// Build returns the configured bar.
func (f *BarFixture) Build() market_data.Bar {
	return f.bar
}

// BuildMany returns count consecutive bars stepping OpenTime by one
// period per bar.
func (f *BarFixture) BuildMany(count int) []market_data.Bar {
	step := time.Hour
	switch f.bar.Timeframe {
	case "M15":
		step = 15 * time.Minute
	case "H4":
		step = 4 * time.Hour
	case "D1":
		step = 24 * time.Hour
	case "W1":
		step = 7 * 24 * time.Hour
	}

	bars := make([]market_data.Bar, 0, count)
	for i := 0; i < count; i++ {
		bar := f.bar
		bar.OpenTime = f.bar.OpenTime.Add(time.Duration(i) * step)
		bars = append(bars, bar)
	}
	return bars
}
