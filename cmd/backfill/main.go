package main

import (
	"context"
	"flag"
	"math/rand"
	"strings"
	"time"

	chclient "augur/internal/adapters/clickhouse"
	"augur/internal/adapters/config"
	"augur/internal/domain/market_data"
	"augur/internal/domain/signal"
	chrepo "augur/internal/repository/clickhouse"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

const insertBatchSize = 5000

func main() {
	// Parse flags
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to backfill")
	timeframes := flag.String("timeframes", "M15,H1,H4,D1", "Comma-separated timeframes")
	days := flag.Int("days", 90, "Days of history to generate")
	startPrice := flag.Float64("start-price", 50000, "Opening price of the series")
	volatility := flag.Float64("volatility", 0.004, "Per-bar return standard deviation")
	seed := flag.Int64("seed", 0, "Random seed, 0 uses current time")
	dryRun := flag.Bool("dry-run", false, "Generate without writing to ClickHouse")
	flag.Parse()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	log := logger.Get()

	log.Infow("Starting backfill",
		"symbol", *symbol,
		"timeframes", *timeframes,
		"days", *days,
		"dry_run", *dryRun,
	)

	tfs, err := parseTimeframes(*timeframes)
	if err != nil {
		log.Fatalf("Invalid timeframes: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	var repo *chrepo.BarRepository
	if !*dryRun {
		ch, err := chclient.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer ch.Close()
		repo = chrepo.NewBarRepository(ch.Conn())
	}

	ctx := context.Background()
	end := time.Now().UTC().Truncate(time.Hour)

	for _, tf := range tfs {
		step := tf.BarDuration()
		count := int((time.Duration(*days) * 24 * time.Hour) / step)
		bars := generateSeries(rng, *symbol, string(tf), end.Add(-time.Duration(count)*step), step, count, *startPrice, *volatility)

		if *dryRun {
			log.Infow("Generated series", "timeframe", tf, "bars", len(bars))
			continue
		}

		for start := 0; start < len(bars); start += insertBatchSize {
			stop := start + insertBatchSize
			if stop > len(bars) {
				stop = len(bars)
			}
			if err := repo.InsertBars(ctx, bars[start:stop]); err != nil {
				log.Fatalf("Failed to insert bars for %s: %v", tf, err)
			}
		}

		log.Infow("Backfilled timeframe", "timeframe", tf, "bars", len(bars))
	}

	log.Info("Backfill complete")
}

// generateSeries builds a geometric random walk with wicks and volume
// proportional to the bar's range.
func generateSeries(rng *rand.Rand, symbol, timeframe string, start time.Time, step time.Duration, count int, price, volatility float64) []market_data.Bar {
	bars := make([]market_data.Bar, 0, count)

	for i := 0; i < count; i++ {
		ret := rng.NormFloat64() * volatility
		open := price
		close := open * (1 + ret)

		high := open
		if close > high {
			high = close
		}
		low := open
		if close < low {
			low = close
		}
		// Wicks extend beyond the body by up to half the bar's move.
		wick := volatility * open * rng.Float64()
		high += wick
		low -= volatility * open * rng.Float64()

		barRange := (high - low) / open
		volume := 500 + 100000*barRange*(0.5+rng.Float64())

		bars = append(bars, market_data.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  start.Add(time.Duration(i) * step),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
		price = close
	}
	return bars
}

// parseTimeframes validates the comma-separated timeframe list.
func parseTimeframes(raw string) ([]signal.Timeframe, error) {
	parts := strings.Split(raw, ",")
	tfs := make([]signal.Timeframe, 0, len(parts))
	for _, part := range parts {
		tf := signal.Timeframe(strings.TrimSpace(part))
		if !tf.Valid() {
			return nil, errors.Newf("unknown timeframe: %s", tf)
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}
