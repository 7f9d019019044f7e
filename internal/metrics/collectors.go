package metrics

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"augur/pkg/logger"
)

// CustomCollector scrapes gauge-style state from the databases on each
// Prometheus collection cycle.
type CustomCollector struct {
	log        *logger.Logger
	postgres   *sqlx.DB
	clickhouse driver.Conn
	redis      *redis.Client

	pendingPredictions *prometheus.Desc
	activeElements     *prometheus.Desc
	barFreshness       *prometheus.Desc
	cachedSentiments   *prometheus.Desc
}

// NewCustomCollector creates a new custom metrics collector
func NewCustomCollector(log *logger.Logger, postgres *sqlx.DB, clickhouse driver.Conn, redis *redis.Client) *CustomCollector {
	return &CustomCollector{
		log:        log,
		postgres:   postgres,
		clickhouse: clickhouse,
		redis:      redis,

		pendingPredictions: prometheus.NewDesc(
			"augur_predictions_pending",
			"Predictions recorded but not yet verified",
			[]string{"symbol"}, nil,
		),
		activeElements: prometheus.NewDesc(
			"augur_smc_elements_stored_active",
			"Active SMC elements persisted in postgres",
			[]string{"symbol", "kind"}, nil,
		),
		barFreshness: prometheus.NewDesc(
			"augur_bar_age_seconds",
			"Seconds since the newest stored bar per symbol",
			[]string{"symbol"}, nil,
		),
		cachedSentiments: prometheus.NewDesc(
			"augur_sentiments_cached",
			"Aggregated sentiments currently cached in redis",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *CustomCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pendingPredictions
	ch <- c.activeElements
	ch <- c.barFreshness
	ch <- c.cachedSentiments
}

// Collect implements prometheus.Collector
func (c *CustomCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c.collectPendingPredictions(ctx, ch)
	c.collectActiveElements(ctx, ch)
	c.collectBarFreshness(ctx, ch)
	c.collectCachedSentiments(ctx, ch)
}

func (c *CustomCollector) collectPendingPredictions(ctx context.Context, ch chan<- prometheus.Metric) {
	type pendingStat struct {
		Symbol string `db:"symbol"`
		Count  int    `db:"count"`
	}

	var stats []pendingStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT symbol, COUNT(*) as count
		FROM predictions
		WHERE verified_at IS NULL
		GROUP BY symbol
	`)
	if err != nil {
		c.log.Errorw("failed to collect pending prediction counts", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.pendingPredictions,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Symbol,
		)
	}
}

func (c *CustomCollector) collectActiveElements(ctx context.Context, ch chan<- prometheus.Metric) {
	type elementStat struct {
		Symbol string `db:"symbol"`
		Kind   string `db:"kind"`
		Count  int    `db:"count"`
	}

	var stats []elementStat
	err := c.postgres.SelectContext(ctx, &stats, `
		SELECT symbol, kind, COUNT(*) as count
		FROM smc_elements
		WHERE active = true
		GROUP BY symbol, kind
	`)
	if err != nil {
		c.log.Errorw("failed to collect active element counts", "error", err)
		return
	}

	for _, stat := range stats {
		ch <- prometheus.MustNewConstMetric(
			c.activeElements,
			prometheus.GaugeValue,
			float64(stat.Count),
			stat.Symbol,
			stat.Kind,
		)
	}
}

func (c *CustomCollector) collectBarFreshness(ctx context.Context, ch chan<- prometheus.Metric) {
	var rows []struct {
		Symbol string    `ch:"symbol"`
		Newest time.Time `ch:"newest"`
	}
	err := c.clickhouse.Select(ctx, &rows, `
		SELECT symbol, max(open_time) AS newest
		FROM ohlcv
		GROUP BY symbol
	`)
	if err != nil {
		c.log.Errorw("failed to collect bar freshness", "error", err)
		return
	}

	now := time.Now()
	for _, row := range rows {
		ch <- prometheus.MustNewConstMetric(
			c.barFreshness,
			prometheus.GaugeValue,
			now.Sub(row.Newest).Seconds(),
			row.Symbol,
		)
	}
}

func (c *CustomCollector) collectCachedSentiments(ctx context.Context, ch chan<- prometheus.Metric) {
	var count int
	iter := c.redis.Scan(ctx, 0, "sentiment:latest:*", 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		c.log.Errorw("failed to collect cached sentiment count", "error", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(
		c.cachedSentiments,
		prometheus.GaugeValue,
		float64(count),
	)
}

// RegisterCustomCollector registers the custom collector
func RegisterCustomCollector(collector *CustomCollector) {
	prometheus.MustRegister(collector)
}
