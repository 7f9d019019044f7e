package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"augur/internal/domain/signal"
	"augur/pkg/errors"
)

// SentimentCache keeps the latest aggregated sentiment per symbol in
// Redis for cheap reads by API consumers.
type SentimentCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSentimentCache creates a sentiment cache. ttl 0 defaults to 30m.
func NewSentimentCache(client *redis.Client, ttl time.Duration) *SentimentCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SentimentCache{
		client: client,
		ttl:    ttl,
	}
}

// SetLatest stores the latest evaluation for a symbol
func (c *SentimentCache) SetLatest(ctx context.Context, agg signal.AggregatedSentiment) error {
	key := c.getKey(agg.Symbol)

	data, err := json.Marshal(agg)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal sentiment: symbol=%s", agg.Symbol)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "failed to cache sentiment: symbol=%s", agg.Symbol)
	}
	return nil
}

// GetLatest retrieves the latest cached evaluation for a symbol
func (c *SentimentCache) GetLatest(ctx context.Context, symbol string) (*signal.AggregatedSentiment, error) {
	key := c.getKey(symbol)

	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "no cached sentiment for %s", symbol)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cached sentiment: symbol=%s", symbol)
	}

	var agg signal.AggregatedSentiment
	if err := json.Unmarshal([]byte(data), &agg); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal cached sentiment: symbol=%s", symbol)
	}
	return &agg, nil
}

func (c *SentimentCache) getKey(symbol string) string {
	return fmt.Sprintf("sentiment:latest:%s", symbol)
}
