package events

import (
	"context"

	"augur/internal/adapters/kafka"
	"augur/internal/domain/prediction"
	"augur/internal/domain/signal"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

// Publisher publishes engine and learning events to Kafka as JSON.
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "event_publisher"),
	}
}

// PublishSentiment publishes a finished aggregated evaluation. The
// symbol keys the message so per-symbol ordering is preserved.
func (p *Publisher) PublishSentiment(ctx context.Context, agg signal.AggregatedSentiment) error {
	if err := p.producer.Publish(ctx, kafka.TopicSentimentUpdate, agg.Symbol, agg); err != nil {
		return errors.Wrap(err, "send sentiment to kafka")
	}
	return nil
}

// PublishVerification publishes a completed prediction verification.
func (p *Publisher) PublishVerification(ctx context.Context, pred *prediction.Prediction) error {
	if err := p.producer.Publish(ctx, kafka.TopicPredictionVerified, pred.Symbol, pred); err != nil {
		return errors.Wrap(err, "send verification to kafka")
	}
	return nil
}

// PublishRetraining publishes a completed retraining event.
func (p *Publisher) PublishRetraining(ctx context.Context, ev *prediction.RetrainingEvent) error {
	if err := p.producer.Publish(ctx, kafka.TopicModelRetrained, ev.Symbol, ev); err != nil {
		return errors.Wrap(err, "send retraining event to kafka")
	}
	return nil
}
