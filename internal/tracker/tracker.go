package tracker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"augur/internal/domain/prediction"
	"augur/internal/domain/signal"
	"augur/pkg/errors"
	"augur/pkg/logger"
)

// Config tunes prediction tracking.
type Config struct {
	// DeadBand is the relative price move under which the actual
	// outcome counts as neutral. 0.0005 means 0.05%.
	DeadBand float64

	// PendingBatch caps how many pending predictions one verification
	// pass loads per symbol.
	PendingBatch int
}

// DefaultConfig returns production tracking settings.
func DefaultConfig() Config {
	return Config{
		DeadBand:     0.0005,
		PendingBatch: 500,
	}
}

// VerifiedPublisher notifies downstream consumers about a completed
// verification.
type VerifiedPublisher interface {
	PublishVerification(ctx context.Context, p *prediction.Prediction) error
}

// Tracker records emitted sentiment calls and verifies them against
// realized prices once their verification window elapses. Verification
// is idempotent: a prediction transitions to verified at most once.
type Tracker struct {
	cfg       Config
	repo      prediction.Repository
	publisher VerifiedPublisher
	log       *logger.Logger
}

// New creates a tracker. publisher may be nil.
func New(cfg Config, repo prediction.Repository, publisher VerifiedPublisher) *Tracker {
	if cfg.DeadBand <= 0 {
		cfg.DeadBand = DefaultConfig().DeadBand
	}
	if cfg.PendingBatch <= 0 {
		cfg.PendingBatch = DefaultConfig().PendingBatch
	}
	return &Tracker{
		cfg:       cfg,
		repo:      repo,
		publisher: publisher,
		log:       logger.Get().With("component", "prediction_tracker"),
	}
}

// Record stores one emitted per-timeframe sentiment as a pending
// prediction. The verification window follows the timeframe.
func (t *Tracker) Record(ctx context.Context, ts signal.TimeframeSentiment, priceAtPrediction float64, modelVersion string) (*prediction.Prediction, error) {
	if priceAtPrediction <= 0 {
		return nil, errors.NewValidationError("price_at_prediction", "must be positive", priceAtPrediction)
	}
	if !ts.Sentiment.Valid() {
		return nil, errors.NewValidationError("sentiment", "unknown value", ts.Sentiment)
	}

	p := &prediction.Prediction{
		ID:                uuid.New(),
		Symbol:            ts.Symbol,
		Timeframe:         ts.Timeframe,
		Sentiment:         ts.Sentiment,
		Confidence:        ts.Confidence,
		PriceAtPrediction: priceAtPrediction,
		CreatedAt:         ts.EvaluatedAt,
		VerifyAfter:       ts.Timeframe.VerificationWindow(),
		ModelVersion:      modelVersion,
	}
	if err := t.repo.Create(ctx, p); err != nil {
		return nil, errors.Wrap(err, "failed to store prediction")
	}
	return p, nil
}

// VerifyDue resolves every pending prediction for the symbol whose
// window has elapsed, using the given realized price. Returns how many
// predictions were verified in this pass. Predictions still inside
// their window are left untouched.
func (t *Tracker) VerifyDue(ctx context.Context, symbol string, price float64, now time.Time) (int, error) {
	if price <= 0 {
		return 0, errors.NewValidationError("price", "must be positive", price)
	}

	pending, err := t.repo.ListPending(ctx, symbol, t.cfg.PendingBatch)
	if err != nil {
		return 0, errors.Wrap(err, "failed to load pending predictions")
	}

	verified := 0
	for _, p := range pending {
		if !p.Verifiable(now) {
			continue
		}

		outcome := t.outcomeFor(p.PriceAtPrediction, price)
		correct := outcome == p.Sentiment

		p.VerifiedAt = &now
		p.PriceAtVerification = &price
		p.ActualOutcome = &outcome
		p.WasCorrect = &correct

		applied, err := t.repo.MarkVerified(ctx, p)
		if err != nil {
			t.log.Warnw("failed to verify prediction",
				"prediction_id", p.ID, "symbol", symbol, "error", err)
			continue
		}
		if !applied {
			// Someone else won the race; terminal state stands.
			continue
		}
		verified++

		if t.publisher != nil {
			if err := t.publisher.PublishVerification(ctx, p); err != nil {
				t.log.Warnw("failed to publish verification",
					"prediction_id", p.ID, "error", err)
			}
		}
	}

	if verified > 0 {
		t.log.Infow("predictions verified",
			"symbol", symbol, "count", verified, "price", price)
	}
	return verified, nil
}

// outcomeFor classifies the realized move. Moves inside the dead band
// resolve to neutral, so a neutral call on a flat market is correct.
// Decimal arithmetic keeps the band edge exact.
func (t *Tracker) outcomeFor(entry, exit float64) signal.Sentiment {
	entryD := decimal.NewFromFloat(entry)
	if entryD.IsZero() {
		return signal.SentimentNeutral
	}
	move := decimal.NewFromFloat(exit).Sub(entryD).Div(entryD)
	band := decimal.NewFromFloat(t.cfg.DeadBand)

	if move.Abs().LessThanOrEqual(band) {
		return signal.SentimentNeutral
	}
	if move.IsPositive() {
		return signal.SentimentBullish
	}
	return signal.SentimentBearish
}

// Accuracy reports accuracy over the trailing window, overall and per
// predicted class. window 0 means all time. An empty window returns
// the zero report, not an error.
func (t *Tracker) Accuracy(ctx context.Context, symbol string, window time.Duration) (prediction.AccuracyReport, error) {
	report := prediction.AccuracyReport{Window: window}

	var since time.Time
	if window > 0 {
		since = time.Now().UTC().Add(-window)
	}

	verified, err := t.repo.ListVerifiedSince(ctx, symbol, since, 0)
	if err != nil {
		return report, errors.Wrap(err, "failed to load verified predictions")
	}
	if len(verified) == 0 {
		return report, nil
	}

	byClass := make(map[signal.Sentiment]prediction.ClassAccuracy)
	for _, p := range verified {
		if p.WasCorrect == nil {
			continue
		}
		report.Total++
		cls := byClass[p.Sentiment]
		cls.Total++
		if *p.WasCorrect {
			report.Correct++
			cls.Correct++
		} else {
			report.Incorrect++
		}
		byClass[p.Sentiment] = cls
	}
	if report.Total == 0 {
		return report, nil
	}

	report.Accuracy = float64(report.Correct) / float64(report.Total)
	for sentiment, cls := range byClass {
		cls.Accuracy = float64(cls.Correct) / float64(cls.Total)
		byClass[sentiment] = cls
	}
	report.ByClass = byClass
	return report, nil
}

// TrainingData exports verified predictions since the given time as
// flat samples for the training collaborator.
func (t *Tracker) TrainingData(ctx context.Context, symbol string, since time.Time, limit int) ([]prediction.TrainingSample, error) {
	verified, err := t.repo.ListVerifiedSince(ctx, symbol, since, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load verified predictions")
	}

	samples := make([]prediction.TrainingSample, 0, len(verified))
	for _, p := range verified {
		if p.ActualOutcome == nil || p.WasCorrect == nil || p.PriceAtVerification == nil {
			continue
		}
		samples = append(samples, prediction.TrainingSample{
			Symbol:              p.Symbol,
			Timeframe:           p.Timeframe,
			CreatedAt:           p.CreatedAt,
			PredictedSentiment:  p.Sentiment,
			ActualOutcome:       *p.ActualOutcome,
			WasCorrect:          *p.WasCorrect,
			Confidence:          p.Confidence,
			PriceAtPrediction:   p.PriceAtPrediction,
			PriceAtVerification: *p.PriceAtVerification,
		})
	}
	return samples, nil
}
