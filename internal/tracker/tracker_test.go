package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"augur/internal/domain/prediction"
	"augur/internal/domain/signal"
	"augur/internal/testsupport"
)

type capturePublisher struct {
	verified []*prediction.Prediction
}

func (c *capturePublisher) PublishVerification(_ context.Context, p *prediction.Prediction) error {
	c.verified = append(c.verified, p)
	return nil
}

func h1Sentiment(s signal.Sentiment, at time.Time) signal.TimeframeSentiment {
	return signal.TimeframeSentiment{
		Symbol:      "BTCUSDT",
		Timeframe:   signal.TimeframeH1,
		Sentiment:   s,
		Confidence:  0.8,
		EvaluatedAt: at,
	}
}

func TestRecordSetsVerificationWindow(t *testing.T) {
	store := testsupport.NewPredictionStore()
	trk := New(DefaultConfig(), store, nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p, err := trk.Record(context.Background(), h1Sentiment(signal.SentimentBullish, at), 50000, "ensemble-v1")
	require.NoError(t, err)

	assert.Equal(t, 4*time.Hour, p.VerifyAfter)
	assert.Equal(t, at, p.CreatedAt)
	assert.Equal(t, "ensemble-v1", p.ModelVersion)
	assert.False(t, p.Verified())

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.SentimentBullish, stored.Sentiment)
}

func TestRecordRejectsBadInput(t *testing.T) {
	trk := New(DefaultConfig(), testsupport.NewPredictionStore(), nil)
	at := time.Now().UTC()

	_, err := trk.Record(context.Background(), h1Sentiment(signal.SentimentBullish, at), 0, "v1")
	assert.Error(t, err)

	_, err = trk.Record(context.Background(), h1Sentiment(signal.Sentiment("sideways"), at), 50000, "v1")
	assert.Error(t, err)
}

func TestVerifyDueWaitsForWindow(t *testing.T) {
	store := testsupport.NewPredictionStore()
	pub := &capturePublisher{}
	trk := New(DefaultConfig(), store, pub)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p, err := trk.Record(context.Background(), h1Sentiment(signal.SentimentBullish, at), 50000, "v1")
	require.NoError(t, err)

	// One minute short of the window nothing happens.
	n, err := trk.VerifyDue(context.Background(), "BTCUSDT", 51000, at.Add(4*time.Hour-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, pub.verified)

	// Exactly at the window edge the +2% move grades the bullish call
	// correct.
	now := at.Add(4 * time.Hour)
	n, err = trk.VerifyDue(context.Background(), "BTCUSDT", 51000, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.verified, 1)

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, stored.Verified())
	assert.Equal(t, signal.SentimentBullish, *stored.ActualOutcome)
	assert.True(t, *stored.WasCorrect)
	assert.Equal(t, 51000.0, *stored.PriceAtVerification)

	// Verification is terminal; a second pass finds nothing to do.
	n, err = trk.VerifyDue(context.Background(), "BTCUSDT", 40000, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.verified, 1)
}

func TestVerifyDueRejectsBadPrice(t *testing.T) {
	trk := New(DefaultConfig(), testsupport.NewPredictionStore(), nil)
	_, err := trk.VerifyDue(context.Background(), "BTCUSDT", 0, time.Now())
	assert.Error(t, err)
}

func TestOutcomeForDeadBand(t *testing.T) {
	trk := New(Config{DeadBand: 0.0005, PendingBatch: 10}, testsupport.NewPredictionStore(), nil)

	// Exactly on the band edge still counts as flat.
	assert.Equal(t, signal.SentimentNeutral, trk.outcomeFor(100000, 100050))
	assert.Equal(t, signal.SentimentNeutral, trk.outcomeFor(100000, 99950))

	assert.Equal(t, signal.SentimentBullish, trk.outcomeFor(100000, 100051))
	assert.Equal(t, signal.SentimentBearish, trk.outcomeFor(100000, 99949))
}

func TestVerifyDueNeutralCallOnFlatMarket(t *testing.T) {
	store := testsupport.NewPredictionStore()
	trk := New(DefaultConfig(), store, nil)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p, err := trk.Record(context.Background(), h1Sentiment(signal.SentimentNeutral, at), 100000, "v1")
	require.NoError(t, err)

	n, err := trk.VerifyDue(context.Background(), "BTCUSDT", 100020, at.Add(5*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	stored, err := store.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, signal.SentimentNeutral, *stored.ActualOutcome)
	assert.True(t, *stored.WasCorrect)
}

func seedVerified(t *testing.T, store *testsupport.PredictionStore, sentiment signal.Sentiment, correct bool, at time.Time) {
	t.Helper()

	outcome := sentiment
	if !correct {
		if sentiment == signal.SentimentBullish {
			outcome = signal.SentimentBearish
		} else {
			outcome = signal.SentimentBullish
		}
	}
	price := 51000.0
	p := &prediction.Prediction{
		ID:                  uuid.New(),
		Symbol:              "BTCUSDT",
		Timeframe:           signal.TimeframeH1,
		Sentiment:           sentiment,
		Confidence:          0.8,
		PriceAtPrediction:   50000,
		CreatedAt:           at.Add(-4 * time.Hour),
		VerifyAfter:         4 * time.Hour,
		ModelVersion:        "v1",
		VerifiedAt:          &at,
		PriceAtVerification: &price,
		ActualOutcome:       &outcome,
		WasCorrect:          &correct,
	}
	require.NoError(t, store.Create(context.Background(), p))
}

func TestAccuracyByClass(t *testing.T) {
	store := testsupport.NewPredictionStore()
	trk := New(DefaultConfig(), store, nil)
	now := time.Now().UTC()

	seedVerified(t, store, signal.SentimentBullish, true, now)
	seedVerified(t, store, signal.SentimentBullish, true, now)
	seedVerified(t, store, signal.SentimentBullish, false, now)
	seedVerified(t, store, signal.SentimentBearish, true, now)

	report, err := trk.Accuracy(context.Background(), "BTCUSDT", 0)
	require.NoError(t, err)
	require.True(t, report.HasData())

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Correct)
	assert.Equal(t, 1, report.Incorrect)
	assert.InDelta(t, 0.75, report.Accuracy, 1e-9)

	require.Contains(t, report.ByClass, signal.SentimentBullish)
	assert.InDelta(t, 2.0/3.0, report.ByClass[signal.SentimentBullish].Accuracy, 1e-9)
	assert.Equal(t, 1.0, report.ByClass[signal.SentimentBearish].Accuracy)
}

func TestAccuracyEmptyWindow(t *testing.T) {
	trk := New(DefaultConfig(), testsupport.NewPredictionStore(), nil)

	report, err := trk.Accuracy(context.Background(), "BTCUSDT", time.Hour)
	require.NoError(t, err)
	assert.False(t, report.HasData())
	assert.Zero(t, report.Accuracy)
}

func TestTrainingDataExport(t *testing.T) {
	store := testsupport.NewPredictionStore()
	trk := New(DefaultConfig(), store, nil)
	now := time.Now().UTC()

	seedVerified(t, store, signal.SentimentBullish, true, now)
	seedVerified(t, store, signal.SentimentBearish, false, now)

	samples, err := trk.TrainingData(context.Background(), "BTCUSDT", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	for _, s := range samples {
		assert.Equal(t, "BTCUSDT", s.Symbol)
		assert.Equal(t, signal.TimeframeH1, s.Timeframe)
		assert.Equal(t, 50000.0, s.PriceAtPrediction)
		assert.Equal(t, 51000.0, s.PriceAtVerification)
	}
}
