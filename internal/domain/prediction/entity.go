package prediction

import (
	"time"

	"github.com/google/uuid"

	"augur/internal/domain/signal"
)

// Prediction records one emitted sentiment call and, later, its
// real-world outcome. Lifecycle: pending until the verification window
// elapses, then verified exactly once. Verified predictions are never
// mutated again.
type Prediction struct {
	ID                  uuid.UUID         `db:"id" json:"id"`
	Symbol              string            `db:"symbol" json:"symbol"`
	Timeframe           signal.Timeframe  `db:"timeframe" json:"timeframe"`
	Sentiment           signal.Sentiment  `db:"sentiment" json:"sentiment"`
	Confidence          float64           `db:"confidence" json:"confidence"`
	PriceAtPrediction   float64           `db:"price_at_prediction" json:"price_at_prediction"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	VerifyAfter         time.Duration     `db:"verify_after" json:"verify_after"`
	ModelVersion        string            `db:"model_version" json:"model_version"`
	VerifiedAt          *time.Time        `db:"verified_at" json:"verified_at,omitempty"`
	PriceAtVerification *float64          `db:"price_at_verification" json:"price_at_verification,omitempty"`
	ActualOutcome       *signal.Sentiment `db:"actual_outcome" json:"actual_outcome,omitempty"`
	WasCorrect          *bool             `db:"was_correct" json:"was_correct,omitempty"`
}

// Verified reports whether the prediction reached its terminal state.
func (p *Prediction) Verified() bool {
	return p.VerifiedAt != nil
}

// Verifiable reports whether the verification window has elapsed at now.
func (p *Prediction) Verifiable(now time.Time) bool {
	return !p.Verified() && !now.Before(p.CreatedAt.Add(p.VerifyAfter))
}

// TriggerReason enumerates why a retraining fired.
type TriggerReason string

const (
	TriggerTime        TriggerReason = "time-based"
	TriggerPerformance TriggerReason = "performance-based"
	TriggerVolume      TriggerReason = "volume-based"
	TriggerManual      TriggerReason = "manual"
	TriggerNone        TriggerReason = "none"
)

// RetrainingEvent is one entry of the append-only retraining log,
// written exclusively by the continuous learner.
type RetrainingEvent struct {
	ID                 uuid.UUID     `db:"id" json:"id"`
	Symbol             string        `db:"symbol" json:"symbol"`
	Timestamp          time.Time     `db:"timestamp" json:"timestamp"`
	Trigger            TriggerReason `db:"trigger_reason" json:"trigger_reason"`
	ModelVersionBefore string        `db:"model_version_before" json:"model_version_before"`
	ModelVersionAfter  string        `db:"model_version_after" json:"model_version_after"`
	AccuracyBefore     float64       `db:"accuracy_before" json:"accuracy_before"`
	AccuracyAfter      float64       `db:"accuracy_after" json:"accuracy_after"`
	Duration           time.Duration `db:"duration" json:"duration"`
}

// ClassAccuracy is a per-sentiment accuracy slice.
type ClassAccuracy struct {
	Total    int     `json:"total"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// AccuracyReport summarizes verified predictions inside a trailing
// window. The zero value is the defined "no data" result.
type AccuracyReport struct {
	Window    time.Duration                      `json:"window"` // 0 = all time
	Total     int                                `json:"total"`
	Correct   int                                `json:"correct"`
	Incorrect int                                `json:"incorrect"`
	Accuracy  float64                            `json:"accuracy"`
	ByClass   map[signal.Sentiment]ClassAccuracy `json:"by_class,omitempty"`
}

// HasData reports whether any verified prediction fell in the window.
func (r AccuracyReport) HasData() bool {
	return r.Total > 0
}

// TrainingSample is one verified prediction flattened for the training
// collaborator.
type TrainingSample struct {
	Symbol              string           `json:"symbol"`
	Timeframe           signal.Timeframe `json:"timeframe"`
	CreatedAt           time.Time        `json:"created_at"`
	PredictedSentiment  signal.Sentiment `json:"predicted_sentiment"`
	ActualOutcome       signal.Sentiment `json:"actual_outcome"`
	WasCorrect          bool             `json:"was_correct"`
	Confidence          float64          `json:"confidence"`
	PriceAtPrediction   float64          `json:"price_at_prediction"`
	PriceAtVerification float64          `json:"price_at_verification"`
}
