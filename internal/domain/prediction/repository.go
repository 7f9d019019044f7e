package prediction

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists predictions. Implementations must serialize the
// pending → verified transition of a single prediction so it happens at
// most once.
type Repository interface {
	// Create stores a new pending prediction.
	Create(ctx context.Context, p *Prediction) error

	// GetByID fetches one prediction.
	GetByID(ctx context.Context, id uuid.UUID) (*Prediction, error)

	// ListPending returns unverified predictions for a symbol, oldest
	// first.
	ListPending(ctx context.Context, symbol string, limit int) ([]*Prediction, error)

	// ListVerifiedSince returns predictions verified at or after the
	// given time. A zero time means all verified predictions.
	ListVerifiedSince(ctx context.Context, symbol string, since time.Time, limit int) ([]*Prediction, error)

	// MarkVerified writes the terminal verification fields. It must be
	// a no-op returning false when the prediction is already verified.
	MarkVerified(ctx context.Context, p *Prediction) (bool, error)

	// CountVerifiedSince counts predictions verified at or after the
	// given time, across all symbols when symbol is empty.
	CountVerifiedSince(ctx context.Context, symbol string, since time.Time) (int, error)
}

// EventRepository is the append-only retraining log.
type EventRepository interface {
	// Append stores one retraining event.
	Append(ctx context.Context, ev *RetrainingEvent) error

	// Latest returns the most recent event for a symbol, or nil when
	// the model has never been trained.
	Latest(ctx context.Context, symbol string) (*RetrainingEvent, error)

	// List returns events newest first.
	List(ctx context.Context, symbol string, limit int) ([]*RetrainingEvent, error)
}
