package signal

import (
	"context"

	"github.com/google/uuid"
)

// ElementRepository persists SMC element state across evaluation
// cycles. Implementations must serialize writes per (symbol,
// timeframe) — the scorer assumes a single writer per series.
type ElementRepository interface {
	// Save inserts or updates an element by id.
	Save(ctx context.Context, el *SMCElement) error

	// SaveBatch persists several elements of one series at once.
	SaveBatch(ctx context.Context, els []*SMCElement) error

	// GetByID fetches one element.
	GetByID(ctx context.Context, id uuid.UUID) (*SMCElement, error)

	// ListActive returns all active elements for a series.
	ListActive(ctx context.Context, symbol string, tf Timeframe) ([]*SMCElement, error)

	// List returns all elements for a series, active or not, newest
	// first, capped at limit.
	List(ctx context.Context, symbol string, tf Timeframe, limit int) ([]*SMCElement, error)
}
