package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"augur/internal/domain/prediction"
	"augur/pkg/errors"
)

// Compile-time check
var _ prediction.EventRepository = (*RetrainingRepository)(nil)

// RetrainingRepository is the append-only retraining log in Postgres
type RetrainingRepository struct {
	db *sqlx.DB
}

// NewRetrainingRepository creates a new retraining event repository
func NewRetrainingRepository(db *sqlx.DB) *RetrainingRepository {
	return &RetrainingRepository{db: db}
}

// Append stores one retraining event
func (r *RetrainingRepository) Append(ctx context.Context, ev *prediction.RetrainingEvent) error {
	query := `
		INSERT INTO retraining_events (
			id, symbol, timestamp, trigger_reason,
			model_version_before, model_version_after,
			accuracy_before, accuracy_after, duration
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.ExecContext(ctx, query,
		ev.ID, ev.Symbol, ev.Timestamp, ev.Trigger,
		ev.ModelVersionBefore, ev.ModelVersionAfter,
		ev.AccuracyBefore, ev.AccuracyAfter, ev.Duration,
	)
	return err
}

// Latest returns the most recent event for a symbol, or nil when the
// model has never been trained
func (r *RetrainingRepository) Latest(ctx context.Context, symbol string) (*prediction.RetrainingEvent, error) {
	var ev prediction.RetrainingEvent

	query := `
		SELECT * FROM retraining_events
		WHERE symbol = $1
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetContext(ctx, &ev, query, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// List returns events newest first. limit 0 means no limit.
func (r *RetrainingRepository) List(ctx context.Context, symbol string, limit int) ([]*prediction.RetrainingEvent, error) {
	var events []*prediction.RetrainingEvent

	query := `
		SELECT * FROM retraining_events
		WHERE symbol = $1
		ORDER BY timestamp DESC`
	args := []interface{}{symbol}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	err := r.db.SelectContext(ctx, &events, query, args...)
	if err != nil {
		return nil, err
	}
	return events, nil
}
