package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"augur/internal/domain/prediction"
	"augur/pkg/errors"
)

// Compile-time check
var _ prediction.Repository = (*PredictionRepository)(nil)

// PredictionRepository implements prediction.Repository using sqlx
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Create inserts a new pending prediction
func (r *PredictionRepository) Create(ctx context.Context, p *prediction.Prediction) error {
	query := `
		INSERT INTO predictions (
			id, symbol, timeframe, sentiment, confidence,
			price_at_prediction, created_at, verify_after, model_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Symbol, p.Timeframe, p.Sentiment, p.Confidence,
		p.PriceAtPrediction, p.CreatedAt, p.VerifyAfter, p.ModelVersion,
	)
	return err
}

// GetByID retrieves a prediction by ID
func (r *PredictionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prediction.Prediction, error) {
	var p prediction.Prediction

	query := `SELECT * FROM predictions WHERE id = $1`

	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "prediction %s", id)
		}
		return nil, err
	}
	return &p, nil
}

// ListPending returns unverified predictions for a symbol, oldest first
func (r *PredictionRepository) ListPending(ctx context.Context, symbol string, limit int) ([]*prediction.Prediction, error) {
	var preds []*prediction.Prediction

	query := `
		SELECT * FROM predictions
		WHERE symbol = $1 AND verified_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &preds, query, symbol, limit)
	if err != nil {
		return nil, err
	}
	return preds, nil
}

// ListVerifiedSince returns predictions verified at or after since. A
// zero since returns all verified predictions. limit 0 means no limit.
func (r *PredictionRepository) ListVerifiedSince(ctx context.Context, symbol string, since time.Time, limit int) ([]*prediction.Prediction, error) {
	var preds []*prediction.Prediction

	query := `
		SELECT * FROM predictions
		WHERE symbol = $1 AND verified_at IS NOT NULL AND verified_at >= $2
		ORDER BY verified_at DESC`
	args := []interface{}{symbol, since}

	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	err := r.db.SelectContext(ctx, &preds, query, args...)
	if err != nil {
		return nil, err
	}
	return preds, nil
}

// MarkVerified writes the terminal verification fields. The guard on
// verified_at makes the transition happen at most once; a lost race
// returns false with no error.
func (r *PredictionRepository) MarkVerified(ctx context.Context, p *prediction.Prediction) (bool, error) {
	query := `
		UPDATE predictions
		SET verified_at = $2,
		    price_at_verification = $3,
		    actual_outcome = $4,
		    was_correct = $5
		WHERE id = $1 AND verified_at IS NULL`

	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.VerifiedAt, p.PriceAtVerification, p.ActualOutcome, p.WasCorrect,
	)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// CountVerifiedSince counts predictions verified at or after since,
// across all symbols when symbol is empty
func (r *PredictionRepository) CountVerifiedSince(ctx context.Context, symbol string, since time.Time) (int, error) {
	var count int

	if symbol == "" {
		query := `
			SELECT COUNT(*) FROM predictions
			WHERE verified_at IS NOT NULL AND verified_at >= $1`
		if err := r.db.GetContext(ctx, &count, query, since); err != nil {
			return 0, err
		}
		return count, nil
	}

	query := `
		SELECT COUNT(*) FROM predictions
		WHERE symbol = $1 AND verified_at IS NOT NULL AND verified_at >= $2`
	if err := r.db.GetContext(ctx, &count, query, symbol, since); err != nil {
		return 0, err
	}
	return count, nil
}
