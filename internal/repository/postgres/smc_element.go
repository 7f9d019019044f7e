package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"augur/internal/domain/signal"
	"augur/pkg/errors"
	"augur/pkg/ranges"
)

// Compile-time check
var _ signal.ElementRepository = (*ElementRepository)(nil)

// ElementRepository persists SMC element state using sqlx
type ElementRepository struct {
	db *sqlx.DB
}

// NewElementRepository creates a new SMC element repository
func NewElementRepository(db *sqlx.DB) *ElementRepository {
	return &ElementRepository{db: db}
}

// elementRow flattens the nested price range for scanning
type elementRow struct {
	signal.SMCElement
	PriceLow  float64 `db:"price_low"`
	PriceHigh float64 `db:"price_high"`
}

func (r elementRow) toElement() *signal.SMCElement {
	el := r.SMCElement
	el.PriceRange = ranges.Range{Low: r.PriceLow, High: r.PriceHigh}
	return &el
}

const elementUpsert = `
	INSERT INTO smc_elements (
		id, symbol, timeframe, kind, sentiment,
		price_low, price_high, created_at_bar, created_at,
		tested_count, fill_fraction, base_strength, active, weakened,
		last_test_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
	)
	ON CONFLICT (id) DO UPDATE SET
		tested_count = EXCLUDED.tested_count,
		fill_fraction = EXCLUDED.fill_fraction,
		base_strength = EXCLUDED.base_strength,
		active = EXCLUDED.active,
		weakened = EXCLUDED.weakened,
		last_test_at = EXCLUDED.last_test_at`

// Save inserts or updates an element by id
func (r *ElementRepository) Save(ctx context.Context, el *signal.SMCElement) error {
	_, err := r.db.ExecContext(ctx, elementUpsert,
		el.ID, el.Symbol, el.Timeframe, el.Kind, el.Sentiment,
		el.PriceRange.Low, el.PriceRange.High, el.CreatedAtBar, el.CreatedAt,
		el.TestedCount, el.FillFraction, el.BaseStrength, el.Active, el.Weakened,
		el.LastTestAt,
	)
	return err
}

// SaveBatch persists several elements of one series in one transaction
func (r *ElementRepository) SaveBatch(ctx context.Context, els []*signal.SMCElement) error {
	if len(els) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, el := range els {
		_, err := tx.ExecContext(ctx, elementUpsert,
			el.ID, el.Symbol, el.Timeframe, el.Kind, el.Sentiment,
			el.PriceRange.Low, el.PriceRange.High, el.CreatedAtBar, el.CreatedAt,
			el.TestedCount, el.FillFraction, el.BaseStrength, el.Active, el.Weakened,
			el.LastTestAt,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to save element %s", el.ID)
		}
	}
	return tx.Commit()
}

// GetByID fetches one element
func (r *ElementRepository) GetByID(ctx context.Context, id uuid.UUID) (*signal.SMCElement, error) {
	var row elementRow

	query := `SELECT * FROM smc_elements WHERE id = $1`

	err := r.db.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(errors.ErrNotFound, "element %s", id)
		}
		return nil, err
	}
	return row.toElement(), nil
}

// ListActive returns all active elements for a series
func (r *ElementRepository) ListActive(ctx context.Context, symbol string, tf signal.Timeframe) ([]*signal.SMCElement, error) {
	var rows []elementRow

	query := `
		SELECT * FROM smc_elements
		WHERE symbol = $1 AND timeframe = $2 AND active = true
		ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &rows, query, symbol, tf)
	if err != nil {
		return nil, err
	}

	els := make([]*signal.SMCElement, len(rows))
	for i, row := range rows {
		els[i] = row.toElement()
	}
	return els, nil
}

// List returns all elements for a series, newest first, capped at limit
func (r *ElementRepository) List(ctx context.Context, symbol string, tf signal.Timeframe, limit int) ([]*signal.SMCElement, error) {
	var rows []elementRow

	query := `
		SELECT * FROM smc_elements
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY created_at DESC
		LIMIT $3`

	err := r.db.SelectContext(ctx, &rows, query, symbol, tf, limit)
	if err != nil {
		return nil, err
	}

	els := make([]*signal.SMCElement, len(rows))
	for i, row := range rows {
		els[i] = row.toElement()
	}
	return els, nil
}
