package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/skinmarket/arbiter/internal/models"
)

// DatabasePool defines the pool operations the repository needs. It is
// satisfied by both *pgxpool.Pool and pgxmock pools.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Repository handles persistence of the Item/Source/PriceRecord model.
type Repository struct {
	pool DatabasePool
}

func NewRepository(pool DatabasePool) *Repository {
	return &Repository{pool: pool}
}

// GetOrCreateItem resolves an item by its exact name, creating it on
// first sight. The unique constraint on items.name makes the operation
// atomic under concurrent ingestion: the insert either wins or hits the
// conflict, and the follow-up select observes the winner's row.
func (r *Repository) GetOrCreateItem(ctx context.Context, name string) (int64, error) {
	insert := `
		INSERT INTO items (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING item_id
	`

	var id int64
	err := r.pool.QueryRow(ctx, insert, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to insert item %q: %w", name, err)
	}

	// Conflict: another ingestion created the item first.
	err = r.pool.QueryRow(ctx, `SELECT item_id FROM items WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve item %q after conflict: %w", name, err)
	}
	return id, nil
}

// GetOrCreateSource resolves a source by name, creating it when absent.
// The commission rate always reflects the configuration, which is the
// single source of truth for commissions; the name itself is immutable.
func (r *Repository) GetOrCreateSource(ctx context.Context, name string, commission decimal.Decimal) (int64, error) {
	upsert := `
		INSERT INTO sources (name, commission_rate)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET commission_rate = EXCLUDED.commission_rate
		RETURNING source_id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, upsert, name, commission).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert source %q: %w", name, err)
	}
	return id, nil
}

// InsertPriceRecord appends one observation to the time series. Records
// are never updated or deleted.
func (r *Repository) InsertPriceRecord(ctx context.Context, rec models.PriceRecord) (int64, error) {
	insert := `
		INSERT INTO price_records (item_id, source_id, price, price_after_sell, retrieved_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING record_id
	`

	var id int64
	err := r.pool.QueryRow(ctx, insert,
		rec.ItemID, rec.SourceID, rec.Price, rec.PriceAfterSell, rec.RetrievedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert price record: %w", err)
	}
	return id, nil
}

// GetPriceRecord retrieves a single observation by id.
func (r *Repository) GetPriceRecord(ctx context.Context, id int64) (models.PriceRecord, error) {
	query := `
		SELECT record_id, item_id, source_id, price, price_after_sell, retrieved_at
		FROM price_records
		WHERE record_id = $1
	`

	var rec models.PriceRecord
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.ItemID, &rec.SourceID, &rec.Price, &rec.PriceAfterSell, &rec.RetrievedAt,
	)
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("failed to get price record %d: %w", id, err)
	}
	return rec, nil
}

// GetSourceByName retrieves a source row by its natural key.
func (r *Repository) GetSourceByName(ctx context.Context, name string) (models.Source, error) {
	query := `SELECT source_id, name, commission_rate FROM sources WHERE name = $1`

	var src models.Source
	err := r.pool.QueryRow(ctx, query, name).Scan(&src.ID, &src.Name, &src.CommissionRate)
	if err != nil {
		return models.Source{}, fmt.Errorf("failed to get source %q: %w", name, err)
	}
	return src, nil
}

// CountItemsByName reports how many item rows exist for a name. Used by
// callers asserting the uniqueness invariant.
func (r *Repository) CountItemsByName(ctx context.Context, name string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE name = $1`, name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count items %q: %w", name, err)
	}
	return n, nil
}
