// Package deals provides the PostgreSQL-backed repository for deal
// persistence and aggregate statistics.
package deals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/models"
)

// PostgresRepository implements deal storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new deal in the created status. A deal_id collision is
// reported as common.ErrorAlreadyExists so the caller can regenerate the ID
// and retry.
func (r *PostgresRepository) Create(ctx context.Context, deal *models.Deal) (*models.Deal, error) {

	query :=
		`INSERT INTO deals (deal_id, creator_id, description, amount, terms)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (deal_id) DO NOTHING
		 `

	res, err := r.db.ExecContext(ctx, query,
		deal.ID, deal.CreatorID, deal.Description, deal.Amount, deal.Terms)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return nil, common.ErrorAlreadyExists
	}

	deal.Status = models.DealStatusCreated
	return deal, nil
}

func (r *PostgresRepository) Get(ctx context.Context, dealID string) (*models.Deal, error) {
	query :=
		`SELECT deal_id, creator_id, description, amount, terms, status, created_at, updated_at FROM deals
		 WHERE deal_id = $1
		 `
	return r.getOne(ctx, query, dealID)
}

// GetForUpdate reads the deal and locks its row until the surrounding
// transaction ends. Outside a transaction it behaves like Get.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, dealID string) (*models.Deal, error) {
	query :=
		`SELECT deal_id, creator_id, description, amount, terms, status, created_at, updated_at FROM deals
		 WHERE deal_id = $1
		 FOR UPDATE
		 `
	return r.getOne(ctx, query, dealID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query, dealID string) (*models.Deal, error) {
	deal := &models.Deal{}
	err := r.db.QueryRowContext(ctx, query, dealID).Scan(
		&deal.ID, &deal.CreatorID, &deal.Description, &deal.Amount,
		&deal.Terms, &deal.Status, &deal.CreatedAt, &deal.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return deal, nil
}

// ListByCreator returns all deals created by the user, newest first.
func (r *PostgresRepository) ListByCreator(ctx context.Context, creatorID int64) ([]*models.Deal, error) {
	query :=
		`SELECT deal_id, creator_id, description, amount, terms, status, created_at, updated_at FROM deals
		 WHERE creator_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to select deals: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

// List returns all deals, newest first, optionally filtered by status.
// An empty status means no filter.
func (r *PostgresRepository) List(ctx context.Context, status models.DealStatus) ([]*models.Deal, error) {
	query :=
		`SELECT deal_id, creator_id, description, amount, terms, status, created_at, updated_at FROM deals
		 ORDER BY created_at DESC
		 `
	args := []any{}

	if status != "" {
		query =
			`SELECT deal_id, creator_id, description, amount, terms, status, created_at, updated_at FROM deals
			 WHERE status = $1
			 ORDER BY created_at DESC
			 `
		args = append(args, status)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select deals: %w", err)
	}
	defer rows.Close()

	return scanDeals(rows)
}

func scanDeals(rows *sql.Rows) ([]*models.Deal, error) {
	var result []*models.Deal
	for rows.Next() {
		var item models.Deal
		if err := rows.Scan(
			&item.ID, &item.CreatorID, &item.Description, &item.Amount,
			&item.Terms, &item.Status, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus overwrites the status and refreshes updated_at. It does not
// check transition legality; see Repository.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, dealID string, status models.DealStatus) error {

	query :=
		`UPDATE deals SET status = $1, updated_at = now()
		 WHERE deal_id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, status, dealID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

// Stats computes the aggregate snapshot in a single query so the counters
// and the active value always come from one consistent read.
func (r *PostgresRepository) Stats(ctx context.Context) (*models.DealStats, error) {
	query :=
		`SELECT
		    COUNT(*),
		    COUNT(*) FILTER (WHERE status IN ('created', 'funded')),
		    COUNT(*) FILTER (WHERE status = 'completed'),
		    COUNT(*) FILTER (WHERE status = 'disputed'),
		    COUNT(*) FILTER (WHERE status = 'cancelled'),
		    COALESCE(SUM(amount) FILTER (WHERE status IN ('created', 'funded')), 0)
		 FROM deals
		 `

	stats := &models.DealStats{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.TotalDeals, &stats.ActiveDeals, &stats.CompletedDeals,
		&stats.DisputedDeals, &stats.CancelledDeals, &stats.TotalActiveValue)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return stats, nil
}
