package payments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends a payment record. Repeated claims against the same deal
// are accepted on purpose, each as its own row.
func (r *PostgresRepository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {

	query :=
		`INSERT INTO payments (payment_id, deal_id, payer_id, amount, payment_method, reference_id, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 `

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.DealID, payment.PayerID, payment.Amount,
		payment.Method, payment.ReferenceID, payment.Status)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return payment, nil
}

// ListByDeal returns all payment claims recorded against a deal, newest first.
func (r *PostgresRepository) ListByDeal(ctx context.Context, dealID string) ([]*models.Payment, error) {
	query :=
		`SELECT payment_id, deal_id, payer_id, amount, payment_method, reference_id, status, created_at FROM payments
		 WHERE deal_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to select payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

// ListByPayer returns all payment claims submitted by a user, newest first.
func (r *PostgresRepository) ListByPayer(ctx context.Context, payerID int64) ([]*models.Payment, error) {
	query :=
		`SELECT payment_id, deal_id, payer_id, amount, payment_method, reference_id, status, created_at FROM payments
		 WHERE payer_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, payerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select payments: %w", err)
	}
	defer rows.Close()

	return scanPayments(rows)
}

func scanPayments(rows *sql.Rows) ([]*models.Payment, error) {
	var result []*models.Payment
	for rows.Next() {
		var item models.Payment
		if err := rows.Scan(
			&item.ID, &item.DealID, &item.PayerID, &item.Amount,
			&item.Method, &item.ReferenceID, &item.Status, &item.CreatedAt,
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
