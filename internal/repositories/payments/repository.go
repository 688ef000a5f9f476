package payments

import (
	"context"

	"github.com/smile200420ff/Main-bot/internal/models"
)

// Repository is an append-only log of payment claims. Repeated claims for
// the same deal are kept as separate rows; interpretation is up to the
// lifecycle layer.
type Repository interface {
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	ListByDeal(ctx context.Context, dealID string) ([]*models.Payment, error)
	ListByPayer(ctx context.Context, payerID int64) ([]*models.Payment, error)
}
