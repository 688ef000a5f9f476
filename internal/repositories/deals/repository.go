package deals

import (
	"context"

	"github.com/smile200420ff/Main-bot/internal/models"
)

// Repository persists deals. Status writes are unconditional: lifecycle
// legality is checked by the caller against models.DealStatus before any
// UpdateStatus call. GetForUpdate locks the row for the rest of the
// surrounding transaction so that check-then-update sequences serialize.
type Repository interface {
	Create(ctx context.Context, deal *models.Deal) (*models.Deal, error)
	Get(ctx context.Context, dealID string) (*models.Deal, error)
	GetForUpdate(ctx context.Context, dealID string) (*models.Deal, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]*models.Deal, error)
	List(ctx context.Context, status models.DealStatus) ([]*models.Deal, error)
	UpdateStatus(ctx context.Context, dealID string, status models.DealStatus) error
	Stats(ctx context.Context) (*models.DealStats, error)
}
