package users

import (
	"context"

	"github.com/smile200420ff/Main-bot/internal/models"
)

type Repository interface {
	Upsert(ctx context.Context, user *models.User) error
	Get(ctx context.Context, userID int64) (*models.User, error)
	ListActive(ctx context.Context) ([]*models.User, error)
	CountActive(ctx context.Context) (int64, error)
}
