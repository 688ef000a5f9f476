// Package services contains the escrow bot's business logic. This file
// implements UserService, which keeps the users table in sync with the
// people talking to the bot and answers audience queries for broadcasts
// and admin stats.
package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smile200420ff/Main-bot/internal/models"
	"github.com/smile200420ff/Main-bot/internal/repositories/repomanager"
)

// UserService provides user bookkeeping:
// - Register: insert-or-refresh a user on every interaction
// - Get: fetch a single user
// - ListActive / CountActive: broadcast audience and admin counters
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewUserService constructs a UserService over the given repositories.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager) *UserService {
	return &UserService{db: db, repomanager: m}
}

// Register upserts the user record. It runs on every inbound update, so a
// repeat visit is the normal case, not an error.
func (s *UserService) Register(ctx context.Context, userID int64, username, firstName string) error {
	user := &models.User{ID: userID, Username: username, FirstName: firstName, IsActive: true}
	repo := s.repomanager.Users(s.db)
	if err := repo.Upsert(ctx, user); err != nil {
		return fmt.Errorf("error registering user: %v", err)
	}
	return nil
}

// Get returns the stored user, or common.ErrorNotFound if the user has
// never talked to the bot.
func (s *UserService) Get(ctx context.Context, userID int64) (*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.Get(ctx, userID)
}

// ListActive returns every active user, oldest first.
func (s *UserService) ListActive(ctx context.Context) ([]*models.User, error) {
	repo := s.repomanager.Users(s.db)
	return repo.ListActive(ctx)
}

// CountActive returns the number of active users.
func (s *UserService) CountActive(ctx context.Context) (int64, error) {
	repo := s.repomanager.Users(s.db)
	return repo.CountActive(ctx)
}
