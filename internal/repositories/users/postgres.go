package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/smile200420ff/Main-bot/internal/common"
	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the user or refreshes username and first name for a known
// user ID. Duplicates are not an error.
func (r *PostgresRepository) Upsert(ctx context.Context, user *models.User) error {

	query :=
		`INSERT INTO users (user_id, username, first_name)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
		 `

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.FirstName)

	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*models.User, error) {
	query :=
		`SELECT user_id, username, first_name, created_at, is_active FROM users
		 WHERE user_id = $1
		 `

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&user.ID, &user.Username, &user.FirstName, &user.CreatedAt, &user.IsActive)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// ListActive returns every user that has not been soft-disabled, oldest
// first. Broadcast delivery walks this list.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*models.User, error) {
	query :=
		`SELECT user_id, username, first_name, created_at, is_active FROM users
		 WHERE is_active
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	var result []*models.User
	for rows.Next() {
		var item models.User
		if err := rows.Scan(&item.ID, &item.Username, &item.FirstName, &item.CreatedAt, &item.IsActive); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) CountActive(ctx context.Context) (int64, error) {
	query :=
		`SELECT COUNT(*) FROM users
		 WHERE is_active
		 `

	var count int64
	err := r.db.QueryRowContext(ctx, query).Scan(&count)

	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return count, nil
}
