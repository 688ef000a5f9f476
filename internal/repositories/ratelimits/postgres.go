// Package ratelimits provides the PostgreSQL-backed per-user rate limiter.
package ratelimits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smile200420ff/Main-bot/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CheckAndUpdate atomically permits one action per window. The upsert only
// fires when the previous action is at least one window old, so two
// concurrent actions from the same user cannot both pass, and a rejected
// attempt never refreshes last_action (the window must not keep sliding).
func (r *PostgresRepository) CheckAndUpdate(ctx context.Context, userID int64, window time.Duration) (bool, error) {

	query :=
		`INSERT INTO rate_limits (user_id, last_action, action_count)
		 VALUES ($1, now(), 1)
		 ON CONFLICT (user_id) DO UPDATE
		 SET last_action = now(), action_count = rate_limits.action_count + 1
		 WHERE rate_limits.last_action <= now() - make_interval(secs => $2)
		 RETURNING action_count
		 `

	var count int64
	err := r.db.QueryRowContext(ctx, query, userID, window.Seconds()).Scan(&count)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// conflict row too fresh, update skipped
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}

	return true, nil
}
