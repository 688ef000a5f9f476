package ratelimits

import (
	"context"
	"time"
)

// Repository is the durable rate-limit table: one row per user, refreshed
// only when an action is permitted.
type Repository interface {
	CheckAndUpdate(ctx context.Context, userID int64, window time.Duration) (bool, error)
}
