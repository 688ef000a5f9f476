package repomanager

import (
	"context"
	"database/sql"

	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/repositories/deals"
	"github.com/smile200420ff/Main-bot/internal/repositories/payments"
	"github.com/smile200420ff/Main-bot/internal/repositories/ratelimits"
	"github.com/smile200420ff/Main-bot/internal/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so the same
// constructors serve both plain connections and transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Deals(db dbx.DBTX) deals.Repository
	Payments(db dbx.DBTX) payments.Repository
	RateLimits(db dbx.DBTX) ratelimits.Repository
}
