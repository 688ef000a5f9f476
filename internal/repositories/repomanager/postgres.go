// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/smile200420ff/Main-bot/internal/dbx"
	"github.com/smile200420ff/Main-bot/internal/migrations"
	"github.com/smile200420ff/Main-bot/internal/repositories/deals"
	"github.com/smile200420ff/Main-bot/internal/repositories/payments"
	"github.com/smile200420ff/Main-bot/internal/repositories/ratelimits"
	"github.com/smile200420ff/Main-bot/internal/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Deals returns a deals.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Deals(db dbx.DBTX) deals.Repository {
	return deals.NewPostgresRepository(db)
}

// Payments returns a payments.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Payments(db dbx.DBTX) payments.Repository {
	return payments.NewPostgresRepository(db)
}

// RateLimits returns a ratelimits.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) RateLimits(db dbx.DBTX) ratelimits.Repository {
	return ratelimits.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetDialect("pgx")
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}
