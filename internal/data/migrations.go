package data

import (
	"context"
	"database/sql"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/migrate"
)

// RunMigrations executes database migrations to set up the required schema by delegating to the migrate package.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}
