package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Migrate applies (or, with rollback, reverts the latest of) the embedded
// migrations for the store's dialect.
func Migrate(ctx context.Context, db *DB, rollback bool) error {
	gooseDialect := "postgres"
	dir := "migrations/postgres"
	if db.Dialect == DialectSQLite {
		gooseDialect = "sqlite3"
		dir = "migrations/sqlite"
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("goose: set dialect: %w", err)
	}

	if rollback {
		if err := goose.DownContext(ctx, db.SQLX.DB, dir); err != nil {
			return fmt.Errorf("goose down: %w", err)
		}
		return nil
	}

	if err := goose.UpContext(ctx, db.SQLX.DB, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
