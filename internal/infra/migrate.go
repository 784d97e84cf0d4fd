package infra

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"mediagen/db/migrations"
)

// Migrate applies every pending ledger migration.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
