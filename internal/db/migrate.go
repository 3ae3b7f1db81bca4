package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/qcheck-dev/qcheck/internal/db/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies the embedded goose migrations. goose wants a
// database/sql handle, so we open a short-lived one next to the pgx pool.
func RunMigrations(ctx context.Context, dbURL string) error {
	sqlDB, err := sql.Open("pgx", dbURL)

	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}

	defer sqlDB.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
