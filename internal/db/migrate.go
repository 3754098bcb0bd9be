package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/seand52/socialDev/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// Migrate applies all pending migrations embedded in the binary.
func Migrate(ctx context.Context, cfg config.PostgresConfig) error {
	sqlDB, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("open sql: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations)
	if err = goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, cfg.MigrateTimeout)
	defer cancel()

	if err = goose.UpContext(migrateCtx, sqlDB, migrationsDir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err = goose.EnsureDBVersionContext(migrateCtx, sqlDB); err != nil {
		return fmt.Errorf("migrate version: %w", err)
	}

	return nil
}
