package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/Abhijeet1005/SartiaProject/migrations"
)

// Migrate applies the embedded goose migrations against the database.
func Migrate(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations.Files)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("platform/db: set dialect: %w", err)
	}

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("platform/db: open for migrate: %w", err)
	}
	defer conn.Close()

	if err := goose.UpContext(ctx, conn, "."); err != nil {
		return fmt.Errorf("platform/db: migrate up: %w", err)
	}
	return nil
}
