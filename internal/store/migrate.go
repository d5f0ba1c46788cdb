package store

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/johndosdos/chatroom/sql/schema"
	"github.com/pressly/goose/v3"
)

func init() {
	goose.SetBaseFS(schema.FS)
}

// Migrate applies every pending migration.
func Migrate(pool *pgxpool.Pool) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("internal/store: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("internal/store: failed to migrate: %w", err)
	}
	return nil
}

// Reset rolls back every migration.
func Reset(pool *pgxpool.Pool) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("internal/store: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.Reset(db, "."); err != nil {
		return fmt.Errorf("internal/store: failed to reset: %w", err)
	}
	return nil
}
