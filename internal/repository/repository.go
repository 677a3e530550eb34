package repository

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) MigrateUp(ctx context.Context) error {
	return r.runMigration(ctx, "migrations/create_tables.up.sql")
}

func (r *Repository) MigrateDown(ctx context.Context) error {
	return r.runMigration(ctx, "migrations/create_tables.down.sql")
}

func (r *Repository) runMigration(ctx context.Context, name string) error {
	sql, err := migrationFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}
	if _, err := r.pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("execute migration %s: %w", name, err)
	}
	return nil
}
