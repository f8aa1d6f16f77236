package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationSources exposes the embedded goose migrations directory.
func MigrationSources() (fs.FS, error) {
	return fs.Sub(migrationFiles, "migrations")
}

func newMigrationProvider(db *sqlx.DB) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("migrate: nil database")
	}
	sources, err := MigrationSources()
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return nil, fmt.Errorf("create migration lock: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, sources, goose.WithSessionLocker(locker))
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}
	return provider, nil
}

// Migrate applies pending embedded migrations with goose. A Postgres advisory
// lock serialises instances that start at the same time.
func Migrate(ctx context.Context, db *sqlx.DB) ([]string, error) {
	provider, err := newMigrationProvider(db)
	if err != nil {
		return nil, err
	}
	results, err := provider.Up(ctx)
	applied := make([]string, 0, len(results))
	for _, result := range results {
		if result.Source != nil {
			applied = append(applied, result.Source.Path)
		}
	}
	if err != nil {
		return applied, fmt.Errorf("goose up: %w", err)
	}
	return applied, nil
}
