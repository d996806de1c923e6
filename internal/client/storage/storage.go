// Package storage opens the local SQLite database that keeps the session
// token between runs.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/emvi-client/internal/client/migrations"
	"github.com/dmitrijs2005/emvi-client/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/emvi-client/pkg/emvi"
)

const driverName = "sqlite"

var _ emvi.Store = (*metadata.SQLiteRepository)(nil)

// Database is an open, migrated client database.
type Database struct {
	DB       *sql.DB
	Metadata *metadata.SQLiteRepository
}

// Open opens the database at path, creating it and its parent directory
// if needed, and applies pending migrations. ":memory:" opens a private
// in-memory database.
func Open(ctx context.Context, path string) (*Database, error) {
	if !isMemory(path) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps ":memory:" one database for the whole pool
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Database{
		DB:       db,
		Metadata: metadata.NewSQLiteRepository(db),
	}, nil
}

// RunMigrations applies the embedded migrations. It is a no-op on an
// up-to-date database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}
