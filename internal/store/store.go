// Package store is the transactional repository layer over the embedded
// SQLite database. Functions accept bun.IDB so they compose inside and
// outside transactions; only the ingestion orchestrator writes terminal
// provenance state.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/variantlab/dnainsights/internal/database"
	"github.com/variantlab/dnainsights/internal/migrations"
)

// Open opens (creating if needed) the application database at path and
// forward-migrates it in place.
func Open(ctx context.Context, path string, debug bool, logger *zap.Logger) (*bun.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := database.NewDB(path, debug)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := migrations.RunMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// OpenMemory opens a migrated in-memory database for tests.
func OpenMemory(ctx context.Context) (*bun.DB, error) {
	db, err := database.NewMemoryDB()
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(ctx, db, zap.NewNop()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
