// Package migrations defines the forward-only schema migrations. Each
// migration lives in its own numbered file; bun derives the migration name
// from the file that calls MustRegister.
package migrations

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

var Migrations = migrate.NewMigrations()

// RunMigrations runs all pending migrations.
func RunMigrations(ctx context.Context, db *bun.DB, logger *zap.Logger) error {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}

	if group.IsZero() {
		logger.Debug("no new migrations to run")
		return nil
	}

	logger.Info("migrated schema", zap.String("group", group.String()))
	return nil
}
