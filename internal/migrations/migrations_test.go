package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/variantlab/dnainsights/internal/database"
	"github.com/variantlab/dnainsights/internal/models"
)

func TestRunMigrationsCreatesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db, zap.NewNop()))

	// Every registered migration must carry a valid derived name; a bad file
	// name panics at package init, so reaching this point covers naming.
	require.Len(t, Migrations.Sorted(), 4)

	// First and last migration tables are writable.
	_, err = db.NewInsert().Model(&models.Profile{ID: "p1", DisplayName: "Ada"}).Exec(ctx)
	require.NoError(t, err)
	_, err = db.NewInsert().Model(&models.CheckedRsID{RsID: "rs1"}).Exec(ctx)
	require.NoError(t, err)
}

func TestRunMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := database.NewMemoryDB()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, RunMigrations(ctx, db, zap.NewNop()))
	require.NoError(t, RunMigrations(ctx, db, zap.NewNop()))
}
