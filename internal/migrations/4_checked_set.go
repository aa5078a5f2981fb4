package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// Checked-rsID bookkeeping for incremental ClinVar syncs.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewCreateTable().Model((*models.CheckedRsID)(nil)).IfNotExists().Exec(ctx)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.NewDropTable().Model((*models.CheckedRsID)(nil)).IfExists().Exec(ctx)
		return err
	})
}
