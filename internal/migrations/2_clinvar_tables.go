package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// Profile-independent ClinVar reference tables.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.ClinVarVariant)(nil),
			(*models.ClinVarImport)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.ClinVarImport)(nil),
			(*models.ClinVarVariant)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
