package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// Profile-scoped core tables.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.Profile)(nil),
			(*models.ImportRecord)(nil),
			(*models.CuratedGenotype)(nil),
			(*models.FullGenotype)(nil),
			(*models.InsightResult)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		modelsList := []interface{}{
			(*models.InsightResult)(nil),
			(*models.FullGenotype)(nil),
			(*models.CuratedGenotype)(nil),
			(*models.ImportRecord)(nil),
			(*models.Profile)(nil),
		}

		for _, model := range modelsList {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		return nil
	})
}
