package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

// Query-path indexes.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_imports_profile_imported_at ON imports(profile_id, imported_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_imports_status ON imports(status)",
			"CREATE INDEX IF NOT EXISTS idx_genotypes_full_profile_chrom_pos ON genotypes_full(profile_id, chrom, pos)",
			"CREATE INDEX IF NOT EXISTS idx_insight_results_profile_generated ON insight_results(profile_id, generated_at DESC)",
			"CREATE INDEX IF NOT EXISTS idx_clinvar_imports_imported_at ON clinvar_imports(imported_at DESC)",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			"DROP INDEX IF EXISTS idx_imports_profile_imported_at",
			"DROP INDEX IF EXISTS idx_imports_status",
			"DROP INDEX IF EXISTS idx_genotypes_full_profile_chrom_pos",
			"DROP INDEX IF EXISTS idx_insight_results_profile_generated",
			"DROP INDEX IF EXISTS idx_clinvar_imports_imported_at",
		}

		for _, idx := range indexes {
			if _, err := db.ExecContext(ctx, idx); err != nil {
				return err
			}
		}

		return nil
	})
}
