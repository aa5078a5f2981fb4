package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// UpsertClinVarVariants merges reference rows keyed by rsID.
func UpsertClinVarVariants(ctx context.Context, db bun.IDB, rows []*models.ClinVarVariant) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (rsid) DO UPDATE").
		Set("chrom = EXCLUDED.chrom").
		Set("pos = EXCLUDED.pos").
		Set("ref = EXCLUDED.ref").
		Set("alt = EXCLUDED.alt").
		Set("clinical_significance = EXCLUDED.clinical_significance").
		Set("review_status = EXCLUDED.review_status").
		Set("conditions = EXCLUDED.conditions").
		Set("last_evaluated = EXCLUDED.last_evaluated").
		Exec(ctx)
	return err
}

// ClearClinVarVariants empties the reference table ahead of a full replace.
func ClearClinVarVariants(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDelete().Model((*models.ClinVarVariant)(nil)).Where("1=1").Exec(ctx)
	return err
}

// GetClinVarVariant fetches one reference row by rsID.
func GetClinVarVariant(ctx context.Context, db bun.IDB, rsid string) (*models.ClinVarVariant, error) {
	row := new(models.ClinVarVariant)
	err := db.NewSelect().Model(row).Where("rsid = ?", rsid).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// AddClinVarImport records provenance for the currently loaded snapshot.
func AddClinVarImport(ctx context.Context, db bun.IDB, fileHash string, variantCount int64) (*models.ClinVarImport, error) {
	rec := &models.ClinVarImport{
		ID:             uuid.NewString(),
		FileHashSHA256: fileHash,
		ImportedAt:     time.Now().UTC(),
		VariantCount:   variantCount,
	}
	if _, err := db.NewInsert().Model(rec).Exec(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestClinVarImport returns the newest snapshot provenance row, or
// ErrNotFound when no snapshot has been loaded.
func LatestClinVarImport(ctx context.Context, db bun.IDB) (*models.ClinVarImport, error) {
	rec := new(models.ClinVarImport)
	err := db.NewSelect().Model(rec).Order("imported_at DESC").Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// CheckedRsIDs returns the set of rsIDs already resolved against the
// current ClinVar source.
func CheckedRsIDs(ctx context.Context, db bun.IDB) (map[string]struct{}, error) {
	var rsids []string
	err := db.NewSelect().
		Model((*models.CheckedRsID)(nil)).
		Column("rsid").
		Scan(ctx, &rsids)
	if err != nil {
		return nil, err
	}
	return toSet(rsids), nil
}

// MarkChecked adds rsIDs to the checked set, ignoring existing members.
// A miss is still "checked": recording absences prevents repeated fruitless
// lookups.
func MarkChecked(ctx context.Context, db bun.IDB, rsids []string) error {
	if len(rsids) == 0 {
		return nil
	}
	rows := make([]*models.CheckedRsID, 0, len(rsids))
	for _, id := range rsids {
		rows = append(rows, &models.CheckedRsID{RsID: id})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (rsid) DO NOTHING").
		Exec(ctx)
	return err
}

// ClearChecked empties the checked set; done whenever the ClinVar source
// changes or a full replace is requested.
func ClearChecked(ctx context.Context, db bun.IDB) error {
	_, err := db.NewDelete().Model((*models.CheckedRsID)(nil)).Where("1=1").Exec(ctx)
	return err
}

// ClinVarMatches joins a profile's genotypes against the reference table,
// preferring the full table when populated.
func ClinVarMatches(ctx context.Context, db bun.IDB, profileID string, limit int) ([]*models.ClinVarMatch, error) {
	table, err := matchTable(ctx, db, profileID)
	if err != nil {
		return nil, err
	}
	var matches []*models.ClinVarMatch
	q := db.NewSelect().
		ColumnExpr("g.rsid, g.genotype, cv.clinical_significance, cv.review_status").
		TableExpr("? AS g", bun.Ident(table)).
		Join("JOIN clinvar_variants AS cv ON cv.rsid = g.rsid").
		Where("g.profile_id = ?", profileID)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx, &matches); err != nil {
		return nil, err
	}
	return matches, nil
}

// CountClinVarMatches counts reference hits for a profile.
func CountClinVarMatches(ctx context.Context, db bun.IDB, profileID string) (int64, error) {
	table, err := matchTable(ctx, db, profileID)
	if err != nil {
		return 0, err
	}
	var count int64
	err = db.NewSelect().
		ColumnExpr("COUNT(*)").
		TableExpr("? AS g", bun.Ident(table)).
		Join("JOIN clinvar_variants AS cv ON cv.rsid = g.rsid").
		Where("g.profile_id = ?", profileID).
		Scan(ctx, &count)
	return count, err
}

func matchTable(ctx context.Context, db bun.IDB, profileID string) (string, error) {
	hasFull, err := HasFullGenotypes(ctx, db, profileID)
	if err != nil {
		return "", err
	}
	if hasFull {
		return "genotypes_full", nil
	}
	return "genotypes_curated", nil
}
