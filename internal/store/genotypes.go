package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// UpsertCuratedGenotypes replaces curated rows keyed by (profile_id, rsid).
// Last write wins, both across imports and for duplicate rsIDs within one
// parse pass.
func UpsertCuratedGenotypes(ctx context.Context, db bun.IDB, rows []*models.CuratedGenotype) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (profile_id, rsid) DO UPDATE").
		Set("chrom = EXCLUDED.chrom").
		Set("pos = EXCLUDED.pos").
		Set("genotype = EXCLUDED.genotype").
		Exec(ctx)
	return err
}

// UpsertFullGenotypes replaces full-table rows keyed by (profile_id, rsid).
func UpsertFullGenotypes(ctx context.Context, db bun.IDB, rows []*models.FullGenotype) error {
	if len(rows) == 0 {
		return nil
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (profile_id, rsid) DO UPDATE").
		Set("chrom = EXCLUDED.chrom").
		Set("pos = EXCLUDED.pos").
		Set("genotype = EXCLUDED.genotype").
		Exec(ctx)
	return err
}

// CuratedGenotypes returns all curated calls for a profile keyed by rsID.
func CuratedGenotypes(ctx context.Context, db bun.IDB, profileID string) (map[string]*models.CuratedGenotype, error) {
	var rows []*models.CuratedGenotype
	err := db.NewSelect().Model(&rows).Where("profile_id = ?", profileID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.CuratedGenotype, len(rows))
	for _, row := range rows {
		out[row.RsID] = row
	}
	return out, nil
}

// GetVariant looks up a single rsID for a profile, preferring the curated
// table and falling back to the full table for ad-hoc lookups outside the
// rule set.
func GetVariant(ctx context.Context, db bun.IDB, profileID, rsid string) (*models.CuratedGenotype, error) {
	row := new(models.CuratedGenotype)
	err := db.NewSelect().Model(row).
		Where("profile_id = ?", profileID).
		Where("rsid = ?", rsid).
		Scan(ctx)
	if err == nil {
		return row, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	full := new(models.FullGenotype)
	err = db.NewSelect().Model(full).
		Where("profile_id = ?", profileID).
		Where("rsid = ?", rsid).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &models.CuratedGenotype{
		ProfileID: full.ProfileID,
		RsID:      full.RsID,
		Chrom:     full.Chrom,
		Pos:       full.Pos,
		Genotype:  full.Genotype,
	}, nil
}

// ProfileRsIDs returns the union of curated and full rsIDs for one profile.
// This set drives incremental ClinVar syncs.
func ProfileRsIDs(ctx context.Context, db bun.IDB, profileID string) (map[string]struct{}, error) {
	var rsids []string
	err := db.NewSelect().
		ColumnExpr("rsid").
		TableExpr("(SELECT rsid FROM genotypes_curated WHERE profile_id = ? UNION SELECT rsid FROM genotypes_full WHERE profile_id = ?) AS u", profileID, profileID).
		Scan(ctx, &rsids)
	if err != nil {
		return nil, err
	}
	return toSet(rsids), nil
}

// AllRsIDs returns the union of curated and full rsIDs across every profile.
func AllRsIDs(ctx context.Context, db bun.IDB) (map[string]struct{}, error) {
	var rsids []string
	err := db.NewSelect().
		ColumnExpr("rsid").
		TableExpr("(SELECT rsid FROM genotypes_curated UNION SELECT rsid FROM genotypes_full) AS u").
		Scan(ctx, &rsids)
	if err != nil {
		return nil, err
	}
	return toSet(rsids), nil
}

// HasFullGenotypes reports whether a profile's full table is populated.
func HasFullGenotypes(ctx context.Context, db bun.IDB, profileID string) (bool, error) {
	return db.NewSelect().
		Model((*models.FullGenotype)(nil)).
		Where("profile_id = ?", profileID).
		Exists(ctx)
}

func toSet(rsids []string) map[string]struct{} {
	out := make(map[string]struct{}, len(rsids))
	for _, id := range rsids {
		out[id] = struct{}{}
	}
	return out
}
