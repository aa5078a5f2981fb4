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

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// CreateProfile inserts a new named local identity.
func CreateProfile(ctx context.Context, db bun.IDB, displayName string, notes *string) (*models.Profile, error) {
	profile := &models.Profile{
		ID:                uuid.NewString(),
		DisplayName:       displayName,
		Notes:             notes,
		CreatedAt:         time.Now().UTC(),
		EncryptionEnabled: true,
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if _, err := db.NewInsert().Model(profile).Exec(ctx); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetProfile fetches a profile by ID.
func GetProfile(ctx context.Context, db bun.IDB, profileID string) (*models.Profile, error) {
	profile := new(models.Profile)
	err := db.NewSelect().Model(profile).Where("p.id = ?", profileID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles returns all profiles with their most recent import time,
// newest profile first.
func ListProfiles(ctx context.Context, db bun.IDB) ([]*models.ProfileSummary, error) {
	var profiles []*models.ProfileSummary
	err := db.NewSelect().
		Model((*models.Profile)(nil)).
		ColumnExpr("p.*").
		ColumnExpr("(SELECT MAX(i.imported_at) FROM imports AS i WHERE i.profile_id = p.id) AS last_imported_at").
		Order("p.created_at DESC").
		Scan(ctx, &profiles)
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// RenameProfile updates a profile's display name.
func RenameProfile(ctx context.Context, db bun.IDB, profileID, displayName string) error {
	res, err := db.NewUpdate().
		Model((*models.Profile)(nil)).
		Set("display_name = ?", displayName).
		Where("id = ?", profileID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProfile removes a profile and cascades to every profile-scoped
// table. ClinVar reference tables are profile-independent and untouched.
func DeleteProfile(ctx context.Context, db *bun.DB, profileID string) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		tables := []interface{}{
			(*models.CuratedGenotype)(nil),
			(*models.FullGenotype)(nil),
			(*models.InsightResult)(nil),
			(*models.ImportRecord)(nil),
		}
		for _, table := range tables {
			if _, err := tx.NewDelete().Model(table).Where("profile_id = ?", profileID).Exec(ctx); err != nil {
				return err
			}
		}
		_, err := tx.NewDelete().Model((*models.Profile)(nil)).Where("id = ?", profileID).Exec(ctx)
		return err
	})
}
