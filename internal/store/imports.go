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

// errorMessageLimit bounds stored failure messages.
const errorMessageLimit = 500

// NewImportRecord constructs a provenance row in the running state.
func NewImportRecord(profileID, source, fileHash, parserVersion, build, strand string, zipMember *string) *models.ImportRecord {
	return &models.ImportRecord{
		ID:             uuid.NewString(),
		ProfileID:      profileID,
		Source:         source,
		FileHashSHA256: fileHash,
		ImportedAt:     time.Now().UTC(),
		ParserVersion:  parserVersion,
		Build:          build,
		Strand:         strand,
		Status:         models.StatusRunning,
		ZipMember:      zipMember,
	}
}

// AddImport appends an import provenance row. Provenance is append-only:
// rows are never deleted except by profile cascade.
func AddImport(ctx context.Context, db bun.IDB, rec *models.ImportRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	_, err := db.NewInsert().Model(rec).Exec(ctx)
	return err
}

// SetImportStatus writes the terminal status of an import attempt. Error
// messages are truncated to keep provenance rows bounded.
func SetImportStatus(ctx context.Context, db bun.IDB, importID string, status models.ImportStatus, errorMessage *string) error {
	if errorMessage != nil && len(*errorMessage) > errorMessageLimit {
		truncated := (*errorMessage)[:errorMessageLimit]
		errorMessage = &truncated
	}
	_, err := db.NewUpdate().
		Model((*models.ImportRecord)(nil)).
		Set("status = ?", status).
		Set("error_message = ?", errorMessage).
		Where("id = ?", importID).
		Exec(ctx)
	return err
}

// LatestImport returns the most recent import attempt for a profile in any
// state, or ErrNotFound.
func LatestImport(ctx context.Context, db bun.IDB, profileID string) (*models.ImportRecord, error) {
	rec := new(models.ImportRecord)
	err := db.NewSelect().
		Model(rec).
		Where("profile_id = ?", profileID).
		Order("imported_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LatestCompletedImport returns the most recent successful import for a
// profile. Running, failed and cancelled attempts are never reported as
// "latest completed".
func LatestCompletedImport(ctx context.Context, db bun.IDB, profileID string) (*models.ImportRecord, error) {
	rec := new(models.ImportRecord)
	err := db.NewSelect().
		Model(rec).
		Where("profile_id = ?", profileID).
		Where("status = ?", models.StatusOK).
		Order("imported_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// OrphanImports lists rows stuck in the running state: imports whose process
// died before reaching a terminal status.
func OrphanImports(ctx context.Context, db bun.IDB) ([]*models.ImportRecord, error) {
	var recs []*models.ImportRecord
	err := db.NewSelect().
		Model(&recs).
		Where("status = ?", models.StatusRunning).
		Order("imported_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
