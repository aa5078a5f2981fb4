package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/models"
)

// StoreInsights persists one generation of rule engine output. Every row in
// the batch shares a generated_at so the generation can be recalled as a
// unit; older generations stay in place as history.
func StoreInsights(ctx context.Context, db bun.IDB, profileID, kbVersion string, results map[string]string) (time.Time, error) {
	generatedAt := time.Now().UTC()
	if len(results) == 0 {
		return generatedAt, nil
	}
	rows := make([]*models.InsightResult, 0, len(results))
	for moduleID, resultJSON := range results {
		rows = append(rows, &models.InsightResult{
			ID:          uuid.NewString(),
			ProfileID:   profileID,
			ModuleID:    moduleID,
			ResultJSON:  resultJSON,
			GeneratedAt: generatedAt,
			KBVersion:   kbVersion,
		})
	}
	if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return time.Time{}, err
	}
	return generatedAt, nil
}

// LatestInsights returns the newest generation of results for a profile,
// keyed by module ID. An empty map means the profile has no generations yet.
func LatestInsights(ctx context.Context, db bun.IDB, profileID string) (map[string]*models.InsightResult, error) {
	var rows []*models.InsightResult
	err := db.NewSelect().
		Model(&rows).
		Where("profile_id = ?", profileID).
		Where("generated_at = (SELECT MAX(generated_at) FROM insight_results WHERE profile_id = ?)", profileID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.InsightResult, len(rows))
	for _, row := range rows {
		out[row.ModuleID] = row
	}
	return out, nil
}
