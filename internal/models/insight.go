package models

import (
	"time"

	"github.com/uptrace/bun"
)

// InsightResult is the rule engine's output for one module of one run,
// stored as an opaque JSON snapshot. Only the newest generated_at batch for a
// profile is "current"; older generations remain for history.
type InsightResult struct {
	bun.BaseModel `bun:"table:insight_results,alias:ir"`

	ID          string    `bun:"id,pk" json:"id"`
	ProfileID   string    `bun:"profile_id,notnull" json:"profile_id"`
	ModuleID    string    `bun:"module_id,notnull" json:"module_id"`
	ResultJSON  string    `bun:"result_json,notnull" json:"result_json"`
	GeneratedAt time.Time `bun:"generated_at,notnull" json:"generated_at"`
	KBVersion   string    `bun:"kb_version,notnull" json:"kb_version"`

	Profile *Profile `bun:"rel:belongs-to,join:profile_id=id" json:"-"`
}
