package models

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// ImportRecord is provenance for one genotype ingestion attempt. Rows are
// append-only: re-imports add a new record, and genotype tables are keyed by
// (profile, rsid) so the latest successful import is authoritative.
type ImportRecord struct {
	bun.BaseModel `bun:"table:imports,alias:i"`

	ID             string       `bun:"id,pk" json:"id"`
	ProfileID      string       `bun:"profile_id,notnull" json:"profile_id"`
	Source         string       `bun:"source,notnull" json:"source"`
	FileHashSHA256 string       `bun:"file_hash_sha256,notnull" json:"file_hash_sha256"`
	ImportedAt     time.Time    `bun:"imported_at,notnull" json:"imported_at"`
	ParserVersion  string       `bun:"parser_version,notnull" json:"parser_version"`
	Build          string       `bun:"build,notnull" json:"build"`
	Strand         string       `bun:"strand,notnull" json:"strand"`
	Status         ImportStatus `bun:"status,notnull,default:'running'" json:"status"`
	ErrorMessage   *string      `bun:"error_message" json:"error_message,omitempty"`
	ZipMember      *string      `bun:"zip_member" json:"zip_member,omitempty"`

	Profile *Profile `bun:"rel:belongs-to,join:profile_id=id" json:"-"`
}

// Validate checks required import fields.
func (r *ImportRecord) Validate() error {
	if r.ID == "" {
		return errors.New("import id is required")
	}
	if r.ProfileID == "" {
		return errors.New("profile id is required")
	}
	if r.FileHashSHA256 == "" {
		return errors.New("file hash is required")
	}
	return nil
}

// IsOrphan reports whether the record never reached a terminal status,
// meaning the importing process died mid-flight.
func (r *ImportRecord) IsOrphan() bool {
	return r.Status == StatusRunning
}

// ClinVarImport is provenance for the ClinVar reference snapshot currently
// loaded. The latest row's hash detects both "nothing changed, skip" and
// "source changed, widen the incremental set".
type ClinVarImport struct {
	bun.BaseModel `bun:"table:clinvar_imports,alias:ci"`

	ID             string    `bun:"id,pk" json:"id"`
	FileHashSHA256 string    `bun:"file_hash_sha256,notnull" json:"file_hash_sha256"`
	ImportedAt     time.Time `bun:"imported_at,notnull" json:"imported_at"`
	VariantCount   int64     `bun:"variant_count,notnull" json:"variant_count"`
}
