package models

import (
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// ClinVarVariant is profile-independent reference data keyed by rsID.
// The table is replaced wholesale or merged incrementally depending on the
// sync mode.
type ClinVarVariant struct {
	bun.BaseModel `bun:"table:clinvar_variants,alias:cv"`

	RsID                 string `bun:"rsid,pk" json:"rsid"`
	Chrom                string `bun:"chrom,notnull" json:"chrom"`
	Pos                  int64  `bun:"pos,notnull" json:"pos"`
	Ref                  string `bun:"ref,notnull" json:"ref"`
	Alt                  string `bun:"alt,notnull" json:"alt"`
	ClinicalSignificance string `bun:"clinical_significance" json:"clinical_significance"`
	ReviewStatus         string `bun:"review_status" json:"review_status"`
	Conditions           string `bun:"conditions" json:"conditions"`
	LastEvaluated        string `bun:"last_evaluated" json:"last_evaluated"`
}

// HasHighEvidence reports whether the review status carries practice
// guideline or expert panel weight.
func (v *ClinVarVariant) HasHighEvidence() bool {
	review := strings.ToLower(v.ReviewStatus)
	return strings.Contains(review, string(ReviewPracticeGuideline)) ||
		strings.Contains(review, string(ReviewExpertPanel))
}

// CheckedRsID records that an rsID has been resolved against the current
// ClinVar source, whether or not a variant was found. Existence alone is the
// signal; the set bounds future incremental syncs.
type CheckedRsID struct {
	bun.BaseModel `bun:"table:clinvar_checked,alias:cc"`

	RsID string `bun:"rsid,pk" json:"rsid"`
}

// ClinVarMatch joins a profile genotype against the ClinVar variant table.
type ClinVarMatch struct {
	RsID                 string  `bun:"rsid" json:"rsid"`
	Genotype             *string `bun:"genotype" json:"genotype"`
	ClinicalSignificance string  `bun:"clinical_significance" json:"clinical_significance"`
	ReviewStatus         string  `bun:"review_status" json:"review_status"`
}

// CacheVariant is a row in the standalone prebuilt ClinVar cache store. The
// cache is a faithful mirror of the source (no pathogenic filter); filtering
// happens at lookup time.
type CacheVariant struct {
	bun.BaseModel `bun:"table:clinvar_variants,alias:ccv"`

	RsID                 string `bun:"rsid,pk" json:"rsid"`
	Chrom                string `bun:"chrom,notnull" json:"chrom"`
	Pos                  int64  `bun:"pos,notnull" json:"pos"`
	Ref                  string `bun:"ref,notnull" json:"ref"`
	Alt                  string `bun:"alt,notnull" json:"alt"`
	ClinicalSignificance string `bun:"clinical_significance" json:"clinical_significance"`
	ReviewStatus         string `bun:"review_status" json:"review_status"`
	Conditions           string `bun:"conditions" json:"conditions"`
	LastEvaluated        string `bun:"last_evaluated" json:"last_evaluated"`
}

// CacheMeta describes the source a cache store was built from. Exactly one
// row per cache file.
type CacheMeta struct {
	bun.BaseModel `bun:"table:clinvar_cache_meta,alias:ccm"`

	ID             int64     `bun:"id,pk,autoincrement" json:"id"`
	FileHashSHA256 string    `bun:"file_hash_sha256,notnull" json:"file_hash_sha256"`
	SourcePath     string    `bun:"source_path,notnull" json:"source_path"`
	VariantCount   int64     `bun:"variant_count,notnull" json:"variant_count"`
	BuiltAt        time.Time `bun:"built_at,notnull" json:"built_at"`
}
