package models

import (
	"errors"

	"github.com/uptrace/bun"
)

// CuratedGenotype is one call per (profile, rsID) for rsIDs referenced by a
// knowledge-module rule. Genotype is nil for a missing/no-read chip call.
// Re-imports replace rows via the (profile_id, rsid) primary key.
type CuratedGenotype struct {
	bun.BaseModel `bun:"table:genotypes_curated,alias:gc"`

	ProfileID string  `bun:"profile_id,pk" json:"profile_id"`
	RsID      string  `bun:"rsid,pk" json:"rsid"`
	Chrom     string  `bun:"chrom,notnull" json:"chrom"`
	Pos       int64   `bun:"pos,notnull" json:"pos"`
	Genotype  *string `bun:"genotype" json:"genotype"`
}

// Validate checks required genotype fields.
func (g *CuratedGenotype) Validate() error {
	if g.ProfileID == "" {
		return errors.New("profile id is required")
	}
	if g.RsID == "" {
		return errors.New("rsid is required")
	}
	if g.Pos <= 0 {
		return errors.New("position must be positive")
	}
	return nil
}

// Missing reports whether the chip produced no read at this site.
func (g *CuratedGenotype) Missing() bool {
	return g.Genotype == nil || *g.Genotype == ""
}

// FullGenotype mirrors CuratedGenotype for every rsID in the source file,
// populated only in full import mode. Kept as a separate table so curated
// scans stay small.
type FullGenotype struct {
	bun.BaseModel `bun:"table:genotypes_full,alias:gf"`

	ProfileID string  `bun:"profile_id,pk" json:"profile_id"`
	RsID      string  `bun:"rsid,pk" json:"rsid"`
	Chrom     string  `bun:"chrom,notnull" json:"chrom"`
	Pos       int64   `bun:"pos,notnull" json:"pos"`
	Genotype  *string `bun:"genotype" json:"genotype"`
}

// Missing reports whether the chip produced no read at this site.
func (g *FullGenotype) Missing() bool {
	return g.Genotype == nil || *g.Genotype == ""
}
