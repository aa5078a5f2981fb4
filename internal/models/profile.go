package models

import (
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// Profile is a named local identity owning all genotype and import data.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:p"`

	ID                string    `bun:"id,pk" json:"id"`
	DisplayName       string    `bun:"display_name,notnull" json:"display_name"`
	Notes             *string   `bun:"notes" json:"notes,omitempty"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	EncryptionEnabled bool      `bun:"encryption_enabled,notnull,default:true" json:"encryption_enabled"`
}

// Validate checks that required profile fields are present.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return errors.New("profile id is required")
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		return errors.New("display name is required")
	}
	return nil
}

// ProfileSummary is a profile row joined with its most recent import time.
type ProfileSummary struct {
	Profile
	LastImportedAt *time.Time `bun:"last_imported_at" json:"last_imported_at,omitempty"`
}
