package clinvar

import (
	"strings"

	"github.com/variantlab/dnainsights/internal/models"
)

// Classification is a display-time bucketing of a ClinVar entry. It is
// independent of the import filter: an entry the filter admits can still
// classify as Low confidence here.
type Classification struct {
	Confidence models.Confidence `json:"confidence"`
	Conflict   bool              `json:"conflict"`
}

// Classify buckets confidence from review-status phrase matching and flags a
// potential conflict from either field.
func Classify(clinicalSignificance, reviewStatus string) Classification {
	sig := normToken(clinicalSignificance)
	review := normToken(reviewStatus)

	confidence := models.ConfidenceUnknown
	switch {
	case strings.Contains(review, "practice_guideline") || strings.Contains(review, "expert_panel"):
		confidence = models.ConfidenceHigh
	case strings.Contains(review, "multiple_submitters"):
		confidence = models.ConfidenceModerate
	case strings.Contains(review, "single_submitter") ||
		strings.Contains(review, "no_assertion") ||
		strings.Contains(review, "conflicting"):
		confidence = models.ConfidenceLow
	}

	conflict := strings.Contains(sig, "conflicting")
	if !conflict && strings.Contains(review, "conflict") && !strings.Contains(review, "no_conflicts") {
		conflict = true
	}

	return Classification{Confidence: confidence, Conflict: conflict}
}
