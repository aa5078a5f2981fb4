package clinvar

import "strings"

// Review-status tokens that mark a high-confidence assertion.
var highConfidenceReviewTokens = []string{
	"practice_guideline",
	"reviewed_by_expert_panel",
}

// Pathogenic significance labels accepted by the import filter.
var pathogenicLabels = map[string]struct{}{
	"pathogenic":        {},
	"likely_pathogenic": {},
}

const conflictingLabel = "conflicting_interpretations_of_pathogenicity"

// normToken folds case and whitespace so phrase matching works on both the
// VCF underscore form and the variant_summary spaced form.
func normToken(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// splitSigValues splits a clinical-significance field on any of the
// separators ClinVar uses to co-list values.
func splitSigValues(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == '|' || r == ',' || r == ';' || r == '/'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if norm := normToken(p); norm != "" {
			out = append(out, norm)
		}
	}
	return out
}

// IsHighConfidence reports whether a review status carries practice
// guideline or expert panel weight (case/space-insensitive).
func IsHighConfidence(reviewStatus string) bool {
	review := normToken(reviewStatus)
	for _, token := range highConfidenceReviewTokens {
		if strings.Contains(review, token) {
			return true
		}
	}
	return false
}

// IsPathogenic reports whether a clinical-significance field intersects
// {pathogenic, likely_pathogenic}. A co-listed "conflicting interpretations
// of pathogenicity" value vetoes the classification outright.
func IsPathogenic(clnSig string) bool {
	values := splitSigValues(clnSig)
	pathogenic := false
	for _, v := range values {
		if v == conflictingLabel {
			return false
		}
		if _, ok := pathogenicLabels[v]; ok {
			pathogenic = true
		}
	}
	return pathogenic
}

// HighConfidencePathogenic is the import-time filter: both conditions must
// hold.
func HighConfidencePathogenic(clnSig, reviewStatus string) bool {
	return IsHighConfidence(reviewStatus) && IsPathogenic(clnSig)
}
