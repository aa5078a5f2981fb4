package clinvar

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/variantlab/dnainsights/internal/models"
)

func TestIsHighConfidence(t *testing.T) {
	assert.True(t, IsHighConfidence("practice_guideline"))
	assert.True(t, IsHighConfidence("reviewed_by_expert_panel"))
	assert.True(t, IsHighConfidence("Reviewed by expert panel"))
	assert.False(t, IsHighConfidence("criteria_provided,_single_submitter"))
	assert.False(t, IsHighConfidence(""))
}

func TestIsPathogenic(t *testing.T) {
	assert.True(t, IsPathogenic("Pathogenic"))
	assert.True(t, IsPathogenic("Likely_pathogenic"))
	assert.True(t, IsPathogenic("Pathogenic/Likely_pathogenic"))
	assert.True(t, IsPathogenic("Benign|Pathogenic"))
	assert.False(t, IsPathogenic("Benign"))
	assert.False(t, IsPathogenic(""))
}

func TestConflictingVetoesPathogenic(t *testing.T) {
	// The veto applies even when Pathogenic is co-listed.
	assert.False(t, IsPathogenic("Pathogenic|Conflicting_interpretations_of_pathogenicity"))
	assert.False(t, IsPathogenic("Conflicting interpretations of pathogenicity, Pathogenic"))
}

func TestHighConfidencePathogenicConjunction(t *testing.T) {
	assert.True(t, HighConfidencePathogenic("Pathogenic", "reviewed_by_expert_panel"))
	assert.False(t, HighConfidencePathogenic("Pathogenic", "criteria_provided,_single_submitter"))
	assert.False(t, HighConfidencePathogenic("Benign", "reviewed_by_expert_panel"))
	assert.False(t, HighConfidencePathogenic(
		"Pathogenic|Conflicting_interpretations_of_pathogenicity", "reviewed_by_expert_panel"))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		sig, review string
		confidence  models.Confidence
		conflict    bool
	}{
		{"Pathogenic", "practice guideline", models.ConfidenceHigh, false},
		{"Pathogenic", "reviewed by expert panel", models.ConfidenceHigh, false},
		{"Benign", "criteria provided, multiple submitters, no conflicts", models.ConfidenceModerate, false},
		{"Conflicting interpretations of pathogenicity", "criteria provided, single submitter", models.ConfidenceLow, true},
		{"Benign", "no assertion criteria provided", models.ConfidenceLow, false},
		{"Benign", "criteria provided, conflicting interpretations", models.ConfidenceLow, true},
		{"Uncertain significance", "", models.ConfidenceUnknown, false},
	}
	for _, tc := range cases {
		got := Classify(tc.sig, tc.review)
		assert.Equal(t, tc.confidence, got.Confidence, "sig=%q review=%q", tc.sig, tc.review)
		assert.Equal(t, tc.conflict, got.Conflict, "sig=%q review=%q", tc.sig, tc.review)
	}
}
