package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImportStatusTerminal(t *testing.T) {
	assert.False(t, StatusRunning.Terminal())
	assert.True(t, StatusOK.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
}

func TestImportModeValid(t *testing.T) {
	assert.True(t, ModeCurated.Valid())
	assert.True(t, ModeFull.Valid())
	assert.False(t, ImportMode("partial").Valid())
}

func TestProfileValidate(t *testing.T) {
	p := &Profile{ID: "p1", DisplayName: "Test"}
	assert.NoError(t, p.Validate())

	assert.Error(t, (&Profile{DisplayName: "x"}).Validate())
	assert.Error(t, (&Profile{ID: "p1"}).Validate())
}

func TestImportRecordOrphan(t *testing.T) {
	r := &ImportRecord{ID: "i1", ProfileID: "p1", FileHashSHA256: "abc", Status: StatusRunning}
	assert.NoError(t, r.Validate())
	assert.True(t, r.IsOrphan())

	r.Status = StatusCancelled
	assert.False(t, r.IsOrphan())
}

func TestCuratedGenotypeMissing(t *testing.T) {
	g := &CuratedGenotype{ProfileID: "p1", RsID: "rs1", Pos: 100}
	assert.NoError(t, g.Validate())
	assert.True(t, g.Missing())

	gt := "AG"
	g.Genotype = &gt
	assert.False(t, g.Missing())

	assert.Error(t, (&CuratedGenotype{RsID: "rs1", Pos: 1}).Validate())
	assert.Error(t, (&CuratedGenotype{ProfileID: "p1", RsID: "rs1"}).Validate())
}

func TestClinVarVariantEvidence(t *testing.T) {
	v := &ClinVarVariant{ReviewStatus: "reviewed by expert panel"}
	assert.False(t, v.HasHighEvidence()) // spaces, not the phrase token

	v.ReviewStatus = "reviewed_by_expert_panel"
	assert.True(t, v.HasHighEvidence())

	v.ReviewStatus = "criteria_provided,_single_submitter"
	assert.False(t, v.HasHighEvidence())
}
