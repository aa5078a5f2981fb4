package insights

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variantlab/dnainsights/internal/models"
)

func strp(s string) *string { return &s }

func writeKB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifest := `{
  "kb_version": "2026.1",
  "build": "GRCh37",
  "strand": "plus",
  "module_files": ["caffeine.json", "warfarin.json"]
}`
	caffeine := `{
  "module_id": "caffeine_metabolism",
  "category": "traits",
  "display_name": "Caffeine metabolism",
  "rsids": ["rs762551"],
  "rules": [
    {"rsid": "rs762551", "genotypes": ["AA"], "summary": "Fast metabolizer pattern."},
    {"rsid": "rs762551", "genotypes": ["AC", "CC"], "summary": "Slower metabolizer pattern."}
  ],
  "default_summary": "No genotype available for this module.",
  "evidence_level": {"grade": "B", "summary": "Replicated association studies."},
  "limitations": "Lifestyle factors dominate.",
  "references": ["PMID:16522833"]
}`
	warfarin := `{
  "module_id": "warfarin_sensitivity",
  "category": "pgx",
  "display_name": "Warfarin sensitivity",
  "rsids": ["rs9923231"],
  "rules": [
    {"rsid": "rs9923231", "genotypes": ["TT"], "summary": "Increased sensitivity pattern."}
  ],
  "default_summary": "No genotype available for this module.",
  "suggestion": "Discuss dosing with a clinician before any change.",
  "evidence_level": {"grade": "A", "summary": "Clinical guideline annotated."},
  "limitations": "Dosing depends on many non-genetic factors.",
  "references": ["PMID:19300499"]
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kb_manifest.json"), []byte(manifest), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modules", "caffeine.json"), []byte(caffeine), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "modules", "warfarin.json"), []byte(warfarin), 0o644))
	return dir
}

func TestLoadKnowledgeBase(t *testing.T) {
	dir := writeKB(t)

	manifest, modules, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "2026.1", manifest.KBVersion)
	assert.Equal(t, "GRCh37", manifest.Build)
	require.Len(t, modules, 2)
	assert.Equal(t, "caffeine_metabolism", modules[0].ModuleID)
	assert.Equal(t, "warfarin_sensitivity", modules[1].ModuleID)

	rsids := CuratedRsIDs(modules)
	assert.Len(t, rsids, 2)
	assert.Contains(t, rsids, "rs762551")
	assert.Contains(t, rsids, "rs9923231")
}

func TestLoadManifestMissingVersion(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kb_manifest.json"), []byte(`{"build":"GRCh37"}`), 0o644))

	_, err := LoadManifest(dir)
	assert.ErrorContains(t, err, "kb_version")
}

func TestLoadModulesMissingFile(t *testing.T) {
	dir := writeKB(t)
	manifest, err := LoadManifest(dir)
	require.NoError(t, err)
	manifest.ModuleFiles = append(manifest.ModuleFiles, "missing.json")

	_, err = LoadModules(dir, manifest)
	assert.ErrorContains(t, err, "missing.json")
}

func TestEvaluateModulesFirstMatchWins(t *testing.T) {
	dir := writeKB(t)
	_, modules, err := Load(dir)
	require.NoError(t, err)

	genotypes := map[string]*models.CuratedGenotype{
		"rs762551": {RsID: "rs762551", Genotype: strp("CA")},
	}

	results := EvaluateModules(genotypes, modules, map[string]bool{"pgx": true})
	require.Len(t, results, 2)

	// "CA" canonicalizes to "AC" and matches the second rule.
	caffeine := results[0]
	assert.Equal(t, "Slower metabolizer pattern.", caffeine.Summary)
	require.NotNil(t, caffeine.RuleMatched)
	assert.Equal(t, "rs762551", *caffeine.RuleMatched)

	// No genotype for the pgx module: default summary, no matched rule.
	warfarin := results[1]
	assert.Equal(t, "No genotype available for this module.", warfarin.Summary)
	assert.Nil(t, warfarin.RuleMatched)
	require.Contains(t, warfarin.Genotypes, "rs9923231")
	assert.Nil(t, warfarin.Genotypes["rs9923231"])
}

func TestEvaluateModulesSensitiveGating(t *testing.T) {
	dir := writeKB(t)
	_, modules, err := Load(dir)
	require.NoError(t, err)

	results := EvaluateModules(nil, modules, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "caffeine_metabolism", results[0].ModuleID)

	results = EvaluateModules(nil, modules, map[string]bool{"pgx": true, "clinical": true})
	assert.Len(t, results, 2)
}

func TestEvaluateModulesMissingSentinelIsNoMatch(t *testing.T) {
	dir := writeKB(t)
	_, modules, err := Load(dir)
	require.NoError(t, err)

	genotypes := map[string]*models.CuratedGenotype{
		"rs762551": {RsID: "rs762551", Genotype: nil},
	}
	results := EvaluateModules(genotypes, modules, nil)
	require.Len(t, results, 1)
	assert.Equal(t, "No genotype available for this module.", results[0].Summary)
}

func TestBuildQCResult(t *testing.T) {
	qc := &QCReport{
		TotalMarkers:  1000,
		MissingCalls:  5,
		CallRate:      0.995,
		Duplicates:    1,
		MalformedRows: 2,
		SexCheck:      "No X/Y calls observed",
		Warnings:      []string{},
	}
	result := BuildQCResult(qc)
	assert.Equal(t, "qc_summary", result.ModuleID)
	assert.Equal(t, "qc", result.Category)
	assert.Equal(t, "Call rate 99.50% across 1000 markers. Duplicates 1, malformed rows 2. Sex check: No X/Y calls observed.", result.Summary)
	require.NotNil(t, result.QC)
	assert.Equal(t, int64(1000), result.QC.TotalMarkers)
}

func TestBuildClinVarSummary(t *testing.T) {
	result := BuildClinVarSummary(0, nil, nil)
	assert.Equal(t, "clinical_summary", result.ModuleID)
	assert.Equal(t, "clinical", result.Category)
	assert.Contains(t, result.Summary, "Found 0 rsIDs")
	assert.Contains(t, result.Summary, "Example matches: None.")

	sample := []*models.ClinVarMatch{{RsID: "rs10"}, {RsID: "rs11"}}
	result = BuildClinVarSummary(2, sample, nil)
	assert.Contains(t, result.Summary, "Found 2 rsIDs")
	assert.Contains(t, result.Summary, "rs10, rs11")
}

func TestEncodeRoundTrips(t *testing.T) {
	dir := writeKB(t)
	_, modules, err := Load(dir)
	require.NoError(t, err)

	results := EvaluateModules(map[string]*models.CuratedGenotype{
		"rs762551": {RsID: "rs762551", Genotype: strp("AA")},
	}, modules, nil)
	require.Len(t, results, 1)

	encoded, err := Encode(results)
	require.NoError(t, err)
	require.Contains(t, encoded, "caffeine_metabolism")

	var decoded Result
	require.NoError(t, json.Unmarshal([]byte(encoded["caffeine_metabolism"]), &decoded))
	assert.Equal(t, "Fast metabolizer pattern.", decoded.Summary)
	require.Contains(t, decoded.Genotypes, "rs762551")
	require.NotNil(t, decoded.Genotypes["rs762551"])
	assert.Equal(t, "AA", *decoded.Genotypes["rs762551"])
}
