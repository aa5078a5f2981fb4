package insights

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/variantlab/dnainsights/internal/genotype"
	"github.com/variantlab/dnainsights/internal/models"
)

// SensitiveCategories require explicit per-category opt-in before their
// modules are evaluated at all.
var SensitiveCategories = map[string]struct{}{
	"clinical": {},
	"pgx":      {},
}

// Result is the evaluated output of one module, including the exact genotype
// snapshot the rules saw.
type Result struct {
	ModuleID      string             `json:"module_id"`
	Category      string             `json:"category"`
	DisplayName   string             `json:"display_name"`
	Summary       string             `json:"summary"`
	Suggestion    *string            `json:"suggestion"`
	EvidenceLevel EvidenceLevel      `json:"evidence_level"`
	Limitations   string             `json:"limitations"`
	References    []string           `json:"references"`
	Genotypes     map[string]*string `json:"genotypes"`
	RuleMatched   *string            `json:"rule_matched"`
	QC            *QCReport          `json:"qc,omitempty"`
}

// JSON serializes the result for storage.
func (r *Result) JSON() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode insight %s: %w", r.ModuleID, err)
	}
	return string(data), nil
}

// Encode maps results by module ID to their JSON encodings, ready for the
// store layer.
func Encode(results []*Result) (map[string]string, error) {
	out := make(map[string]string, len(results))
	for _, result := range results {
		encoded, err := result.JSON()
		if err != nil {
			return nil, err
		}
		out[result.ModuleID] = encoded
	}
	return out, nil
}

func matchRule(module *KnowledgeModule, genotypes map[string]*string) (string, *string) {
	for _, rule := range module.Rules {
		gt := genotypes[rule.RsID]
		if gt == nil {
			continue
		}
		canonical := genotype.CanonicalGenotype(gt)
		if canonical == nil {
			continue
		}
		for _, candidate := range rule.Genotypes {
			if *canonical == candidate {
				rsid := rule.RsID
				return rule.Summary, &rsid
			}
		}
	}
	return module.DefaultSummary, nil
}

// EvaluateModules runs every opted-in module against the profile's curated
// genotypes. Sensitive-category modules are skipped entirely without opt-in;
// a missing genotype falls through to the next rule and ultimately the
// module's default summary.
func EvaluateModules(genotypes map[string]*models.CuratedGenotype, modules []*KnowledgeModule, optIn map[string]bool) []*Result {
	results := make([]*Result, 0, len(modules))
	for _, module := range modules {
		if _, sensitive := SensitiveCategories[module.Category]; sensitive && !optIn[module.Category] {
			continue
		}

		snapshot := make(map[string]*string, len(module.RsIDs))
		for _, rsid := range module.RsIDs {
			if row, ok := genotypes[rsid]; ok {
				snapshot[rsid] = row.Genotype
			} else {
				snapshot[rsid] = nil
			}
		}

		summary, matched := matchRule(module, snapshot)
		results = append(results, &Result{
			ModuleID:      module.ModuleID,
			Category:      module.Category,
			DisplayName:   module.DisplayName,
			Summary:       summary,
			Suggestion:    module.Suggestion,
			EvidenceLevel: module.EvidenceLevel,
			Limitations:   module.Limitations,
			References:    module.References,
			Genotypes:     snapshot,
			RuleMatched:   matched,
		})
	}
	return results
}

// QCReport is the parse-time quality summary attached to the QC result.
type QCReport struct {
	TotalMarkers  int64    `json:"total_markers"`
	MissingCalls  int64    `json:"missing_calls"`
	CallRate      float64  `json:"call_rate"`
	Duplicates    int64    `json:"duplicates"`
	MalformedRows int64    `json:"malformed_rows"`
	SexCheck      string   `json:"sex_check"`
	Warnings      []string `json:"warnings"`
}

// NewQCReport snapshots parser stats into a storable report.
func NewQCReport(stats *genotype.Stats) *QCReport {
	warnings := stats.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &QCReport{
		TotalMarkers:  stats.TotalMarkers,
		MissingCalls:  stats.MissingCalls,
		CallRate:      stats.CallRate(),
		Duplicates:    stats.Duplicates,
		MalformedRows: stats.MalformedRows,
		SexCheck:      stats.SexCheck(),
		Warnings:      warnings,
	}
}

// BuildQCResult wraps the QC report as a pseudo-module so it renders beside
// the rule modules.
func BuildQCResult(qc *QCReport) *Result {
	summary := fmt.Sprintf(
		"Call rate %.2f%% across %d markers. Duplicates %d, malformed rows %d. Sex check: %s.",
		qc.CallRate*100, qc.TotalMarkers, qc.Duplicates, qc.MalformedRows, qc.SexCheck,
	)
	return &Result{
		ModuleID:    "qc_summary",
		Category:    "qc",
		DisplayName: "Quality checks",
		Summary:     summary,
		EvidenceLevel: EvidenceLevel{
			Grade:   "A",
			Summary: "Derived directly from file parsing.",
		},
		Limitations: "QC is a data consistency check, not an identity or medical assessment.",
		References:  []string{},
		Genotypes:   map[string]*string{},
		QC:          qc,
	}
}

// BuildClinVarSummary wraps reference match counts as a pseudo-module in the
// opt-in clinical category.
func BuildClinVarSummary(matchCount int64, sample []*models.ClinVarMatch, latest *models.ClinVarImport) *Result {
	sampleText := "None"
	if len(sample) > 0 {
		rsids := make([]string, 0, len(sample))
		for _, match := range sample {
			rsids = append(rsids, match.RsID)
		}
		sampleText = strings.Join(rsids, ", ")
	}
	importNote := ""
	if latest != nil {
		importNote = fmt.Sprintf(" ClinVar snapshot imported %s.", latest.ImportedAt.Format(time.RFC3339))
	}
	summary := fmt.Sprintf(
		"Found %d rsIDs in your data that appear in the ClinVar snapshot. Example matches: %s.%s",
		matchCount, sampleText, importNote,
	)
	suggestion := "Do not change medical care based on this app. Discuss any concerns with a clinician."
	return &Result{
		ModuleID:    "clinical_summary",
		Category:    "clinical",
		DisplayName: "Clinical references (ClinVar, opt-in)",
		Summary:     summary,
		Suggestion:  &suggestion,
		EvidenceLevel: EvidenceLevel{
			Grade:   "A",
			Summary: "ClinVar listing reference only.",
		},
		Limitations: "SNP chip results can be wrong and do not confirm clinical significance. " +
			"Only high-confidence ClinVar entries are shown, and clinical confirmation is required.",
		References: []string{"ClinVar (NCBI) snapshot"},
		Genotypes:  map[string]*string{},
	}
}
