package models

// ImportStatus is the lifecycle state of a genotype import attempt. Every
// created import row reaches exactly one terminal status; a row stuck in
// StatusRunning is a crash orphan.
type ImportStatus string

const (
	StatusRunning   ImportStatus = "running"
	StatusOK        ImportStatus = "ok"
	StatusFailed    ImportStatus = "failed"
	StatusCancelled ImportStatus = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s ImportStatus) Terminal() bool {
	return s == StatusOK || s == StatusFailed || s == StatusCancelled
}

// ImportMode selects which genotype tables an import populates.
type ImportMode string

const (
	// ModeCurated stores only rsIDs referenced by knowledge-module rules.
	ModeCurated ImportMode = "curated"
	// ModeFull additionally stores every rsID in the source file.
	ModeFull ImportMode = "full"
)

// Valid reports whether the mode is one of the two supported values.
func (m ImportMode) Valid() bool {
	return m == ModeCurated || m == ModeFull
}

// ReviewStatus phrases per ClinVar.
type ReviewStatus string

const (
	ReviewPracticeGuideline ReviewStatus = "practice_guideline"
	ReviewExpertPanel       ReviewStatus = "reviewed_by_expert_panel"
	ReviewMultipleSubmitter ReviewStatus = "multiple_submitters"
	ReviewSingleSubmitter   ReviewStatus = "single_submitter"
	ReviewNoAssertion       ReviewStatus = "no_assertion"
)

// Confidence buckets a ClinVar entry for display. Distinct from the
// import-time pathogenic filter: a Low-confidence entry can still pass the
// filter's review-status conjunction and vice versa.
type Confidence string

const (
	ConfidenceHigh     Confidence = "High"
	ConfidenceModerate Confidence = "Moderate"
	ConfidenceLow      Confidence = "Low"
	ConfidenceUnknown  Confidence = "Unknown"
)

// SkipReason explains a structured nothing-to-do result from a ClinVar sync.
type SkipReason string

const (
	SkipAlreadyImported SkipReason = "already_imported"
	SkipNoRsIDs         SkipReason = "no_rsids"
	SkipAlreadyChecked  SkipReason = "already_checked"
)
