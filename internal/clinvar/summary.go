package clinvar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/variantlab/dnainsights/internal/progress"
)

// summarySchema is the column-name-to-index resolution for one
// variant_summary file, computed once from the header and consumed by the
// row loop.
type summarySchema struct {
	rsID          int
	chrom         int
	start         int
	ref           int
	alt           int
	clinicalSig   int
	reviewStatus  int
	phenotypeList int
	lastEvaluated int
	assembly      int

	// maxIndex bounds row splitting so very wide files are not fully split.
	maxIndex int
}

// resolveSummarySchema locates required and optional columns by name,
// tolerating naming variants. Missing required columns are a hard error.
func resolveSummarySchema(header string) (*summarySchema, error) {
	index := make(map[string]int)
	for i, col := range strings.Split(strings.TrimPrefix(header, "#"), "\t") {
		index[strings.TrimSpace(col)] = i
	}

	find := func(names ...string) int {
		for _, name := range names {
			if i, ok := index[name]; ok {
				return i
			}
		}
		return -1
	}

	s := &summarySchema{
		rsID:          find("RS# (dbSNP)", "RS#"),
		chrom:         find("Chromosome"),
		start:         find("Start", "PositionVCF"),
		ref:           find("ReferenceAlleleVCF", "ReferenceAllele"),
		alt:           find("AlternateAlleleVCF", "AlternateAllele"),
		clinicalSig:   find("ClinicalSignificance"),
		reviewStatus:  find("ReviewStatus"),
		phenotypeList: find("PhenotypeList", "Conditions"),
		lastEvaluated: find("LastEvaluated"),
		assembly:      find("Assembly"),
	}

	missing := func(name string) error {
		return fmt.Errorf("%w: variant_summary header lacks column %q", ErrUnknownFormat, name)
	}
	switch {
	case s.rsID < 0:
		return nil, missing("RS# (dbSNP)")
	case s.clinicalSig < 0:
		return nil, missing("ClinicalSignificance")
	case s.reviewStatus < 0:
		return nil, missing("ReviewStatus")
	case s.chrom < 0:
		return nil, missing("Chromosome")
	case s.start < 0:
		return nil, missing("Start")
	}

	for _, idx := range []int{
		s.rsID, s.chrom, s.start, s.ref, s.alt,
		s.clinicalSig, s.reviewStatus, s.phenotypeList, s.lastEvaluated, s.assembly,
	} {
		if idx > s.maxIndex {
			s.maxIndex = idx
		}
	}
	return s, nil
}

// field returns the idx'th column of a pre-split row, or "" when the column
// is absent from the schema or the row is short.
func field(parts []string, idx int) string {
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

// normalizeRsID accepts bare numeric and dbSNP-prefixed values. Empty and
// "-1" placeholders yield "".
func normalizeRsID(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" || value == "-1" {
		return ""
	}
	if strings.HasPrefix(value, "rs") {
		return value
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return "rs" + value
	}
	return ""
}

// readVariantSummary streams data rows from a tab-delimited variant_summary
// export. Rows are kept only for assembly empty or GRCh37: the file carries
// one row per assembly per variant, so non-GRCh37 rows are filtered rather
// than fatal (unlike the single-assembly VCF path).
func readVariantSummary(r io.Reader, opts ReadOptions, emit func(final bool)) (int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return 0, fmt.Errorf("read variant_summary header: %w", err)
		}
		return 0, fmt.Errorf("%w: empty variant_summary file", ErrUnknownFormat)
	}
	schema, err := resolveSummarySchema(scanner.Text())
	if err != nil {
		return 0, err
	}

	var count int64
	for scanner.Scan() {
		if err := progress.Check(opts.Token); err != nil {
			return count, err
		}
		emit(false)

		// Split only up to the columns the schema needs; wide rows keep
		// their tail in the final element, which is never read.
		parts := strings.SplitN(scanner.Text(), "\t", schema.maxIndex+2)

		assembly := field(parts, schema.assembly)
		if assembly != "" && !strings.HasPrefix(assembly, "GRCh37") {
			continue
		}

		rsid := normalizeRsID(field(parts, schema.rsID))
		if rsid == "" {
			continue
		}
		if !opts.wants(rsid) {
			continue
		}

		clnSig := field(parts, schema.clinicalSig)
		review := field(parts, schema.reviewStatus)
		if !opts.AllRows && !HighConfidencePathogenic(clnSig, review) {
			continue
		}

		pos, err := strconv.ParseInt(field(parts, schema.start), 10, 64)
		if err != nil {
			continue
		}

		v := Variant{
			RsID:                 rsid,
			Chrom:                field(parts, schema.chrom),
			Pos:                  pos,
			Ref:                  field(parts, schema.ref),
			Alt:                  field(parts, schema.alt),
			ClinicalSignificance: clnSig,
			ReviewStatus:         review,
			Conditions:           field(parts, schema.phenotypeList),
			LastEvaluated:        field(parts, schema.lastEvaluated),
		}
		if err := opts.OnVariant(v); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read variant_summary: %w", err)
	}
	return count, nil
}
