package clinvar

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variantlab/dnainsights/internal/progress"
)

const sampleVCF = `##fileformat=VCFv4.1
##reference=GRCh37
#CHROM	POS	ID	REF	ALT	QUAL	FILTER	INFO
1	100	rs123	A	G	.	.	CLNSIG=Pathogenic;CLNREVSTAT=reviewed_by_expert_panel;CLNDN=Condition_A;CLNDATE=2023-01-01
2	200	rs456	C	T	.	.	CLNSIG=Likely_pathogenic;CLNREVSTAT=practice_guideline;CLNDN=Condition_B
3	300	rs789	G	A	.	.	CLNSIG=Pathogenic;CLNREVSTAT=reviewed_by_expert_panel;CLNDISDB=MedGen:C123
4	400	rs111	T	C	.	.	CLNSIG=Benign;CLNREVSTAT=reviewed_by_expert_panel
5	500	rs222	A	C	.	.	CLNSIG=Pathogenic;CLNREVSTAT=criteria_provided,_single_submitter
6	600	rs333	G	T	.	.	CLNSIG=Pathogenic|Conflicting_interpretations_of_pathogenicity;CLNREVSTAT=reviewed_by_expert_panel
7	700	.	A	G	.	.	CLNSIG=Pathogenic;CLNREVSTAT=reviewed_by_expert_panel
`

const sampleSummary = "#AlleleID\tType\tName\tClinicalSignificance\tLastEvaluated\tRS# (dbSNP)\tPhenotypeList\tAssembly\tChromosome\tStart\tReferenceAlleleVCF\tAlternateAlleleVCF\tReviewStatus\n" +
	"100\tSNV\tv1\tPathogenic\t2023-01-01\t123\tCondition A\tGRCh37\t1\t100\tA\tG\treviewed by expert panel\n" +
	"100\tSNV\tv1\tPathogenic\t2023-01-01\t123\tCondition A\tGRCh38\t1\t105\tA\tG\treviewed by expert panel\n" +
	"101\tSNV\tv2\tLikely pathogenic\t2022-05-05\t456\tCondition B\t\t2\t200\tC\tT\tpractice guideline\n" +
	"102\tSNV\tv3\tPathogenic\t2021-02-02\t789\tCondition C\tGRCh37\t3\t300\tG\tA\treviewed by expert panel\n" +
	"103\tSNV\tv4\tPathogenic\t2021-02-02\t-1\tCondition D\tGRCh37\t4\t400\tT\tC\treviewed by expert panel\n" +
	"104\tSNV\tv5\tBenign\t2021-03-03\t999\tCondition E\tGRCh37\t5\t500\tA\tG\treviewed by expert panel\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if strings.HasSuffix(name, ".gz") {
		f, err := os.Create(path)
		require.NoError(t, err)
		zw := gzip.NewWriter(f)
		_, err = zw.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		require.NoError(t, f.Close())
		return path
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readAll(t *testing.T, path string, opts ReadOptions) []Variant {
	t.Helper()
	var out []Variant
	opts.OnVariant = func(v Variant) error {
		out = append(out, v)
		return nil
	}
	_, err := ReadVariants(path, opts)
	require.NoError(t, err)
	return out
}

func rsids(vs []Variant) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.RsID
	}
	return out
}

func TestReadVCFPathogenicFilter(t *testing.T) {
	path := writeFile(t, "clinvar.vcf", sampleVCF)
	got := readAll(t, path, ReadOptions{})

	// rs111 benign, rs222 low-confidence, rs333 conflicting veto, "." no rsid.
	assert.Equal(t, []string{"rs123", "rs456", "rs789"}, rsids(got))

	assert.Equal(t, "Condition_A", got[0].Conditions)
	assert.Equal(t, "2023-01-01", got[0].LastEvaluated)
	assert.Equal(t, int64(100), got[0].Pos)
	// CLNDISDB fallback when CLNDN is absent.
	assert.Equal(t, "MedGen:C123", got[2].Conditions)
}

func TestReadVCFGzip(t *testing.T) {
	path := writeFile(t, "clinvar.vcf.gz", sampleVCF)
	got := readAll(t, path, ReadOptions{})
	assert.Len(t, got, 3)
}

func TestReadVCFAllRows(t *testing.T) {
	path := writeFile(t, "clinvar.vcf", sampleVCF)
	got := readAll(t, path, ReadOptions{AllRows: true})
	// Everything with an rsID, pathogenic or not.
	assert.Len(t, got, 6)
}

func TestReadVCFRsIDFilter(t *testing.T) {
	path := writeFile(t, "clinvar.vcf", sampleVCF)
	got := readAll(t, path, ReadOptions{
		RsIDFilter: map[string]struct{}{"rs456": {}},
	})
	assert.Equal(t, []string{"rs456"}, rsids(got))
}

func TestReadVCFRejectsGRCh38(t *testing.T) {
	content := strings.Replace(sampleVCF, "##reference=GRCh37", "##reference=GRCh38", 1)
	path := writeFile(t, "clinvar.vcf", content)

	var yielded int
	_, err := ReadVariants(path, ReadOptions{
		OnVariant: func(Variant) error {
			yielded++
			return nil
		},
	})
	require.ErrorIs(t, err, ErrUnsupportedAssembly)
	assert.Zero(t, yielded)
}

func TestReadVariantSummary(t *testing.T) {
	path := writeFile(t, "variant_summary.txt", sampleSummary)
	got := readAll(t, path, ReadOptions{})

	// GRCh38 row filtered (not fatal), -1 rsID skipped, benign filtered.
	assert.Equal(t, []string{"rs123", "rs456", "rs789"}, rsids(got))
	assert.Equal(t, int64(100), got[0].Pos)
	assert.Equal(t, "Condition A", got[0].Conditions)
	// Empty assembly rows are retained.
	assert.Equal(t, "rs456", got[1].RsID)
}

func TestReadVariantSummaryGzipAllRows(t *testing.T) {
	path := writeFile(t, "variant_summary.txt.gz", sampleSummary)
	got := readAll(t, path, ReadOptions{AllRows: true})
	assert.Equal(t, []string{"rs123", "rs456", "rs789", "rs999"}, rsids(got))
}

func TestReadCancellation(t *testing.T) {
	path := writeFile(t, "clinvar.vcf", sampleVCF)
	var flag progress.Flag
	flag.Cancel()

	_, err := ReadVariants(path, ReadOptions{
		Token:     &flag,
		OnVariant: func(Variant) error { return nil },
	})
	require.ErrorIs(t, err, progress.ErrCancelled)
}

func TestDetectFormat(t *testing.T) {
	vcf := writeFile(t, "clinvar_20240101.vcf.gz", sampleVCF)
	summaryNamed := writeFile(t, "variant_summary.txt.gz", sampleSummary)
	summarySniffed := writeFile(t, "export.txt", sampleSummary)
	vcfSniffed := writeFile(t, "snapshot.txt", sampleVCF)

	for path, want := range map[string]Format{
		vcf:            FormatVCF,
		summaryNamed:   FormatVariantSummary,
		summarySniffed: FormatVariantSummary,
		vcfSniffed:     FormatVCF,
	} {
		got, err := DetectFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}
}

func TestDetectFormatSniffFailureIsHard(t *testing.T) {
	bogus := writeFile(t, "notes.txt", "rsid\tsomething\nrs1\tx\n")
	_, err := DetectFormat(bogus)
	require.ErrorIs(t, err, ErrUnknownFormat)

	unknownExt := writeFile(t, "data.csv", sampleSummary)
	_, err = DetectFormat(unknownExt)
	require.ErrorIs(t, err, ErrUnknownFormat)
}

func TestSummaryMissingColumnIsHard(t *testing.T) {
	// Plausible name, header lacking ReviewStatus.
	content := "#AlleleID\tClinicalSignificance\tRS# (dbSNP)\n1\tPathogenic\t123\n"
	path := writeFile(t, "variant_summary.txt", content)

	_, err := ReadVariants(path, ReadOptions{OnVariant: func(Variant) error { return nil }})
	require.ErrorIs(t, err, ErrUnknownFormat)
}
