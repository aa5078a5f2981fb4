package clinvar

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/variantlab/dnainsights/internal/progress"
)

// readVCF streams variant lines from a ClinVar VCF. Meta lines (##) are
// scanned for an explicit GRCh38/hg38 marker, which aborts before any row is
// yielded: a VCF is a single-assembly artifact, so the whole file is wrong.
func readVCF(r io.Reader, opts ReadOptions, emit func(final bool)) (int64, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	var count int64
	for scanner.Scan() {
		if err := progress.Check(opts.Token); err != nil {
			return count, err
		}
		emit(false)

		line := scanner.Text()
		if strings.HasPrefix(line, "##") {
			lower := strings.ToLower(line)
			if strings.Contains(lower, "grch38") || strings.Contains(lower, "hg38") {
				return count, fmt.Errorf("%w (header: %s)", ErrUnsupportedAssembly, strings.TrimPrefix(line, "##"))
			}
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 8 {
			continue
		}

		chrom, posRaw, rsid, ref, alt := parts[0], parts[1], parts[2], parts[3], parts[4]
		if !strings.HasPrefix(rsid, "rs") {
			continue
		}
		if !opts.wants(rsid) {
			continue
		}

		pos, err := strconv.ParseInt(posRaw, 10, 64)
		if err != nil {
			continue
		}

		info := parseInfo(parts[7])
		clnSig := info["CLNSIG"]
		review := info["CLNREVSTAT"]
		if !opts.AllRows && !HighConfidencePathogenic(clnSig, review) {
			continue
		}

		conditions := info["CLNDN"]
		if conditions == "" {
			conditions = info["CLNDISDB"]
		}

		v := Variant{
			RsID:                 rsid,
			Chrom:                chrom,
			Pos:                  pos,
			Ref:                  ref,
			Alt:                  alt,
			ClinicalSignificance: clnSig,
			ReviewStatus:         review,
			Conditions:           conditions,
			LastEvaluated:        info["CLNDATE"],
		}
		if err := opts.OnVariant(v); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, fmt.Errorf("read vcf: %w", err)
	}
	return count, nil
}

// parseInfo splits a semicolon-delimited INFO column into key=value pairs.
// Flag entries without '=' map to an empty value.
func parseInfo(info string) map[string]string {
	result := make(map[string]string)
	for _, item := range strings.Split(info, ";") {
		if item == "" {
			continue
		}
		key, value, found := strings.Cut(item, "=")
		if !found {
			result[item] = ""
			continue
		}
		result[key] = value
	}
	return result
}
