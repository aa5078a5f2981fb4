// Package clinvar streams ClinVar reference exports (VCF or tab-delimited
// variant_summary) and maintains the prebuilt local cache store.
package clinvar

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a supported ClinVar export layout.
type Format string

const (
	FormatVCF            Format = "vcf"
	FormatVariantSummary Format = "variant_summary"
)

var (
	// ErrUnknownFormat means the file claims a plausible name but satisfies
	// neither layout. A hard error, not a silent skip.
	ErrUnknownFormat = errors.New("unrecognized ClinVar file format")
	// ErrUnsupportedAssembly is raised for GRCh38/hg38 VCF inputs before any
	// row is yielded. Only GRCh37 sources are supported.
	ErrUnsupportedAssembly = errors.New("GRCh38 assembly is not supported; provide a GRCh37 file")
)

// Column names that identify a variant_summary header.
var summaryRequiredColumns = [][]string{
	{"RS# (dbSNP)", "RS#"},
	{"ClinicalSignificance"},
	{"ReviewStatus"},
}

// DetectFormat decides VCF vs. variant_summary, by filename heuristics
// first, then by sniffing the header row of ambiguous .txt/.txt.gz names.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.Contains(name, ".vcf") {
		return FormatVCF, nil
	}
	if strings.Contains(name, "variant_summary") {
		return FormatVariantSummary, nil
	}
	if !strings.HasSuffix(name, ".txt") && !strings.HasSuffix(name, ".txt.gz") {
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(path))
	}
	return sniffFormat(path)
}

func sniffFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r, err := maybeGzip(f, path)
	if err != nil {
		return "", err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "##fileformat=VCF") {
			return FormatVCF, nil
		}
		if headerHasSummaryColumns(line) {
			return FormatVariantSummary, nil
		}
		return "", fmt.Errorf("%w: %s (header row missing required columns)", ErrUnknownFormat, filepath.Base(path))
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("%w: %s (empty file)", ErrUnknownFormat, filepath.Base(path))
}

func headerHasSummaryColumns(header string) bool {
	cols := make(map[string]struct{})
	for _, col := range strings.Split(strings.TrimPrefix(header, "#"), "\t") {
		cols[strings.TrimSpace(col)] = struct{}{}
	}
	for _, alternatives := range summaryRequiredColumns {
		found := false
		for _, name := range alternatives {
			if _, ok := cols[name]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// maybeGzip wraps r in a gzip reader when path names a .gz file.
func maybeGzip(r io.Reader, path string) (io.Reader, error) {
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", filepath.Base(path), err)
		}
		return zr, nil
	}
	return r, nil
}
