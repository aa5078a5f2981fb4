// Package genotype streams AncestryDNA-style raw SNP-chip exports into
// normalized records plus running QC statistics.
package genotype

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/variantlab/dnainsights/internal/progress"
)

// ParserVersion is recorded in import provenance so stored genotypes can be
// traced to the row grammar that produced them.
const ParserVersion = "1.0"

// Zip container errors, raised before any row is read.
var (
	ErrNoTextMember  = errors.New("zip file does not contain a .txt raw data export")
	ErrAmbiguousZip  = errors.New("zip file contains multiple .txt files; choose one")
	ErrUnknownMember = errors.New("zip member not found")
)

const (
	rowProgressInterval  = 10000
	byteProgressInterval = 256 * 1024
	headerScanLines      = 20
)

// Record is one normalized marker. Genotype is nil for a no-read call.
type Record struct {
	RsID     string
	Chrom    string
	Pos      int64
	Genotype *string
}

// Stats aggregates QC counters over one parse pass.
type Stats struct {
	TotalMarkers  int64
	MissingCalls  int64
	Duplicates    int64
	MalformedRows int64
	Warnings      []string
	XCalls        int64
	YCalls        int64
}

// CallRate is (total - missing) / total, or 0 for an empty file.
func (s *Stats) CallRate() float64 {
	if s.TotalMarkers == 0 {
		return 0.0
	}
	return float64(s.TotalMarkers-s.MissingCalls) / float64(s.TotalMarkers)
}

// SexCheck is a heuristic consistency string derived from X/Y call presence.
func (s *Stats) SexCheck() string {
	if s.YCalls > 0 {
		return "Y markers present (XY pattern likely)"
	}
	if s.XCalls > 0 && s.YCalls == 0 {
		return "No Y markers detected (XX pattern likely)"
	}
	return "Insufficient X/Y data for a consistency check"
}

// Options configures one parse pass. OnRecord is required; returning an
// error from it aborts the parse. OnProgress and OnBytes are optional
// milestone callbacks; Token is polled once per row.
type Options struct {
	OnRecord   func(Record) error
	OnProgress func(rows int64)
	OnBytes    func(bytes int64)
	Token      progress.Token
}

// ListZipTextMembers returns the .txt member names of a zip archive.
func ListZipTextMembers(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", filepath.Base(path), err)
	}
	defer zr.Close()

	var members []string
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			members = append(members, f.Name)
		}
	}
	return members, nil
}

// fileHandle couples a text stream with its container so closing the stream
// also closes the archive.
type fileHandle struct {
	io.Reader
	closers []io.Closer
}

func (h *fileHandle) Close() error {
	var err error
	for _, c := range h.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Open resolves the readable text stream for a raw upload. For zip archives
// the sole .txt member is auto-selected; multiple members require an
// explicit choice, and the ambiguity is a configuration error raised before
// any row is read.
func Open(path, member string) (io.ReadCloser, error) {
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open zip %s: %w", filepath.Base(path), err)
	}

	var txtMembers []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			txtMembers = append(txtMembers, f)
		}
	}
	if len(txtMembers) == 0 {
		zr.Close()
		return nil, ErrNoTextMember
	}

	var chosen *zip.File
	if member == "" {
		if len(txtMembers) > 1 {
			zr.Close()
			return nil, ErrAmbiguousZip
		}
		chosen = txtMembers[0]
	} else {
		for _, f := range txtMembers {
			if f.Name == member {
				chosen = f
				break
			}
		}
		if chosen == nil {
			zr.Close()
			return nil, fmt.Errorf("%w: %s", ErrUnknownMember, member)
		}
	}

	rc, err := chosen.Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("open zip member %s: %w", chosen.Name, err)
	}
	return &fileHandle{Reader: rc, closers: []io.Closer{rc, zr}}, nil
}

// TotalBytes reports the decoded size of the text stream Open would return,
// or 0 when it cannot be determined without parsing.
func TotalBytes(path, member string) int64 {
	if strings.ToLower(filepath.Ext(path)) != ".zip" {
		info, err := os.Stat(path)
		if err != nil {
			return 0
		}
		return info.Size()
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return 0
	}
	defer zr.Close()

	var txtMembers []*zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".txt") {
			txtMembers = append(txtMembers, f)
		}
	}
	if len(txtMembers) == 0 {
		return 0
	}
	if member == "" {
		if len(txtMembers) > 1 {
			return 0
		}
		return int64(txtMembers[0].UncompressedSize64)
	}
	for _, f := range txtMembers {
		if f.Name == member {
			return int64(f.UncompressedSize64)
		}
	}
	return 0
}

// Parse streams whitespace-delimited `rsid chrom pos allele1 allele2` rows
// from r, invoking opts.OnRecord for each in file order. Malformed rows are
// tallied and skipped, never fatal. Returns progress.ErrCancelled when the
// token fires mid-stream.
func Parse(r io.Reader, opts Options) (*Stats, error) {
	if opts.OnRecord == nil {
		return nil, errors.New("genotype: OnRecord callback is required")
	}

	stats := &Stats{}
	seen := make(map[string]struct{})
	headerHasAncestry := false

	var bytesRead int64
	byteGate := progress.NewByteThreshold(byteProgressInterval)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if err := progress.Check(opts.Token); err != nil {
			return stats, err
		}

		if opts.OnBytes != nil {
			bytesRead += int64(len(line)) + 1
			if byteGate.Ready(bytesRead) {
				opts.OnBytes(bytesRead)
			}
		}

		if strings.HasPrefix(line, "#") {
			if lineNumber <= headerScanLines && strings.Contains(strings.ToLower(line), "ancestry") {
				headerHasAncestry = true
			}
			continue
		}

		// Blank lines are short rows too; they count against MalformedRows.
		parts := strings.Fields(line)
		if len(parts) < 5 {
			stats.MalformedRows++
			continue
		}

		rsid, chromRaw, posRaw := parts[0], parts[1], parts[2]
		allele1 := strings.ToUpper(strings.TrimSpace(parts[3]))
		allele2 := strings.ToUpper(strings.TrimSpace(parts[4]))

		pos, err := strconv.ParseInt(posRaw, 10, 64)
		if err != nil {
			stats.MalformedRows++
			continue
		}

		chrom := NormalizeChrom(chromRaw)

		var gt *string
		if !missingAllele(allele1) && !missingAllele(allele2) {
			pair := allele1 + allele2
			gt = CanonicalGenotype(&pair)
		}

		if _, dup := seen[rsid]; dup {
			stats.Duplicates++
		} else {
			seen[rsid] = struct{}{}
		}

		stats.TotalMarkers++
		if gt == nil {
			stats.MissingCalls++
		} else {
			switch chrom {
			case "X":
				stats.XCalls++
			case "Y":
				stats.YCalls++
			}
		}

		if err := opts.OnRecord(Record{RsID: rsid, Chrom: chrom, Pos: pos, Genotype: gt}); err != nil {
			return stats, err
		}

		if opts.OnProgress != nil && stats.TotalMarkers%rowProgressInterval == 0 {
			opts.OnProgress(stats.TotalMarkers)
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read raw data: %w", err)
	}

	if opts.OnProgress != nil {
		opts.OnProgress(stats.TotalMarkers)
	}
	if opts.OnBytes != nil {
		opts.OnBytes(bytesRead)
	}

	if !headerHasAncestry {
		stats.Warnings = append(stats.Warnings, "Header does not mention AncestryDNA; verify file source.")
	}
	return stats, nil
}

// ParseFile opens path (resolving zip containers) and parses it.
func ParseFile(path, member string, opts Options) (*Stats, error) {
	handle, err := Open(path, member)
	if err != nil {
		return nil, err
	}
	defer handle.Close()
	return Parse(handle, opts)
}
