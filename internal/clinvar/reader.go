package clinvar

import (
	"fmt"
	"os"

	"github.com/variantlab/dnainsights/internal/fileutil"
	"github.com/variantlab/dnainsights/internal/progress"
)

// byteProgressStep is the minimum on-disk byte delta between progress
// emissions.
const byteProgressStep = 512 * 1024

// Variant is one streamed reference row.
type Variant struct {
	RsID                 string
	Chrom                string
	Pos                  int64
	Ref                  string
	Alt                  string
	ClinicalSignificance string
	ReviewStatus         string
	Conditions           string
	LastEvaluated        string
}

// ReadOptions configures one streaming read.
type ReadOptions struct {
	// RsIDFilter, when non-nil, restricts yielded rows to member rsIDs.
	RsIDFilter map[string]struct{}
	// AllRows disables the high-confidence pathogenic filter; cache builds
	// use it to mirror the source faithfully.
	AllRows bool
	// OnVariant receives each retained row in file order; returning an error
	// aborts the read.
	OnVariant func(Variant) error
	// OnProgress receives (percent, bytesRead, etaSeconds) at >=512KiB
	// deltas of the on-disk stream, plus a completion emission.
	OnProgress progress.Func
	// Token is polled per line batch for cooperative cancellation.
	Token progress.Token
}

func (o ReadOptions) wants(rsid string) bool {
	if o.RsIDFilter == nil {
		return true
	}
	_, ok := o.RsIDFilter[rsid]
	return ok
}

// ReadVariants detects the format of path and streams its retained rows.
// Returns the number of rows delivered to OnVariant.
func ReadVariants(path string, opts ReadOptions) (int64, error) {
	if opts.OnVariant == nil {
		return 0, fmt.Errorf("clinvar: OnVariant callback is required")
	}

	format, err := DetectFormat(path)
	if err != nil {
		return 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	// Progress tracks the compressed stream so percentages follow the file
	// on disk.
	counting := fileutil.NewCountingReader(f)
	tracker := progress.NewTracker(info.Size())
	gate := progress.NewByteThreshold(byteProgressStep)
	emit := func(final bool) {
		if opts.OnProgress == nil {
			return
		}
		offset := counting.BytesRead()
		if final || gate.Ready(offset) {
			tracker.Emit(opts.OnProgress, offset)
		}
	}

	r, err := maybeGzip(counting, path)
	if err != nil {
		return 0, err
	}

	var count int64
	switch format {
	case FormatVCF:
		count, err = readVCF(r, opts, emit)
	case FormatVariantSummary:
		count, err = readVariantSummary(r, opts, emit)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	if err != nil {
		return count, err
	}
	emit(true)
	return count, nil
}
