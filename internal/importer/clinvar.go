package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/variantlab/dnainsights/internal/clinvar"
	"github.com/variantlab/dnainsights/internal/fileutil"
	"github.com/variantlab/dnainsights/internal/models"
	"github.com/variantlab/dnainsights/internal/progress"
	"github.com/variantlab/dnainsights/internal/store"
)

const (
	clinvarBatchSize = 1000
	syncChunkSize    = 1000
)

// SyncRequest configures one ClinVar reference sync. Filter is the rsID
// working set, typically every rsID known across profiles.
type SyncRequest struct {
	Filter     map[string]struct{}
	OnProgress progress.Func
	Token      progress.Token
}

// SyncResult reports what a sync did. A skipped sync is a success, not an
// error; Reason says why nothing needed to happen.
type SyncResult struct {
	Skipped        bool              `json:"skipped"`
	Reason         models.SkipReason `json:"reason,omitempty"`
	VariantCount   int64             `json:"variant_count"`
	FileHashSHA256 string            `json:"file_hash_sha256"`
}

// resolveNeeded applies the incremental-sync set algebra: needed is the
// filter minus already-checked rsIDs, with a source-hash change forcing a
// full resync by clearing the checked set first.
func (imp *Importer) resolveNeeded(ctx context.Context, sourceHash string, filter map[string]struct{}) (map[string]struct{}, *SyncResult, error) {
	if len(filter) == 0 {
		return nil, &SyncResult{Skipped: true, Reason: models.SkipNoRsIDs, FileHashSHA256: sourceHash}, nil
	}

	latest, err := store.LatestClinVarImport(ctx, imp.db)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, nil, err
	}

	checked := map[string]struct{}{}
	if latest != nil && latest.FileHashSHA256 != sourceHash {
		imp.logger.Info("clinvar source changed, forcing full resync",
			zap.String("previous_hash", latest.FileHashSHA256),
			zap.String("current_hash", sourceHash))
		if err := store.ClearChecked(ctx, imp.db); err != nil {
			return nil, nil, fmt.Errorf("clear checked set: %w", err)
		}
	} else {
		checked, err = store.CheckedRsIDs(ctx, imp.db)
		if err != nil {
			return nil, nil, err
		}
	}

	needed := make(map[string]struct{}, len(filter))
	for rsid := range filter {
		if _, done := checked[rsid]; !done {
			needed[rsid] = struct{}{}
		}
	}
	if len(needed) == 0 {
		reason := models.SkipAlreadyChecked
		if latest != nil && latest.FileHashSHA256 == sourceHash {
			reason = models.SkipAlreadyImported
		}
		return nil, &SyncResult{Skipped: true, Reason: reason, FileHashSHA256: sourceHash}, nil
	}
	return needed, nil, nil
}

// ImportClinVarSnapshot stream-filters a ClinVar source file by the needed
// rsID set and merges high-confidence pathogenic matches. Every needed rsID
// is marked checked afterwards, matches and misses alike, so the next sync
// only considers new rsIDs.
func (imp *Importer) ImportClinVarSnapshot(ctx context.Context, path string, req SyncRequest) (*SyncResult, error) {
	release, err := imp.session.Acquire(OpClinVarSync)
	if err != nil {
		return nil, err
	}
	defer release()

	fileHash, err := fileutil.SHA256File(path)
	if err != nil {
		return nil, err
	}

	needed, skip, err := imp.resolveNeeded(ctx, fileHash, req.Filter)
	if err != nil {
		return nil, err
	}
	if skip != nil {
		imp.logger.Info("clinvar sync skipped", zap.String("reason", string(skip.Reason)))
		return skip, nil
	}

	imp.logger.Info("clinvar file sync started",
		zap.String("path", path),
		zap.Int("needed_rsids", len(needed)))

	var matched int64
	err = imp.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		batch := make([]*models.ClinVarVariant, 0, clinvarBatchSize)
		flush := func() error {
			if err := store.UpsertClinVarVariants(ctx, tx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			return nil
		}

		matched, err = clinvar.ReadVariants(path, clinvar.ReadOptions{
			RsIDFilter: needed,
			OnProgress: req.OnProgress,
			Token:      req.Token,
			OnVariant: func(v clinvar.Variant) error {
				batch = append(batch, &models.ClinVarVariant{
					RsID:                 v.RsID,
					Chrom:                v.Chrom,
					Pos:                  v.Pos,
					Ref:                  v.Ref,
					Alt:                  v.Alt,
					ClinicalSignificance: v.ClinicalSignificance,
					ReviewStatus:         v.ReviewStatus,
					Conditions:           v.Conditions,
					LastEvaluated:        v.LastEvaluated,
				})
				if len(batch) >= clinvarBatchSize {
					return flush()
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
		if err := flush(); err != nil {
			return err
		}
		if err := store.MarkChecked(ctx, tx, sortedRsIDs(needed)); err != nil {
			return err
		}
		_, err = store.AddClinVarImport(ctx, tx, fileHash, matched)
		return err
	})
	if err != nil {
		return nil, err
	}

	imp.logger.Info("clinvar file sync complete", zap.Int64("matched", matched))
	return &SyncResult{VariantCount: matched, FileHashSHA256: fileHash}, nil
}

// ImportClinVarCache performs the incremental sync against a prebuilt cache
// store, merging only high-confidence pathogenic matches like the file route.
// The copy loop runs in per-chunk transactions, so a crash or
// cancellation mid-sync keeps every completed chunk; the provenance row is
// recorded only once all chunks land.
func (imp *Importer) ImportClinVarCache(ctx context.Context, cachePath string, req SyncRequest) (*SyncResult, error) {
	release, err := imp.session.Acquire(OpClinVarSync)
	if err != nil {
		return nil, err
	}
	defer release()

	cache, err := clinvar.OpenCache(cachePath)
	if err != nil {
		return nil, err
	}
	defer cache.Close()

	meta, err := cache.Meta(ctx)
	if err != nil {
		return nil, err
	}

	needed, skip, err := imp.resolveNeeded(ctx, meta.FileHashSHA256, req.Filter)
	if err != nil {
		return nil, err
	}
	if skip != nil {
		imp.logger.Info("clinvar sync skipped", zap.String("reason", string(skip.Reason)))
		return skip, nil
	}

	imp.logger.Info("clinvar cache sync started",
		zap.String("cache", cachePath),
		zap.Int("needed_rsids", len(needed)))

	// Phase 1: resolve the chunked working set. Sorting makes chunk
	// boundaries deterministic across retries of the same sync.
	phase1 := progress.SubRange(req.OnProgress, 0, 20)
	tracker := progress.NewTracker(int64(len(needed)))
	working := make([]string, 0, len(needed))
	for rsid := range needed {
		working = append(working, rsid)
		if len(working)%syncChunkSize == 0 {
			if err := progress.Check(req.Token); err != nil {
				return nil, err
			}
			tracker.Emit(phase1, int64(len(working)))
		}
	}
	sort.Strings(working)
	tracker.Emit(phase1, int64(len(working)))

	chunks := (len(working) + syncChunkSize - 1) / syncChunkSize

	// Phase 2: copy matches and mark checked, one short transaction per
	// chunk. Committed chunks survive a crash and are not re-copied.
	phase2 := progress.SubRange(req.OnProgress, 20, 95)
	chunkTracker := progress.NewTracker(int64(chunks))

	var matched int64
	for i := 0; i < chunks; i++ {
		if err := progress.Check(req.Token); err != nil {
			return nil, err
		}

		lo := i * syncChunkSize
		hi := lo + syncChunkSize
		if hi > len(working) {
			hi = len(working)
		}
		chunk := working[lo:hi]

		rows, err := cache.Lookup(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}

		variants := make([]*models.ClinVarVariant, 0, len(rows))
		for _, row := range rows {
			// The cache mirrors the source unfiltered; the pathogenic filter
			// applies here, at lookup time, so both sync routes merge the
			// same rows.
			if !clinvar.HighConfidencePathogenic(row.ClinicalSignificance, row.ReviewStatus) {
				continue
			}
			variants = append(variants, &models.ClinVarVariant{
				RsID:                 row.RsID,
				Chrom:                row.Chrom,
				Pos:                  row.Pos,
				Ref:                  row.Ref,
				Alt:                  row.Alt,
				ClinicalSignificance: row.ClinicalSignificance,
				ReviewStatus:         row.ReviewStatus,
				Conditions:           row.Conditions,
				LastEvaluated:        row.LastEvaluated,
			})
		}

		err = imp.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if err := store.UpsertClinVarVariants(ctx, tx, variants); err != nil {
				return err
			}
			return store.MarkChecked(ctx, tx, chunk)
		})
		if err != nil {
			return nil, err
		}
		matched += int64(len(variants))
		chunkTracker.Emit(phase2, int64(i+1))
	}

	if _, err := store.AddClinVarImport(ctx, imp.db, meta.FileHashSHA256, matched); err != nil {
		return nil, err
	}
	if req.OnProgress != nil {
		req.OnProgress(100, matched, 0)
	}

	imp.logger.Info("clinvar cache sync complete",
		zap.Int64("matched", matched),
		zap.Int("chunks", chunks))
	return &SyncResult{VariantCount: matched, FileHashSHA256: meta.FileHashSHA256}, nil
}

func sortedRsIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for rsid := range set {
		out = append(out, rsid)
	}
	sort.Strings(out)
	return out
}
