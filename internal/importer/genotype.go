// Package importer orchestrates the long-running ingestion flows: genotype
// file imports and ClinVar reference syncs. It owns transaction boundaries
// and terminal provenance state; parsing and persistence live below it.
package importer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/variantlab/dnainsights/internal/fileutil"
	"github.com/variantlab/dnainsights/internal/genotype"
	"github.com/variantlab/dnainsights/internal/insights"
	"github.com/variantlab/dnainsights/internal/models"
	"github.com/variantlab/dnainsights/internal/progress"
	"github.com/variantlab/dnainsights/internal/security"
	"github.com/variantlab/dnainsights/internal/store"
)

const (
	sourceAncestry = "ancestry"
	buildGRCh37    = "GRCh37"
	strandPlus     = "+"

	curatedBatchSize = 500
	fullBatchSize    = 1000
)

// GenotypeImportRequest carries everything one import attempt needs.
type GenotypeImportRequest struct {
	ProfileID string
	FilePath  string
	// ZipMember selects the inner .txt when FilePath is an archive with more
	// than one candidate.
	ZipMember string
	Mode      models.ImportMode

	// RawDir receives the retained durable copy, named by import ID. Empty
	// disables retention.
	RawDir    string
	Encryptor security.Encryptor

	Modules   []*insights.KnowledgeModule
	KBVersion string
	OptIn     map[string]bool

	OnProgress progress.Func
	Token      progress.Token
}

// ImportSummary is the caller-facing outcome of a successful import.
type ImportSummary struct {
	Import       *models.ImportRecord
	QC           *insights.QCReport
	InsightCount int
	RawPath      string
}

// Importer runs ingestion flows against one application database.
type Importer struct {
	db      *bun.DB
	session *Session
	logger  *zap.Logger
}

func New(db *bun.DB, logger *zap.Logger) *Importer {
	return &Importer{db: db, session: NewSession(), logger: logger}
}

// ImportAncestryFile ingests one raw genotype file for a profile. The
// provenance row is created in the running state as soon as the content hash
// is known, then driven to exactly one terminal status: ok, failed, or
// cancelled. Genotype writes happen in a single transaction, so a failed or
// cancelled import leaves no partial rows.
func (imp *Importer) ImportAncestryFile(ctx context.Context, req GenotypeImportRequest) (*ImportSummary, error) {
	release, err := imp.session.Acquire(OpGenotypeImport)
	if err != nil {
		return nil, err
	}
	defer release()

	if !req.Mode.Valid() {
		return nil, fmt.Errorf("invalid import mode %q", req.Mode)
	}
	if _, err := store.GetProfile(ctx, imp.db, req.ProfileID); err != nil {
		return nil, fmt.Errorf("profile %s: %w", req.ProfileID, err)
	}

	var zipMember *string
	if req.ZipMember != "" {
		zipMember = &req.ZipMember
	}
	rec := store.NewImportRecord(req.ProfileID, sourceAncestry, "", genotype.ParserVersion, buildGRCh37, strandPlus, zipMember)

	rawPath, fileHash, err := imp.retainRawFile(rec.ID, req)
	if err != nil {
		return nil, err
	}
	rec.FileHashSHA256 = fileHash

	if err := store.AddImport(ctx, imp.db, rec); err != nil {
		return nil, fmt.Errorf("record import: %w", err)
	}

	imp.logger.Info("genotype import started",
		zap.String("import_id", rec.ID),
		zap.String("profile_id", req.ProfileID),
		zap.String("mode", string(req.Mode)),
		zap.String("file_hash", fileHash))

	stats, curated, err := imp.parseAndStage(ctx, req)
	if err != nil {
		return nil, imp.failImport(ctx, rec, err)
	}

	qc := insights.NewQCReport(stats)
	results := insights.EvaluateModules(curated, req.Modules, req.OptIn)
	results = append(results, insights.BuildQCResult(qc))
	if req.OptIn["clinical"] {
		summary, err := imp.clinvarSummary(ctx, req.ProfileID)
		if err != nil {
			return nil, imp.failImport(ctx, rec, err)
		}
		results = append(results, summary)
	}
	encoded, err := insights.Encode(results)
	if err != nil {
		return nil, imp.failImport(ctx, rec, err)
	}
	if _, err := store.StoreInsights(ctx, imp.db, req.ProfileID, req.KBVersion, encoded); err != nil {
		return nil, imp.failImport(ctx, rec, fmt.Errorf("store insights: %w", err))
	}

	if err := store.SetImportStatus(ctx, imp.db, rec.ID, models.StatusOK, nil); err != nil {
		return nil, fmt.Errorf("finalize import: %w", err)
	}
	rec.Status = models.StatusOK

	imp.logger.Info("genotype import complete",
		zap.String("import_id", rec.ID),
		zap.Int64("markers", stats.TotalMarkers),
		zap.Float64("call_rate", stats.CallRate()),
		zap.Int("insights", len(results)))

	return &ImportSummary{
		Import:       rec,
		QC:           qc,
		InsightCount: len(results),
		RawPath:      rawPath,
	}, nil
}

// retainRawFile stores the durable copy under RawDir and returns its path
// and the plaintext content hash. The hash always covers the plaintext, even
// when the stored copy is encrypted.
func (imp *Importer) retainRawFile(importID string, req GenotypeImportRequest) (string, string, error) {
	if req.RawDir == "" {
		hash, err := fileutil.SHA256File(req.FilePath)
		return "", hash, err
	}

	if req.Encryptor != nil && req.Encryptor.IsEnabled() {
		if !req.Encryptor.HasKey() {
			return "", "", security.ErrLocked
		}
		data, err := os.ReadFile(req.FilePath)
		if err != nil {
			return "", "", fmt.Errorf("read raw file: %w", err)
		}
		sum := sha256.Sum256(data)
		sealed, err := req.Encryptor.Encrypt(data)
		if err != nil {
			return "", "", fmt.Errorf("encrypt raw file: %w", err)
		}
		rawPath := filepath.Join(req.RawDir, importID+".enc")
		if err := fileutil.WriteBytes(rawPath, sealed); err != nil {
			return "", "", fmt.Errorf("retain raw file: %w", err)
		}
		return rawPath, hex.EncodeToString(sum[:]), nil
	}

	rawPath := filepath.Join(req.RawDir, importID+filepath.Ext(req.FilePath))
	hash, err := fileutil.CopyFile(rawPath, req.FilePath)
	if err != nil {
		return "", "", fmt.Errorf("retain raw file: %w", err)
	}
	return rawPath, hash, nil
}

// parseAndStage streams the file inside one write transaction, batching
// curated and full table upserts separately. The curated genotype map comes
// back for rule evaluation.
func (imp *Importer) parseAndStage(ctx context.Context, req GenotypeImportRequest) (*genotype.Stats, map[string]*models.CuratedGenotype, error) {
	curatedSet := insights.CuratedRsIDs(req.Modules)
	curatedMap := make(map[string]*models.CuratedGenotype)

	totalBytes := genotype.TotalBytes(req.FilePath, req.ZipMember)
	tracker := progress.NewTracker(totalBytes)

	var stats *genotype.Stats
	err := imp.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		curatedBatch := make([]*models.CuratedGenotype, 0, curatedBatchSize)
		fullBatch := make([]*models.FullGenotype, 0, fullBatchSize)

		flushCurated := func() error {
			if err := store.UpsertCuratedGenotypes(ctx, tx, curatedBatch); err != nil {
				return err
			}
			curatedBatch = curatedBatch[:0]
			return nil
		}
		flushFull := func() error {
			if err := store.UpsertFullGenotypes(ctx, tx, fullBatch); err != nil {
				return err
			}
			fullBatch = fullBatch[:0]
			return nil
		}

		var err error
		stats, err = genotype.ParseFile(req.FilePath, req.ZipMember, genotype.Options{
			Token: req.Token,
			OnBytes: func(bytes int64) {
				tracker.Emit(req.OnProgress, bytes)
			},
			OnRecord: func(record genotype.Record) error {
				if _, ok := curatedSet[record.RsID]; ok {
					row := &models.CuratedGenotype{
						ProfileID: req.ProfileID,
						RsID:      record.RsID,
						Chrom:     record.Chrom,
						Pos:       record.Pos,
						Genotype:  record.Genotype,
					}
					curatedMap[record.RsID] = row
					curatedBatch = append(curatedBatch, row)
					if len(curatedBatch) >= curatedBatchSize {
						if err := flushCurated(); err != nil {
							return err
						}
					}
				}
				if req.Mode == models.ModeFull {
					fullBatch = append(fullBatch, &models.FullGenotype{
						ProfileID: req.ProfileID,
						RsID:      record.RsID,
						Chrom:     record.Chrom,
						Pos:       record.Pos,
						Genotype:  record.Genotype,
					})
					if len(fullBatch) >= fullBatchSize {
						if err := flushFull(); err != nil {
							return err
						}
					}
				}
				return nil
			},
		})
		if err != nil {
			return err
		}
		if err := flushCurated(); err != nil {
			return err
		}
		return flushFull()
	})
	if err != nil {
		return nil, nil, err
	}
	return stats, curatedMap, nil
}

// clinvarSummary builds the opt-in clinical pseudo-module from the profile's
// reference matches.
func (imp *Importer) clinvarSummary(ctx context.Context, profileID string) (*insights.Result, error) {
	count, err := store.CountClinVarMatches(ctx, imp.db, profileID)
	if err != nil {
		return nil, fmt.Errorf("count clinvar matches: %w", err)
	}
	sample, err := store.ClinVarMatches(ctx, imp.db, profileID, 5)
	if err != nil {
		return nil, fmt.Errorf("sample clinvar matches: %w", err)
	}
	latest, err := store.LatestClinVarImport(ctx, imp.db)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return insights.BuildClinVarSummary(count, sample, latest), nil
}

// failImport drives the provenance row to its non-ok terminal status and
// passes the original error through.
func (imp *Importer) failImport(ctx context.Context, rec *models.ImportRecord, cause error) error {
	status := models.StatusFailed
	var msg *string
	if errors.Is(cause, progress.ErrCancelled) {
		status = models.StatusCancelled
	} else {
		text := cause.Error()
		msg = &text
	}
	if err := store.SetImportStatus(ctx, imp.db, rec.ID, status, msg); err != nil {
		imp.logger.Error("failed to record import status",
			zap.String("import_id", rec.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
	rec.Status = status

	imp.logger.Warn("genotype import did not complete",
		zap.String("import_id", rec.ID),
		zap.String("status", string(status)),
		zap.Error(cause))
	return cause
}
