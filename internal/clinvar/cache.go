package clinvar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uptrace/bun"

	"github.com/variantlab/dnainsights/internal/database"
	"github.com/variantlab/dnainsights/internal/fileutil"
	"github.com/variantlab/dnainsights/internal/models"
	"github.com/variantlab/dnainsights/internal/progress"
)

// CacheFilename is the conventional name of the prebuilt cache store.
const CacheFilename = "clinvar_cache.sqlite3"

// cacheBatchSize trades memory for per-statement overhead during a build.
const cacheBatchSize = 2000

// BuildOptions configures a cache build.
type BuildOptions struct {
	OnProgress progress.Func
	Token      progress.Token
	Debug      bool
}

// BuildSummary describes a completed cache build.
type BuildSummary struct {
	FileHashSHA256 string `json:"file_hash_sha256"`
	SourcePath     string `json:"source_path"`
	VariantCount   int64  `json:"variant_count"`
}

// BuildCache mirrors every variant row of a ClinVar source file into a
// standalone indexed store, so later incremental syncs avoid re-parsing the
// multi-GB source. No pathogenic filter is applied; filtering happens at
// lookup time. The whole build runs in one transaction: on cancellation or
// any error the store rolls back wholesale and is never left looking "done".
func BuildCache(ctx context.Context, inputPath, outputPath string, opts BuildOptions) (*BuildSummary, error) {
	fileHash, err := fileutil.SHA256File(inputPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := database.NewDB(outputPath, opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}
	defer db.Close()

	for _, model := range []interface{}{(*models.CacheVariant)(nil), (*models.CacheMeta)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return nil, fmt.Errorf("create cache tables: %w", err)
		}
	}

	var count int64
	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Rebuilds replace any previous content atomically.
		if _, err := tx.NewDelete().Model((*models.CacheVariant)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.CacheMeta)(nil)).Where("1=1").Exec(ctx); err != nil {
			return err
		}

		batch := make([]*models.CacheVariant, 0, cacheBatchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			if _, err := tx.NewInsert().Model(&batch).On("CONFLICT (rsid) DO UPDATE").
				Set("chrom = EXCLUDED.chrom").
				Set("pos = EXCLUDED.pos").
				Set("ref = EXCLUDED.ref").
				Set("alt = EXCLUDED.alt").
				Set("clinical_significance = EXCLUDED.clinical_significance").
				Set("review_status = EXCLUDED.review_status").
				Set("conditions = EXCLUDED.conditions").
				Set("last_evaluated = EXCLUDED.last_evaluated").
				Exec(ctx); err != nil {
				return err
			}
			batch = batch[:0]
			return nil
		}

		count, err = ReadVariants(inputPath, ReadOptions{
			AllRows:    true,
			OnProgress: opts.OnProgress,
			Token:      opts.Token,
			OnVariant: func(v Variant) error {
				batch = append(batch, &models.CacheVariant{
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
				if len(batch) >= cacheBatchSize {
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

		meta := &models.CacheMeta{
			FileHashSHA256: fileHash,
			SourcePath:     inputPath,
			VariantCount:   count,
			BuiltAt:        time.Now().UTC(),
		}
		_, err := tx.NewInsert().Model(meta).Exec(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &BuildSummary{
		FileHashSHA256: fileHash,
		SourcePath:     inputPath,
		VariantCount:   count,
	}, nil
}

// Cache is a read handle on a prebuilt cache store.
type Cache struct {
	db *bun.DB
}

// OpenCache opens an existing cache store.
func OpenCache(path string) (*Cache, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("clinvar cache not found: %w", err)
	}
	db, err := database.NewDB(path, false)
	if err != nil {
		return nil, err
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Meta returns the cache's build metadata.
func (c *Cache) Meta(ctx context.Context) (*models.CacheMeta, error) {
	meta := new(models.CacheMeta)
	if err := c.db.NewSelect().Model(meta).Order("id DESC").Limit(1).Scan(ctx); err != nil {
		return nil, fmt.Errorf("read cache metadata: %w", err)
	}
	return meta, nil
}

// Lookup returns the cached rows for a chunk of rsIDs. Callers chunk the
// input to stay under SQLite parameter-count limits.
func (c *Cache) Lookup(ctx context.Context, rsids []string) ([]*models.CacheVariant, error) {
	if len(rsids) == 0 {
		return nil, nil
	}
	var rows []*models.CacheVariant
	err := c.db.NewSelect().Model(&rows).Where("rsid IN (?)", bun.In(rsids)).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// VariantCount reports the number of rows in the cache.
func (c *Cache) VariantCount(ctx context.Context) (int64, error) {
	n, err := c.db.NewSelect().Model((*models.CacheVariant)(nil)).Count(ctx)
	return int64(n), err
}
