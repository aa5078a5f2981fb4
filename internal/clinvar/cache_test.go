package clinvar

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variantlab/dnainsights/internal/progress"
)

func TestBuildCacheMirrorsAllRows(t *testing.T) {
	ctx := context.Background()
	src := writeFile(t, "variant_summary.txt", sampleSummary)
	out := filepath.Join(t.TempDir(), CacheFilename)

	summary, err := BuildCache(ctx, src, out, BuildOptions{})
	require.NoError(t, err)
	// Faithful mirror: benign rs999 included, no pathogenic filter.
	assert.Equal(t, int64(4), summary.VariantCount)
	assert.NotEmpty(t, summary.FileHashSHA256)

	cache, err := OpenCache(out)
	require.NoError(t, err)
	defer cache.Close()

	meta, err := cache.Meta(ctx)
	require.NoError(t, err)
	assert.Equal(t, summary.FileHashSHA256, meta.FileHashSHA256)
	assert.Equal(t, int64(4), meta.VariantCount)
	assert.Equal(t, src, meta.SourcePath)

	rows, err := cache.Lookup(ctx, []string{"rs123", "rs999", "rs_missing"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	n, err := cache.VariantCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestBuildCacheRebuildReplaces(t *testing.T) {
	ctx := context.Background()
	src := writeFile(t, "variant_summary.txt", sampleSummary)
	out := filepath.Join(t.TempDir(), CacheFilename)

	_, err := BuildCache(ctx, src, out, BuildOptions{})
	require.NoError(t, err)
	summary, err := BuildCache(ctx, src, out, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), summary.VariantCount)

	cache, err := OpenCache(out)
	require.NoError(t, err)
	defer cache.Close()
	n, err := cache.VariantCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestBuildCacheCancellationRollsBack(t *testing.T) {
	ctx := context.Background()
	src := writeFile(t, "variant_summary.txt", sampleSummary)
	out := filepath.Join(t.TempDir(), CacheFilename)

	var flag progress.Flag
	flag.Cancel()
	_, err := BuildCache(ctx, src, out, BuildOptions{Token: &flag})
	require.ErrorIs(t, err, progress.ErrCancelled)

	// A rolled-back build must not look "done": no metadata row survives.
	cache, err := OpenCache(out)
	require.NoError(t, err)
	defer cache.Close()
	_, err = cache.Meta(ctx)
	assert.Error(t, err)

	n, err := cache.VariantCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenCacheMissing(t *testing.T) {
	_, err := OpenCache(filepath.Join(t.TempDir(), "nope.sqlite3"))
	assert.Error(t, err)
}

func TestBuildCacheLookupEmpty(t *testing.T) {
	ctx := context.Background()
	src := writeFile(t, "variant_summary.txt", sampleSummary)
	out := filepath.Join(t.TempDir(), CacheFilename)
	_, err := BuildCache(ctx, src, out, BuildOptions{})
	require.NoError(t, err)

	cache, err := OpenCache(out)
	require.NoError(t, err)
	defer cache.Close()

	rows, err := cache.Lookup(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, rows)
}
