package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "knowledge_base"), cfg.KnowledgeBaseDir)
	assert.False(t, cfg.OptIn.Clinical)
	assert.False(t, cfg.OptIn.PGx)
	assert.False(t, cfg.Encryption.Enabled)
	assert.False(t, cfg.Debug)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `data_dir: /srv/dna/data
knowledge_base_dir: /srv/dna/kb
opt_in:
  clinical: true
  pgx: false
encryption:
  enabled: true
  salt: c29tZXNhbHQ=
debug: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/dna/data", cfg.DataDir)
	assert.Equal(t, "/srv/dna/kb", cfg.KnowledgeBaseDir)
	assert.True(t, cfg.OptIn.Clinical)
	assert.False(t, cfg.OptIn.PGx)
	assert.True(t, cfg.Encryption.Enabled)
	assert.Equal(t, "c29tZXNhbHQ=", cfg.Encryption.Salt)
	assert.True(t, cfg.Debug)

	categories := cfg.OptIn.Categories()
	assert.True(t, categories["clinical"])
	assert.False(t, categories["pgx"])
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/yaml\n"), 0o600))

	t.Setenv("DNA_INSIGHTS_DATA_DIR", "/from/env")
	t.Setenv("DNA_INSIGHTS_OPT_IN_PGX", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.DataDir)
	assert.True(t, cfg.OptIn.PGx)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := &Config{
		DataDir:          "/srv/dna/data",
		KnowledgeBaseDir: "/srv/dna/kb",
		OptIn:            OptInConfig{Clinical: true},
		Encryption:       EncryptionConfig{Enabled: true, Salt: "c2FsdA=="},
	}
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataDir, loaded.DataDir)
	assert.True(t, loaded.OptIn.Clinical)
	assert.Equal(t, "c2FsdA==", loaded.Encryption.Salt)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/srv/dna/data"}
	assert.Equal(t, "/srv/dna/data/dna_insights.sqlite3", cfg.DatabasePath())
	assert.Equal(t, "/srv/dna/data/raw/p1", cfg.RawFileDir("p1"))
}
