// Package config loads application settings from a YAML file in the user's
// config directory, with environment variable overrides. Secrets never live
// in the file: the encryption passphrase is session-only, and only the key
// derivation salt is persisted.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const (
	appSlug        = "dna-insights"
	configFilename = "config.yaml"
)

// Config holds all persistent application settings. Environment variables
// override YAML values.
type Config struct {
	// DataDir is where the database, retained raw files and the ClinVar
	// cache live.
	DataDir string `yaml:"data_dir" env:"DNA_INSIGHTS_DATA_DIR" env-default:""`

	// KnowledgeBaseDir points at the kb_manifest.json directory.
	KnowledgeBaseDir string `yaml:"knowledge_base_dir" env:"DNA_INSIGHTS_KB_DIR" env-default:""`

	// OptIn gates sensitive insight categories; everything defaults to off.
	OptIn OptInConfig `yaml:"opt_in"`

	// Encryption controls at-rest protection of retained raw files.
	Encryption EncryptionConfig `yaml:"encryption"`

	// Debug enables SQL query logging.
	Debug bool `yaml:"debug" env:"DNA_INSIGHTS_DEBUG" env-default:"false"`
}

// OptInConfig records explicit consent per sensitive category.
type OptInConfig struct {
	Clinical bool `yaml:"clinical" env:"DNA_INSIGHTS_OPT_IN_CLINICAL" env-default:"false"`
	PGx      bool `yaml:"pgx" env:"DNA_INSIGHTS_OPT_IN_PGX" env-default:"false"`
}

// Categories returns the opt-in map keyed by category name.
func (o OptInConfig) Categories() map[string]bool {
	return map[string]bool{
		"clinical": o.Clinical,
		"pgx":      o.PGx,
	}
}

// EncryptionConfig persists the enabled flag and the derivation salt. The
// salt is base64; the passphrase is never stored.
type EncryptionConfig struct {
	Enabled bool   `yaml:"enabled" env:"DNA_INSIGHTS_ENCRYPTION_ENABLED" env-default:"false"`
	Salt    string `yaml:"salt" env:"DNA_INSIGHTS_ENCRYPTION_SALT" env-default:""`
}

// ConfigDir is ~/.dna-insights.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, "."+appSlug), nil
}

// ConfigPath is the default YAML location.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFilename), nil
}

// Load reads config from path, falling back to environment-only defaults
// when the file does not exist. A missing file is not an error: first runs
// start from defaults.
func Load(path string) (*Config, error) {
	cfg := new(Config)

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read config from environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}

	if err := cfg.applyDefaults(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault loads from the standard per-user location.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return Load(path)
}

func (c *Config) applyDefaults(path string) error {
	if c.DataDir == "" {
		c.DataDir = filepath.Join(filepath.Dir(path), "data")
	}
	if c.KnowledgeBaseDir == "" {
		c.KnowledgeBaseDir = filepath.Join(filepath.Dir(path), "knowledge_base")
	}
	return nil
}

// DatabasePath is the application SQLite file under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "dna_insights.sqlite3")
}

// RawFileDir is where retained raw uploads are kept, per profile.
func (c *Config) RawFileDir(profileID string) string {
	return filepath.Join(c.DataDir, "raw", profileID)
}

// Save writes the config back as YAML, creating the directory as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
