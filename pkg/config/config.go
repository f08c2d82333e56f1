// Package config loads the installation configuration for oossync.
//
// Configuration comes from oossync.yaml in the installation root, with
// OOSSYNC_* environment variables taking precedence over file values.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the installation configuration for the distribution engine.
type Config struct {
	// SourceDir is the root of the source-of-truth tree (the checkout the
	// definitions are distributed from).
	SourceDir string `yaml:"source_dir" env:"OOSSYNC_SOURCE_DIR"`

	// SourceCommandsDir is the definition directory within the source tree,
	// relative to SourceDir.
	SourceCommandsDir string `yaml:"source_commands_dir" env:"OOSSYNC_SOURCE_COMMANDS_DIR"`

	// InstallDir is the installation root: the live definition directory,
	// version record, backups, and lease all live under it.
	InstallDir string `yaml:"install_dir" env:"OOSSYNC_INSTALL_DIR"`

	// ProbeTimeout bounds each presence probe during validation.
	ProbeTimeout time.Duration `yaml:"probe_timeout" env:"OOSSYNC_PROBE_TIMEOUT"`

	// LeaseTTL is how long a sync lease may be held before another
	// invocation treats it as stale.
	LeaseTTL time.Duration `yaml:"lease_ttl" env:"OOSSYNC_LEASE_TTL"`

	// KeepBackups is the retention count applied by the prune command.
	KeepBackups int `yaml:"keep_backups" env:"OOSSYNC_KEEP_BACKUPS"`
}

// Defaults used when the corresponding config values are unset.
const (
	DefaultCommandsDir  = "commands"
	DefaultProbeTimeout = 3 * time.Second
	DefaultLeaseTTL     = 5 * time.Minute
	DefaultKeepBackups  = 10
)

// LoadConfig parses a configuration from the provided reader and applies
// environment overrides and defaults.
//
// Example:
//
//	yamlData := `
//	source_dir: /home/me/src/oos
//	install_dir: /home/me/.oos
//	`
//	cfg, err := config.LoadConfig(strings.NewReader(yamlData))
func LoadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to apply environment overrides")
	}

	cfg.applyDefaults()
	return &cfg, cfg.validate()
}

// LoadConfigFile loads a configuration from the given path. This is a
// convenience wrapper around LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open file: %s", path)
	}
	defer func() { _ = f.Close() }()

	cfg, err := LoadConfig(f)
	if err != nil {
		return nil, err
	}

	// Relative paths in the file resolve against the file's directory.
	base := filepath.Dir(path)
	if !filepath.IsAbs(cfg.SourceDir) {
		cfg.SourceDir = filepath.Join(base, cfg.SourceDir)
	}
	if !filepath.IsAbs(cfg.InstallDir) {
		cfg.InstallDir = filepath.Join(base, cfg.InstallDir)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceCommandsDir == "" {
		c.SourceCommandsDir = DefaultCommandsDir
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.KeepBackups <= 0 {
		c.KeepBackups = DefaultKeepBackups
	}
}

func (c *Config) validate() error {
	if c.SourceDir == "" {
		return errors.New("source_dir is required")
	}
	if c.InstallDir == "" {
		return errors.New("install_dir is required")
	}
	return nil
}

// SourceCommandsPath returns the absolute path of the source tree's
// definition directory.
func (c *Config) SourceCommandsPath() string {
	return filepath.Join(c.SourceDir, c.SourceCommandsDir)
}

// InstallCommandsPath returns the live definition directory under the
// installation root.
func (c *Config) InstallCommandsPath() string {
	return filepath.Join(c.InstallDir, DefaultCommandsDir)
}

// BackupsPath returns the backup root under the installation root.
func (c *Config) BackupsPath() string {
	return filepath.Join(c.InstallDir, "backups")
}
