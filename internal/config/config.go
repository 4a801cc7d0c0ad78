// Package config loads and validates the optional .fnreport YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/deixis/fnreport/internal/limits"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the config file looked up at the repository root.
const FileName = ".fnreport"

// Default values for runner and store configuration.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxOutput   = 16 << 20 // 16 MB
	DefaultScaleFactor = 1.0
	DefaultStoreDriver = "disk"
	DefaultCacheSize   = 16
)

// Config holds the parsed .fnreport configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int          `yaml:"version"`
	RawTimeout     string       `yaml:"timeout"`      // e.g. "30s"
	RawMaxOutput   int          `yaml:"max_output"`   // bytes
	RawScaleFactor float64      `yaml:"scale_factor"` // multiplier for default limits
	Engine         EngineConfig `yaml:"engine"`
	Limits         LimitsConfig `yaml:"limits"`
	Store          StoreConfig  `yaml:"store"`
	Log            LogConfig    `yaml:"log"`
	Theme          string       `yaml:"theme"` // ansi (default), plain, marker
}

// EngineConfig describes the external sandbox command.
type EngineConfig struct {
	Command []string `yaml:"command"` // argv; the input payload is written to stdin
	Codec   string   `yaml:"codec"`   // payload codec: json (default) or raw
}

// LimitsConfig overrides the built-in unscaled limits. Zero keeps the default.
type LimitsConfig struct {
	InputBytes   uint64 `yaml:"input_bytes"`
	OutputBytes  uint64 `yaml:"output_bytes"`
	Instructions uint64 `yaml:"instructions"`
}

// StoreConfig selects where runs are persisted.
type StoreConfig struct {
	Driver string `yaml:"driver"` // disk (default) or sqlite
	Path   string `yaml:"path"`   // directory for disk, file for sqlite
	Cache  int    `yaml:"cache"`  // in-memory LRU size
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info (default), warn, error
	Format string `yaml:"format"` // console (default) or json
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ScaleFactor returns the configured scale factor, or the default when
// unset or not positive.
func (c *Config) ScaleFactor() float64 {
	if c.RawScaleFactor > 0 {
		return c.RawScaleFactor
	}
	return DefaultScaleFactor
}

// Defaults returns the unscaled limits with any overrides applied.
func (c *Config) Defaults() limits.Defaults {
	d := limits.Standard()
	if c.Limits.InputBytes > 0 {
		d.InputBytes = c.Limits.InputBytes
	}
	if c.Limits.OutputBytes > 0 {
		d.OutputBytes = c.Limits.OutputBytes
	}
	if c.Limits.Instructions > 0 {
		d.Instructions = c.Limits.Instructions
	}
	return d
}

// EffectiveLimits returns the defaults scaled by the configured factor.
func (c *Config) EffectiveLimits() limits.Limits {
	return limits.Scale(c.Defaults(), c.ScaleFactor())
}

// StoreDriver returns the configured store driver or the default.
func (c *Config) StoreDriver() string {
	if c.Store.Driver != "" {
		return c.Store.Driver
	}
	return DefaultStoreDriver
}

// CacheSize returns the configured LRU size or the default.
func (c *Config) CacheSize() int {
	if c.Store.Cache > 0 {
		return c.Store.Cache
	}
	return DefaultCacheSize
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // nearest directory with a root marker; falls back to workspace
}

// Load reads the .fnreport file from the repository root and applies
// environment overrides. The repository root is discovered by walking
// upward from workspace looking for a .fnreport file, a .git directory
// or a go.mod. If no .fnreport file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		root = workspace
	}

	cfg := &Config{}
	data, err := os.ReadFile(filepath.Join(root, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	applyEnv(cfg)
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// applyEnv overrides file settings from FNREPORT_* variables.
func applyEnv(c *Config) {
	if v := os.Getenv("FNREPORT_SCALE_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.RawScaleFactor = f
		}
	}
	if v := os.Getenv("FNREPORT_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("FNREPORT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("FNREPORT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FNREPORT_THEME"); v != "" {
		c.Theme = v
	}
}

// rootMarkers identify a repository root, in lookup order.
var rootMarkers = []string{FileName, ".git", "go.mod"}

// findRepoRoot walks upward from dir looking for a directory containing
// one of rootMarkers.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, m := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("repository root not found")
		}
		dir = parent
	}
}
