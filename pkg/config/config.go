// Package config holds the tunables of a shape engine.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"shapegraph/pkg/errors"
)

// Config controls engine behaviour. The zero value is not valid; start from
// Default.
type Config struct {
	// InitialHashBits sizes a fresh property hash table at
	// 1<<InitialHashBits plus a prime delta.
	InitialHashBits int `yaml:"initialHashBits"`

	// InlineCacheEntries is how many shapes an inline cache tracks before it
	// goes megamorphic.
	InlineCacheEntries int `yaml:"inlineCacheEntries"`

	// FullMarkTraversal makes MarkRoots walk the whole graph instead of the
	// two levels where prototypes enter it.
	FullMarkTraversal bool `yaml:"fullMarkTraversal"`

	// InPlaceAttributeChange lets ChangeMember swap one attribute entry on a
	// cloned list when the slot count does not change, skipping the replay.
	InPlaceAttributeChange bool `yaml:"inPlaceAttributeChange"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel"`
}

const (
	minHashBits = 2
	maxHashBits = 30
	maxICSize   = 16
)

// Environment variables consulted by FromEnv.
const (
	EnvInitialHashBits        = "SHAPEGRAPH_INITIAL_HASH_BITS"
	EnvInlineCacheEntries     = "SHAPEGRAPH_MAX_POLY_ENTRIES"
	EnvFullMarkTraversal      = "SHAPEGRAPH_FULL_MARK"
	EnvInPlaceAttributeChange = "SHAPEGRAPH_INPLACE_ATTR_CHANGE"
	EnvLogLevel               = "SHAPEGRAPH_LOG_LEVEL"
)

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		InitialHashBits:    3,
		InlineCacheEntries: 4,
		LogLevel:           "info",
	}
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, (&errors.ScriptError{Location: errors.Location{Script: path}, Msg: "invalid config"}).CausedBy(err)
	}
	return cfg, cfg.Validate()
}

// FromEnv returns base with any SHAPEGRAPH_* overrides applied.
func FromEnv(base Config) Config {
	base.InitialHashBits = getEnvInt(EnvInitialHashBits, base.InitialHashBits)
	base.InlineCacheEntries = getEnvInt(EnvInlineCacheEntries, base.InlineCacheEntries)
	base.FullMarkTraversal = getEnvBool(EnvFullMarkTraversal, base.FullMarkTraversal)
	base.InPlaceAttributeChange = getEnvBool(EnvInPlaceAttributeChange, base.InPlaceAttributeChange)
	if v := os.Getenv(EnvLogLevel); v != "" {
		base.LogLevel = v
	}
	return base
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.InitialHashBits < minHashBits || c.InitialHashBits > maxHashBits {
		return fmt.Errorf("initialHashBits must be in [%d, %d], got %d", minHashBits, maxHashBits, c.InitialHashBits)
	}
	if c.InlineCacheEntries < 1 || c.InlineCacheEntries > maxICSize {
		return fmt.Errorf("inlineCacheEntries must be in [1, %d], got %d", maxICSize, c.InlineCacheEntries)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", c.LogLevel)
}

// getEnvBool reads a boolean environment variable with a default value
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvInt reads an integer environment variable with a default value
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
