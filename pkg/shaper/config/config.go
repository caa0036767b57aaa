package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/shaper/pkg/shaper/internalerr"
	"github.com/cognicore/shaper/pkg/shaper/pyramid"
	"github.com/cognicore/shaper/pkg/shaper/rle"
)

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
	DriverMemory = "memory"
)

// Config is the on-disk configuration of a classifier.
type Config struct {
	Classifier Classifier  `yaml:"classifier"`
	Store      StoreConfig `yaml:"store"`
	Cache      Cache       `yaml:"cache"`
	Log        Log         `yaml:"log"`
}

// Classifier holds the learning parameters. Base must not change between
// learning and classification.
type Classifier struct {
	Base      int `yaml:"base"`
	MaxLevels int `yaml:"max_levels"`
}

// StoreConfig selects where the model lives.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Cache sizes the verdict memo. Zero disables it.
type Cache struct {
	MemoSize int `yaml:"memo_size"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Classifier: Classifier{Base: rle.DefaultBase, MaxLevels: pyramid.DefaultMaxLevels},
		Store:      StoreConfig{Driver: DriverSQLite, Path: "shaper.db"},
		Cache:      Cache{MemoSize: 4096},
		Log:        Log{Level: "info", Format: "text"},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %v: %w", path, err, internalerr.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field.
func (c Config) Validate() error {
	if c.Classifier.Base < 2 {
		return fmt.Errorf("classifier.base must be at least 2, got %d: %w", c.Classifier.Base, internalerr.ErrInvalidConfig)
	}
	if c.Classifier.MaxLevels < 1 {
		return fmt.Errorf("classifier.max_levels must be positive, got %d: %w", c.Classifier.MaxLevels, internalerr.ErrInvalidConfig)
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverBolt:
		if strings.TrimSpace(c.Store.Path) == "" {
			return fmt.Errorf("store.path is required for driver %s: %w", c.Store.Driver, internalerr.ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown store.driver %q: %w", c.Store.Driver, internalerr.ErrInvalidConfig)
	}
	if c.Cache.MemoSize < 0 {
		return fmt.Errorf("cache.memo_size must not be negative: %w", internalerr.ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q: %w", c.Log.Format, internalerr.ErrInvalidConfig)
	}
	return nil
}
