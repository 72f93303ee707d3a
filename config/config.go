// Package config handles jscore.toml engine configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// FileName is the name of the configuration file.
const FileName = "jscore.toml"

// Config represents a jscore.toml configuration.
type Config struct {
	Engine Engine `toml:"engine"`
	Log    Log    `toml:"log"`
	Cache  Cache  `toml:"cache"`

	// Dir is the directory containing the jscore.toml file (set at load
	// time). Empty when defaults are in use.
	Dir string `toml:"-"`
}

// Engine configures the virtual machine.
type Engine struct {
	StackLimit        int  `toml:"stack-limit"`
	Strict            bool `toml:"strict"`
	Trace             bool `toml:"trace"`
	InterruptInterval int  `toml:"interrupt-interval"`
}

// Log configures logging.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Cache configures the compiled chunk cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used when no jscore.toml exists.
func Default() *Config {
	return &Config{
		Engine: Engine{
			StackLimit:        4096,
			InterruptInterval: 1024,
		},
		Cache: Cache{
			Enabled: true,
			Path:    filepath.Join(".jscore", "cache.db"),
		},
	}
}

// Load parses a jscore.toml file from the given directory. Keys missing
// from the file keep their defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a jscore.toml file, then
// loads and returns it. Returns Default() if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.StackLimit <= 0 {
		errs = append(errs, fmt.Errorf("engine.stack-limit must be positive, got %d", c.Engine.StackLimit))
	}
	if c.Engine.InterruptInterval <= 0 {
		errs = append(errs, fmt.Errorf("engine.interrupt-interval must be positive, got %d", c.Engine.InterruptInterval))
	}
	if c.Log.Verbosity < -4 || c.Log.Verbosity > 2 {
		errs = append(errs, fmt.Errorf("log.verbosity must be between -4 and 2, got %d", c.Log.Verbosity))
	}
	if c.Cache.Enabled && c.Cache.Path == "" {
		errs = append(errs, errors.New("cache.path is required when the cache is enabled"))
	}
	return errors.Join(errs...)
}

// CachePath returns the absolute path of the chunk cache. Relative paths
// are resolved against the configuration directory. Without a
// configuration file the cache lives in the user's XDG cache directory.
func (c *Config) CachePath() string {
	if filepath.IsAbs(c.Cache.Path) {
		return c.Cache.Path
	}
	if c.Dir == "" {
		return filepath.Join(xdg.CacheHome, "jscore", filepath.Base(c.Cache.Path))
	}
	return filepath.Join(c.Dir, c.Cache.Path)
}
