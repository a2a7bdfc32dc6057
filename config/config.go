// Package config loads storyflow.toml, the tool configuration that sits
// next to .story descriptions.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ByLCY/storyflow/layout"
)

// FileName is the configuration file looked up by Find.
const FileName = "storyflow.toml"

// Config 对应 storyflow.toml。
type Config struct {
	Engine Engine `toml:"engine"`
	Output Output `toml:"output"`
	Log    Log    `toml:"log"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Engine holds the layout budgets.
type Engine struct {
	MaxIterations  int     `toml:"max_iterations"`
	MaxSearchCalls int     `toml:"max_search_calls"`
	MaxDoublings   int     `toml:"max_doublings"`
	MaxRegions     int     `toml:"max_regions"`
	SearchDelta    float64 `toml:"search_delta"`
}

// Output controls what a build writes besides the PDF.
type Output struct {
	Dir       string `toml:"dir"`
	Positions string `toml:"positions"` // json | msgpack | none
	Links     bool   `toml:"links"`
}

// Log configures the CLI logger.
type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Engine: Engine{
			MaxIterations: layout.DefaultMaxIterations,
			MaxDoublings:  layout.DefaultMaxDoublings,
			MaxRegions:    layout.DefaultMaxRegions,
			SearchDelta:   0.01,
		},
		Output: Output{Dir: ".", Positions: "none"},
		Log:    Log{Level: "info"},
	}
}

// Load reads path over the defaults. Unknown keys are errors so typos do
// not silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("output", "dir") && !filepath.IsAbs(cfg.Output.Dir) {
		cfg.Output.Dir = filepath.Join(filepath.Dir(path), cfg.Output.Dir)
	}
	cfg.Path = path
	return cfg, cfg.Validate()
}

// Find walks up from startDir looking for storyflow.toml and loads it.
// Without one it returns the defaults.
func Find(startDir string) (Config, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch c.Output.Positions {
	case "json", "msgpack", "none", "":
	default:
		return fmt.Errorf("output.positions must be json, msgpack or none, got %q", c.Output.Positions)
	}
	if c.Engine.MaxIterations < 0 || c.Engine.MaxSearchCalls < 0 || c.Engine.MaxDoublings < 0 || c.Engine.MaxRegions < 0 {
		return errors.New("engine budgets must not be negative")
	}
	if c.Engine.MaxIterations == 1 {
		return errors.New("engine.max_iterations must be at least 2")
	}
	if c.Engine.SearchDelta < 0 {
		return errors.New("engine.search_delta must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name to a slog.Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	name := l.Level
	if name == "" {
		name = "info"
	}
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// SearchOptions returns the search budget as layout options.
func (e Engine) SearchOptions(logger *slog.Logger) layout.SearchOptions {
	return layout.SearchOptions{MaxCalls: e.MaxSearchCalls, MaxDoublings: e.MaxDoublings, Logger: logger}
}
