package gridlate

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config carries the tunable limits of a translation run.
type Config struct {
	// MaxRangeCells caps how many cells one range reference may
	// expand to when collecting dependencies.
	MaxRangeCells int `yaml:"max_range_cells"`

	// AllowTruncation downgrades over-large ranges to their leading
	// MaxRangeCells cells instead of failing the formula.
	AllowTruncation bool `yaml:"allow_truncation"`

	// ComplexityThreshold is the score at or above which a formula
	// is flagged as complex.
	ComplexityThreshold int `yaml:"complexity_threshold"`

	// Workers bounds the number of formulas parsed concurrently.
	// Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`

	// DefaultSheet is the sheet whose cells are keyed without a
	// sheet qualifier in emitted code, data['A1'] rather than
	// data['Sheet1!A1']. Empty means "Sheet1".
	DefaultSheet string `yaml:"default_sheet"`
}

// DefaultConfig returns the limits used when no configuration file is
// present.
func DefaultConfig() Config {
	return Config{
		MaxRangeCells:       10000,
		ComplexityThreshold: 5,
	}
}

func (c Config) defaultSheet() string {
	if c.DefaultSheet != "" {
		return c.DefaultSheet
	}
	return "Sheet1"
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (c Config) validate() error {
	if c.MaxRangeCells <= 0 {
		return fmt.Errorf("max_range_cells must be positive, got %d", c.MaxRangeCells)
	}
	if c.ComplexityThreshold <= 0 {
		return fmt.Errorf("complexity_threshold must be positive, got %d", c.ComplexityThreshold)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

const configFileName = "gridlate.yaml"

// LoadConfig reads a config file, layering its values over the
// defaults. Missing keys keep their default values.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DiscoverConfig walks from dir upward looking for gridlate.yaml and
// loads the first one found. When none exists it returns the defaults.
func DiscoverConfig(dir string) (Config, error) {
	path, found := discoverConfigPath(dir)
	if !found {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

func discoverConfigPath(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, configFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
