// Package config loads the YAML configuration file. Operational flags
// resolve as CLI flag > env var > config value > default; the resolution
// itself lives with the CLI.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ProfileOptions bound the profiler's memory and resolution.
type ProfileOptions struct {
	HistogramBins     int `yaml:"histogram_bins"`
	CategoricalTopK   int `yaml:"categorical_top_k"`
	ReservoirSize     int `yaml:"reservoir_size"`
	CovarianceMinRows int `yaml:"covariance_min_rows"`
}

// GenerateOptions tune the generation phase.
type GenerateOptions struct {
	KeyStoreCapacity   int     `yaml:"key_store_capacity"`
	CholeskyEpsilonMax float64 `yaml:"cholesky_epsilon_max"`
	Seed               uint64  `yaml:"seed"`
	Rows               int64   `yaml:"rows"`
	FillOther          bool    `yaml:"fill_other"`
}

// Options are the operational knobs shared by commands.
type Options struct {
	DSN          string   `yaml:"dsn"`
	SQLite       string   `yaml:"sqlite"`
	Genome       string   `yaml:"genome"`
	Out          string   `yaml:"out"`
	BatchSize    int      `yaml:"batch_size"`
	Workers      int      `yaml:"workers"`
	Tables       []string `yaml:"tables"`
	DeferIndexes bool     `yaml:"defer_indexes"`
}

// TableConfig carries per-table overrides.
type TableConfig struct {
	Rows int64 `yaml:"rows"`
}

type Config struct {
	Options  Options                `yaml:"options"`
	Profile  ProfileOptions         `yaml:"profile"`
	Generate GenerateOptions        `yaml:"generate"`
	Tables   map[string]TableConfig `yaml:"tables"`
}

// Load reads and parses a YAML config file. An empty path returns an empty
// Config.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Tables == nil {
		cfg.Tables = make(map[string]TableConfig)
	}

	return &cfg, nil
}

// LoadOrDefault tries the given path, falling back to "replica-db.yaml" in
// the current directory; a missing auto-detect file yields an empty Config.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	const defaultFile = "replica-db.yaml"
	if _, err := os.Stat(defaultFile); err != nil {
		return &Config{}, nil
	}

	return Load(defaultFile)
}

// RowsPerTable collects the per-table row overrides.
func (c *Config) RowsPerTable() map[string]int64 {
	rows := make(map[string]int64)
	for name, tc := range c.Tables {
		if tc.Rows > 0 {
			rows[name] = tc.Rows
		}
	}
	return rows
}
