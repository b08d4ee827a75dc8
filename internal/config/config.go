package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gwdetchar/hveto/internal/analysis"
	"github.com/gwdetchar/hveto/internal/domain/segment"
)

// Config holds the analysis parameters and run surface options.
type Config struct {
	// Windows is the ordered set of coincidence windows in seconds.
	Windows []float64 `yaml:"windows"`
	// Thresholds is the ordered set of statistic cutoffs.
	Thresholds []float64 `yaml:"thresholds"`
	// MinimumSignificance is the stopping threshold for the round loop.
	MinimumSignificance float64 `yaml:"minimum_significance"`
	// MaxRounds bounds the number of veto rounds.
	MaxRounds int `yaml:"max_rounds"`
	// AnalysisStart is the GPS start of the analysis span in seconds.
	AnalysisStart float64 `yaml:"analysis_start"`
	// AnalysisEnd is the GPS end of the analysis span in seconds.
	AnalysisEnd float64 `yaml:"analysis_end"`
	// Model selects the significance model. Defaults to "poisson".
	Model string `yaml:"significance_model"`
	// Workers bounds parallel channel evaluations within one round.
	Workers int `yaml:"workers"`
	// LedgerFile is the SQLite file recording run results, relative to the
	// output directory.
	LedgerFile string `yaml:"ledger_file"`
}

const (
	// DefaultConfigFilename is the default filename for analysis settings.
	DefaultConfigFilename = "hveto-settings.yaml"

	// DefaultLedgerFilename is the default filename for the run ledger.
	DefaultLedgerFilename = "hveto-ledger.sqlite"

	// DefaultMaxRounds bounds runs whose configuration leaves it unset.
	DefaultMaxRounds = 100

	// DefaultWorkers is the default per-round evaluation parallelism.
	DefaultWorkers = 4

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// Load reads configuration from the provided path, applies defaults and
// validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate applies defaults and checks the settings by delegating grid and
// span validation to the analysis engine's own rules.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}

	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	if cfg.Model == "" {
		cfg.Model = string(analysis.ModelPoisson)
	}

	if cfg.LedgerFile == "" {
		cfg.LedgerFile = DefaultLedgerFilename
	}

	return cfg.Params().Validate()
}

// Params converts the configuration into the engine's parameter structure.
func (cfg *Config) Params() analysis.Params {
	return analysis.Params{
		Windows:             cfg.Windows,
		Thresholds:          cfg.Thresholds,
		MinimumSignificance: cfg.MinimumSignificance,
		MaxRounds:           cfg.MaxRounds,
		Span:                segment.Segment{Start: cfg.AnalysisStart, End: cfg.AnalysisEnd},
		Model:               analysis.Model(cfg.Model),
		Workers:             cfg.Workers,
	}
}
