// Package config loads and validates the YAML run configuration: how many
// worker processes and restarts to run, which engine to evaluate with, the
// genetic algorithm parameters, and where results go.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evosearch/demova/pkg/cache"
	"github.com/evosearch/demova/pkg/errors"
	"github.com/evosearch/demova/pkg/optimize"
	"github.com/evosearch/demova/pkg/runner"
)

// Config is the full run configuration.
type Config struct {
	// OutputDir is the root directory for run artifacts (per-run
	// subdirectories, search logs, checkpoints).
	OutputDir string `yaml:"output_directory" validate:"required"`

	// Processes bounds how many runs execute concurrently.
	Processes int `yaml:"processes" validate:"min=1"`

	// Repeats is the total number of independent restarts.
	Repeats int `yaml:"repeats" validate:"min=1"`

	// Epsilon is the convergence tolerance; it also sets the display
	// precision of reported log-likelihoods.
	Epsilon float64 `yaml:"epsilon" validate:"gt=0"`

	// ProgressIntervalMinutes is how often the supervisor prints the shared
	// best-model table.
	ProgressIntervalMinutes int `yaml:"progress_interval_minutes" validate:"min=1"`

	// ResumeDir points at a previous OutputDir to continue from its
	// checkpoints. Empty starts fresh.
	ResumeDir string `yaml:"resume_from,omitempty"`

	// Silence suppresses console progress output.
	Silence bool `yaml:"silence"`

	Engine  EngineConfig  `yaml:"engine"`
	GA      GAConfig      `yaml:"genetic_algorithm"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig selects and parameterizes the fitness engine.
type EngineConfig struct {
	// Name must match a registered engine.
	Name string `yaml:"name" validate:"required"`

	// Grid holds the engine's resolution parameters, passed through
	// untouched.
	Grid []int `yaml:"grid,omitempty" validate:"omitempty,dive,min=1"`
}

// GAConfig tunes the genetic search.
type GAConfig struct {
	GenerationSize    int     `yaml:"generation_size" validate:"min=1"`
	MutationFraction  float64 `yaml:"mutation_fraction" validate:"min=0,max=1"`
	CrossoverFraction float64 `yaml:"crossover_fraction" validate:"min=0,max=1"`
	MutationRate      float64 `yaml:"mutation_rate" validate:"gt=0,max=1"`
	MutationStrength  float64 `yaml:"mutation_strength" validate:"gt=0"`
	TournamentSize    int     `yaml:"tournament_size" validate:"min=1"`

	// MaxIterations stops each run after that many iterations; 0 runs
	// until convergence.
	MaxIterations int `yaml:"max_iterations" validate:"min=0"`
}

// CacheConfig controls fitness evaluation memoization.
type CacheConfig struct {
	// Enabled turns memoization on.
	Enabled bool `yaml:"enabled"`

	// Type is "memory" or "sqlite".
	Type string `yaml:"type" validate:"omitempty,oneof=memory sqlite"`

	// Path locates the SQLite database file.
	Path string `yaml:"path,omitempty"`

	// TTLHours bounds entry lifetime; 0 keeps entries until evicted.
	TTLHours int `yaml:"ttl_hours" validate:"min=0"`

	// MaxSizeBytes bounds the cache; 0 is unlimited.
	MaxSizeBytes int64 `yaml:"max_size_bytes" validate:"min=0"`
}

// LoggingConfig controls the shared logger.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR, FATAL.
	Level string `yaml:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR FATAL"`

	// File receives a copy of all log output when set.
	File string `yaml:"file,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	genetic := optimize.DefaultGeneticConfig()
	search := optimize.DefaultConfig()
	return &Config{
		OutputDir:               "demova_output",
		Processes:               1,
		Repeats:                 1,
		Epsilon:                 search.Epsilon,
		ProgressIntervalMinutes: 1,
		Engine:                  EngineConfig{Name: "sphere"},
		GA: GAConfig{
			GenerationSize:    search.GenerationSize,
			MutationFraction:  genetic.MutationFraction,
			CrossoverFraction: genetic.CrossoverFraction,
			MutationRate:      genetic.MutationRate,
			MutationStrength:  genetic.MutationStrength,
			TournamentSize:    genetic.TournamentSize,
		},
		Cache:   CacheConfig{Type: "memory"},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
			errors.Fields{"path": path})
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
			errors.Fields{"path": path})
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.FileSystemError, "failed to write config file"),
			errors.Fields{"path": path})
	}
	return nil
}

// SearchConfig derives the per-run search parameters.
func (c *Config) SearchConfig() optimize.Config {
	return optimize.Config{
		GenerationSize: c.GA.GenerationSize,
		Genetic: optimize.GeneticConfig{
			MutationFraction:  c.GA.MutationFraction,
			CrossoverFraction: c.GA.CrossoverFraction,
			MutationRate:      c.GA.MutationRate,
			MutationStrength:  c.GA.MutationStrength,
			TournamentSize:    c.GA.TournamentSize,
		},
		Epsilon:   c.Epsilon,
		OutputDir: c.OutputDir,
		Grid:      c.Engine.Grid,
	}
}

// SupervisorConfig derives the pool sizing and polling interval.
func (c *Config) SupervisorConfig() runner.Config {
	return runner.Config{
		Workers:        c.Processes,
		Runs:           c.Repeats,
		ReportInterval: time.Duration(c.ProgressIntervalMinutes) * time.Minute,
	}
}

// CacheSettings derives the evaluation cache configuration.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{
		Type:       c.Cache.Type,
		MaxSize:    c.Cache.MaxSizeBytes,
		DefaultTTL: time.Duration(c.Cache.TTLHours) * time.Hour,
		SQLite: cache.SQLiteConfig{
			Path:      c.Cache.Path,
			EnableWAL: true,
		},
	}
}

// StopFactory derives the per-run stop condition.
func (c *Config) StopFactory() runner.StopFactory {
	maxIters := c.GA.MaxIterations
	epsilon := c.Epsilon
	return func() optimize.StopCondition {
		if maxIters > 0 {
			return optimize.MaxIterations(maxIters)
		}
		return optimize.NewConverged(epsilon, 100)
	}
}
