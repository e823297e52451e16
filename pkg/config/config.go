// Package config provides the configuration of toposplit runs.
//
// A Config is assembled in layers, later layers winning:
//
//   - built-in defaults (Default)
//   - a YAML file, with ${VAR_NAME} references substituted from the environment
//   - TOPOSPLIT_* environment variables, including those loaded from .env
//   - command-line flags bound through BindFlags
//
// Example usage:
//
//	loader := config.NewLoader()
//	if err := loader.BindFlags(cmd.Flags(), config.FlagKeys); err != nil {
//	    return err
//	}
//	cfg, err := loader.Load(configPath)
//	if err != nil {
//	    return err
//	}
package config

import (
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/ajitpratap0/toposplit/pkg/compression"
	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

// Config is the complete configuration of a run
type Config struct {
	// Input is the nationwide topology file
	Input string `mapstructure:"input" yaml:"input"`
	// Output is the directory receiving one file per state
	Output string `mapstructure:"output" yaml:"output"`
	// Object names the geometry collection to partition
	Object string `mapstructure:"object" yaml:"object"`
	// Encoding selects how negative arc references are read ("signed" or "complement")
	Encoding string `mapstructure:"encoding" yaml:"encoding"`
	// Filter is an optional expression selecting the states to emit
	Filter string `mapstructure:"filter" yaml:"filter"`
	// Indent pretty-prints outputs when non-empty
	Indent string `mapstructure:"indent" yaml:"indent"`
	// Workers bounds how many states are emitted concurrently
	Workers int `mapstructure:"workers" yaml:"workers"`
	// DryRun runs every stage but stores nothing
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	Compression   CompressionConfig   `mapstructure:"compression" yaml:"compression"`
	Reorder       ReorderConfig       `mapstructure:"reorder" yaml:"reorder"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability" yaml:"observability"`
}

// CompressionConfig controls output compression
type CompressionConfig struct {
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
	Level     int    `mapstructure:"level" yaml:"level"`
}

// ReorderConfig controls the reorder command
type ReorderConfig struct {
	Output   string   `mapstructure:"output" yaml:"output"`
	Prefixes []string `mapstructure:"prefixes" yaml:"prefixes"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// ObservabilityConfig controls metrics and tracing output
type ObservabilityConfig struct {
	// MetricsFile receives the Prometheus text exposition after a run
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	// Tracing enables span export
	Tracing bool `mapstructure:"tracing" yaml:"tracing"`
	// TraceFile receives exported spans; empty means stdout
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Input:    "counties-10m.json",
		Output:   "state_topojsons",
		Object:   "counties",
		Encoding: "signed",
		Workers:  1,
		Compression: CompressionConfig{
			Algorithm: string(compression.None),
			Level:     int(compression.Default),
		},
		Reorder: ReorderConfig{
			Output:   "counties-reordered.json",
			Prefixes: []string{"17", "19"},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New(errors.ErrorTypeConfig, "input path is required")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New(errors.ErrorTypeConfig, "output directory is required")
	}
	if strings.TrimSpace(c.Object) == "" {
		return errors.New(errors.ErrorTypeConfig, "object name is required")
	}
	if c.Workers < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "workers must be at least 1, got %d", c.Workers)
	}
	if _, err := topology.ParseEncoding(c.Encoding); err != nil {
		return err
	}
	if strings.Trim(c.Indent, " \t") != "" {
		return errors.Newf(errors.ErrorTypeConfig, "indent must be spaces or tabs, got %q", c.Indent)
	}

	if _, err := compression.Parse(c.Compression.Algorithm); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid compression")
	}
	if c.Compression.Level < int(compression.Fastest) || c.Compression.Level > int(compression.Best) {
		return errors.Newf(errors.ErrorTypeConfig, "compression level must be between %d and %d, got %d",
			compression.Fastest, compression.Best, c.Compression.Level)
	}

	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid log level")
	}
	switch c.Logging.Encoding {
	case "", "console", "json":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "log encoding must be console or json, got %q", c.Logging.Encoding)
	}

	return nil
}

// RefEncoding returns the parsed arc reference encoding
func (c *Config) RefEncoding() topology.RefEncoding {
	enc, err := topology.ParseEncoding(c.Encoding)
	if err != nil {
		return topology.Signed
	}
	return enc
}

// CompressionAlgorithm returns the parsed output compression
func (c *Config) CompressionAlgorithm() compression.Algorithm {
	a, err := compression.Parse(c.Compression.Algorithm)
	if err != nil {
		return compression.None
	}
	return a
}
