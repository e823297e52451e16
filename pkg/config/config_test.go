package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/toposplit/pkg/compression"
	"github.com/ajitpratap0/toposplit/pkg/errors"
	"github.com/ajitpratap0/toposplit/pkg/topology"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "counties-10m.json", cfg.Input)
	assert.Equal(t, "state_topojsons", cfg.Output)
	assert.Equal(t, "counties", cfg.Object)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, int(compression.Default), cfg.Compression.Level)
	assert.Equal(t, topology.Signed, cfg.RefEncoding())
	assert.Equal(t, compression.None, cfg.CompressionAlgorithm())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.Input = " " }},
		{"no output", func(c *Config) { c.Output = "" }},
		{"no object", func(c *Config) { c.Object = "" }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero level", func(c *Config) { c.Compression.Level = 0 }},
		{"bad encoding", func(c *Config) { c.Encoding = "ones" }},
		{"bad indent", func(c *Config) { c.Indent = "xx" }},
		{"bad compression", func(c *Config) { c.Compression.Algorithm = "brotli" }},
		{"bad level", func(c *Config) { c.Compression.Level = 12 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log encoding", func(c *Config) { c.Logging.Encoding = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
		})
	}
}

func TestLoaderLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toposplit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input: ${TOPOSPLIT_TEST_INPUT}
compression:
  algorithm: zstd
  level: 7
logging:
  level: debug
`), 0o644))

	t.Setenv("TOPOSPLIT_TEST_INPUT", "/data/counties.json.gz")
	t.Setenv("TOPOSPLIT_COMPRESSION_LEVEL", "9")
	t.Setenv("TOPOSPLIT_LOGGING_LEVEL", "warn")

	flags := pflag.NewFlagSet("split", pflag.ContinueOnError)
	flags.String("output", "state_topojsons", "")
	flags.Int("compression-level", 5, "")
	require.NoError(t, flags.Parse([]string{"--output", "out"}))

	loader := NewLoader()
	require.NoError(t, loader.BindFlags(flags, FlagKeys))

	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/counties.json.gz", cfg.Input, "file with substitution")
	assert.Equal(t, "out", cfg.Output, "changed flag")
	assert.Equal(t, 9, cfg.Compression.Level, "env beats file and unchanged flag")
	assert.Equal(t, "warn", cfg.Logging.Level, "nested env key")
	assert.Equal(t, "zstd", cfg.Compression.Algorithm, "file")
	assert.Equal(t, "counties", cfg.Object, "default")
	assert.Equal(t, []string{"17", "19"}, cfg.Reorder.Prefixes, "default slice")
}

func TestLoaderWithoutFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = NewLoader().Load("missing.yaml")
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestLoaderRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("compression:\n  level: 0\n"), 0o644))

	_, err := NewLoader().Load(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))

	require.NoError(t, os.WriteFile(path, []byte("object: [\n"), 0o644))
	_, err = NewLoader().Load(path)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSaveAndRender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "toposplit.yaml")
	cfg := Default()
	cfg.Filter = `code == "17"`

	require.NoError(t, Save(path, cfg, false))
	assert.True(t, errors.IsType(Save(path, cfg, false), errors.ErrorTypeConfig), "refuses to overwrite")
	require.NoError(t, Save(path, cfg, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, cfg, &back)

	loaded, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, `code == "17"`, loaded.Filter)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TOPOSPLIT_DOTENV_PROBE=from-file\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("TOPOSPLIT_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("TOPOSPLIT_DOTENV_PROBE"))
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TOPOSPLIT_A", "x")
	assert.Equal(t, "a=x b= c=${unterminated", substituteEnvVars("a=${TOPOSPLIT_A} b=${TOPOSPLIT_UNSET} c=${unterminated"))
}
