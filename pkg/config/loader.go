package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by the loader
const EnvPrefix = "TOPOSPLIT"

// DefaultFile is looked up in the working directory when no config file is given
const DefaultFile = "toposplit.yaml"

// FlagKeys maps configuration keys to the command-line flags bound to them
var FlagKeys = map[string]string{
	"input":                      "input",
	"output":                     "output",
	"object":                     "object",
	"encoding":                   "encoding",
	"workers":                    "workers",
	"filter":                     "filter",
	"indent":                     "indent",
	"dry_run":                    "dry-run",
	"compression.algorithm":      "compression",
	"compression.level":          "compression-level",
	"logging.level":              "log-level",
	"logging.encoding":           "log-encoding",
	"observability.metrics_file": "metrics-file",
	"observability.tracing":      "trace",
	"observability.trace_file":   "trace-file",
}

// Loader assembles a Config from defaults, a file, the environment and flags
type Loader struct {
	v *viper.Viper
}

// NewLoader returns a loader seeded with Default
func NewLoader() *Loader {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("input", d.Input)
	v.SetDefault("output", d.Output)
	v.SetDefault("object", d.Object)
	v.SetDefault("encoding", d.Encoding)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("filter", d.Filter)
	v.SetDefault("indent", d.Indent)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("compression.algorithm", d.Compression.Algorithm)
	v.SetDefault("compression.level", d.Compression.Level)
	v.SetDefault("reorder.output", d.Reorder.Output)
	v.SetDefault("reorder.prefixes", d.Reorder.Prefixes)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.encoding", d.Logging.Encoding)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("observability.metrics_file", d.Observability.MetricsFile)
	v.SetDefault("observability.tracing", d.Observability.Tracing)
	v.SetDefault("observability.trace_file", d.Observability.TraceFile)
}

// BindFlags binds the flags named in keys. Flags absent from flags are skipped.
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").WithDetail("flag", name)
		}
	}
	return nil
}

// Load reads path, or DefaultFile if path is empty and it exists, and
// returns the validated result.
func (l *Loader) Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	switch {
	case err == nil:
		l.v.SetConfigType("yaml")
		if err := l.v.ReadConfig(bytes.NewReader([]byte(substituteEnvVars(string(data))))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file").WithDetail("path", path)
		}
	case explicit || !os.IsNotExist(err):
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").WithDetail("path", path)
	}

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment files. Missing files are ignored; existing
// variables are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return errors.Wrap(err, errors.ErrorTypeConfig, "failed to load env file").WithDetail("path", p)
		}
	}
	return nil
}
