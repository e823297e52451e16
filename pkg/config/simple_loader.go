package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// Render encodes cfg as YAML
func Render(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to marshal YAML")
	}
	return data, nil
}

// Save writes cfg to a YAML file. An existing file is only replaced when
// overwrite is set.
func Save(filePath string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(filePath); err == nil {
			return errors.New(errors.ErrorTypeConfig, "config file already exists").WithDetail("path", filePath)
		}
	}

	data, err := Render(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write config file").WithDetail("path", filePath)
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
