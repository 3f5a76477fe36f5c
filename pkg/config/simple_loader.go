package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/nebula-agent/pkg/nebulaerrors"
)

// LoadJobProfile loads a job profile from a YAML, JSON or properties file.
// ${VAR_NAME} references are replaced with environment values before parsing.
func LoadJobProfile(filePath string) (*JobProfile, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to read job file").
			WithDetail("path", filePath)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(filePath)), ".")
	switch format {
	case "yml":
		format = "yaml"
	case "yaml", "json", "properties", "props", "toml":
	default:
		return nil, nebulaerrors.New(nebulaerrors.ErrorTypeConfig, "unsupported job file format").
			WithDetail("path", filePath)
	}

	return ParseJobProfile([]byte(substituteEnvVars(string(data))), format)
}

// ParseJobProfile parses profile content in the given viper format.
func ParseJobProfile(content []byte, format string) (*JobProfile, error) {
	p := NewJobProfile()
	p.v.SetConfigType(format)
	if err := p.v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, nebulaerrors.Wrap(err, nebulaerrors.ErrorTypeConfig, "failed to parse job file").
			WithDetail("format", format)
	}
	return p, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
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

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
