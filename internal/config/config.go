// Package config loads the optional runcmd.yaml file that supplies
// defaults for the run command.
package config

import (
	"os"

	rcerrors "github.com/systmms/runcmd/internal/errors"
	"github.com/systmms/runcmd/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up in the working
// directory when --config is not given.
const DefaultPath = "runcmd.yaml"

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the runcmd.yaml structure
type Definition struct {
	Version     int               `yaml:"version"`
	Dir         string            `yaml:"dir,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	LogCommands bool              `yaml:"logCommands,omitempty"`
	Metrics     MetricsConfig     `yaml:"metrics,omitempty"`
}

// MetricsConfig controls the optional Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Path    string `yaml:"path,omitempty"`
}

// Load reads and parses the runcmd.yaml file. A missing file at the
// default path is not an error: the command then runs with built-in
// defaults. A missing file at an explicitly requested path is.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			if c.Path == DefaultPath {
				c.Definition = &Definition{}
				return nil
			}
			return rcerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Check the --config path, or omit the flag to run without a configuration file",
			}
		}
		return rcerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return rcerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if def.Version != 0 {
		return rcerrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your runcmd.yaml file",
		}
	}

	for name := range def.Env {
		if name == "" {
			return rcerrors.ConfigError{
				Field:      "env",
				Message:    "environment variable names must not be empty",
				Suggestion: "Remove the empty key from the 'env:' section",
			}
		}
	}

	c.Definition = &def
	return nil
}

// MetricsPath returns the endpoint path, defaulting to /metrics.
func (m MetricsConfig) MetricsPath() string {
	if m.Path == "" {
		return "/metrics"
	}
	return m.Path
}

// MetricsPort returns the listen port, defaulting to 9090.
func (m MetricsConfig) MetricsPort() int {
	if m.Port <= 0 {
		return 9090
	}
	return m.Port
}
