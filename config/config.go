// Package config loads the daemon configuration file.
//
// Config is YAML; a missing file yields the defaults, so a bare container
// can run the daemon with no configuration at all.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"robolab/internal/observability"
)

// Config is the daemon configuration.
type Config struct {
	// Listen is the control transport address the frontend connects to.
	Listen string `yaml:"listen"`
	// RelayListen is the telemetry relay address. The GUI template dials
	// it directly, so it stays on a fixed well-known port.
	RelayListen string `yaml:"relay_listen"`
	// Workspace roots the worlds/code/binaries directories.
	Workspace string `yaml:"workspace"`
	// DataRoot holds daemon-private state (the session journal).
	DataRoot string `yaml:"data_root"`
	// MiddlewareVersion names the robotics middleware distribution; empty
	// falls back to the ROS_DISTRO environment variable.
	MiddlewareVersion string `yaml:"middleware_version"`
	// LintCommand is the external checker argv; empty disables linting.
	LintCommand []string `yaml:"lint_command"`
	// Docker enables the container backend for world launches.
	Docker bool `yaml:"docker"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Observability observability.Config `yaml:"observability"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Listen:      ":7163",
		RelayListen: "127.0.0.1:2303",
		Workspace:   "/workspace",
		DataRoot:    "/var/lib/robolab",
		LintCommand: []string{"python3", "-m", "pylint", "--disable=all", "--enable=E"},
		LogLevel:    "info",
	}
}

// Load reads the config file at path. A missing file is not an error: the
// defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MiddlewareVersion == "" {
		cfg.MiddlewareVersion = os.Getenv("ROS_DISTRO")
	}
	return cfg, nil
}
