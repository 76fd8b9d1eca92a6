package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/AlmasAtaman/gpu-compute-simulator/internal/device"
)

// Config represents the gpusim configuration file
// (~/.config/gpusim/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	ComputeUnits *int64 `yaml:"compute_units"`
	Scheduler    string `yaml:"scheduler"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gpusim", "config.yaml")
}

// loadConfig reads the config file if present. A missing file is not an
// error.
func loadConfig() (Config, error) {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig fills flag variables from the config file when the
// corresponding CLI flag was not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.ComputeUnits != nil && !c.IsSet("compute-units") {
		computeUnits = *cfg.ComputeUnits
	}
	if cfg.Scheduler != "" && !c.IsSet("scheduler") {
		schedulerName = cfg.Scheduler
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// deviceConfig resolves the device configuration for a scenario: the
// profile file if one is given, otherwise the defaults with the scenario's
// CU count; a non-zero --compute-units overrides either.
func deviceConfig(scenarioCUs int) (device.Config, error) {
	cfg := device.DefaultConfig()

	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return cfg, fmt.Errorf("read device profile %s: %w", profilePath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse device profile %s: %w", profilePath, err)
		}
	}

	if scenarioCUs > 0 && profilePath == "" {
		cfg.NumComputeUnits = scenarioCUs
	}
	if computeUnits > 0 {
		cfg.NumComputeUnits = int(computeUnits)
	}
	return cfg, nil
}
