// Package config handles bmtool configuration loading.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all bmtool settings.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Optimize OptimizeConfig `yaml:"optimize"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// OptimizeConfig holds default optimization settings.
type OptimizeConfig struct {
	// InstanceThreshold is the minimum group size to batch; 0 selects the
	// adaptive default.
	InstanceThreshold int `yaml:"instance_threshold"`
	// Aggressive enables the aggressive instancing strategy.
	Aggressive bool `yaml:"aggressive"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Optimize: OptimizeConfig{
			InstanceThreshold: 0,
			Aggressive:        false,
		},
	}
}

// Load loads configuration from the given file over the defaults. An empty
// path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
