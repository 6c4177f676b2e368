// Package config loads server configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the server configuration.
type Config struct {
	ListenAddr            string `toml:"listen_addr"`
	DataDir               string `toml:"data_dir"`
	StaticDir             string `toml:"static_dir"`
	EvaluationIntervalMin int    `toml:"evaluation_interval_min"`
}

// Default returns the built-in configuration defaults.
func Default() Config {
	return Config{
		ListenAddr:            ":8090",
		DataDir:               "./data",
		StaticDir:             "./static",
		EvaluationIntervalMin: 1,
	}
}

// Load reads the configuration file at path. Fields absent from the file
// keep their defaults; a missing file yields the defaults. A malformed
// file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.EvaluationIntervalMin <= 0 {
		cfg.EvaluationIntervalMin = Default().EvaluationIntervalMin
	}

	return cfg, nil
}
