// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Tracker    TrackerConfig       `toml:"tracker"`
	Targets    map[string]float64  `toml:"targets"`
	Activities map[string][]string `toml:"activities"`
}

// TrackerConfig maps tracker-related settings.
type TrackerConfig struct {
	GapTolerance    *int    `toml:"gap-tolerance"`
	RevisionCadence []int   `toml:"revision-cadence"`
	ExamDate        *string `toml:"exam-date"`
	Backend         *string `toml:"backend"`
	DataDir         *string `toml:"data-dir"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
