package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	DataDir      string // directory holding settings and segment files
	SettingsFile string // explicit settings file, overrides the lookup in DataDir
	SegmentsFile string // explicit segments file, overrides the lookup in DataDir

	// Database overrides output.database from the settings.
	Database string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

// HasSource reports whether any configuration input was given.
func (c *Config) HasSource() bool {
	return c.DataDir != "" || c.SettingsFile != "" || c.SegmentsFile != ""
}

// NewConfig validates cfg. A config without any source is valid; only the
// commands that need a model refuse it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.DataDir == "" && (cfg.SettingsFile == "") != (cfg.SegmentsFile == "") {
		return nil, errors.New("settings and segments files must be given together without a data directory")
	}
	if cfg.WorkerCount < 0 {
		return nil, errors.New("worker count cannot be negative")
	}
	return &cfg, nil
}
