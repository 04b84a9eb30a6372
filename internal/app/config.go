package app

import (
	"sitewatcher/internal/config"
	"sitewatcher/pkg/logging"
)

// Config holds the application configuration
type Config struct {
	// Debug forces debug logging regardless of the configured level.
	Debug bool

	// LogFormat selects text or json log output.
	LogFormat logging.Format

	// ConfigPath is the directory holding config.yaml (optional).
	ConfigPath string

	// KeepStaged retains each batch's staging area.
	KeepStaged bool

	// PayloadFile replays a recorded watch response instead of watching the cluster.
	PayloadFile string

	// Loaded configuration, set during bootstrap.
	SiteWatcherConfig *config.Config
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		LogFormat:  logging.FormatText,
		ConfigPath: configPath,
	}
}
