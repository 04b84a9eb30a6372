package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"sitewatcher/pkg/logging"
)

const (
	userConfigDir  = ".config/sitewatcher"
	configFileName = "config.yaml"
)

// osUserHomeDir is a variable to allow mocking in tests
var osUserHomeDir = os.UserHomeDir

// DefaultConfigPath returns ~/.config/sitewatcher.
func DefaultConfigPath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of DefaultConfig and validates the result.
// A missing file yields the defaults, which still have to validate.
func LoadConfig(configPath string, logger logging.Logger) (Config, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	configFilePath := filepath.Join(configPath, configFileName)
	config := DefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("ConfigLoader", "No config.yaml found at %s, using defaults", configFilePath)
			if err := config.Validate(); err != nil {
				return Config{}, NewConfigurationError(configFilePath, "validation", err.Error(), "defaults need a config.yaml")
			}
			return config, nil
		}
		return Config{}, NewConfigurationError(configFilePath, "io", "cannot read configuration file", err.Error())
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "parse", "malformed configuration file", err.Error())
	}

	if err := config.Validate(); err != nil {
		return Config{}, NewConfigurationError(configFilePath, "validation", err.Error(), "")
	}

	logger.Debug("ConfigLoader", "Loaded configuration from %s", configFilePath)
	return config, nil
}
