package app

import (
	"context"
	"fmt"
	"io"

	"sitewatcher/internal/batch"
	"sitewatcher/internal/config"
	"sitewatcher/pkg/logging"
)

// Application represents the bootstrapped site watcher.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, build services
//  2. Execution phase: run one batch or supervise batches
//
// Example usage:
//
//	cfg := app.NewConfig(false, "")
//	application, err := app.NewApplication(cfg, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	report, err := application.RunOnce(ctx, "0", "siteconfigs")
type Application struct {
	config   *Config
	services *Services
	logger   logging.Logger
}

// NewApplication loads configuration, configures logging to logOutput and
// initializes the batch services.
func NewApplication(cfg *Config, logOutput io.Writer) (*Application, error) {
	configPath := cfg.ConfigPath
	if configPath == "" {
		var err error
		configPath, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	// Logging is reconfigured once the configured level is known.
	bootLevel := logging.LevelInfo
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logger := logging.NewWithFormat(bootLevel, logOutput, cfg.LogFormat)

	swCfg, err := config.LoadConfig(configPath, logger)
	if err != nil {
		logger.Error("Bootstrap", err, "Failed to load configuration from %s", configPath)
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	if cfg.KeepStaged {
		swCfg.Staging.Keep = true
	}
	cfg.SiteWatcherConfig = &swCfg

	level := logging.ParseLevel(swCfg.LogLevel)
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logger = logging.NewWithFormat(level, logOutput, cfg.LogFormat)
	logging.BridgeControllerRuntime(logger)

	services, err := InitializeServices(cfg, logger)
	if err != nil {
		logger.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{config: cfg, services: services, logger: logger}, nil
}

// RunOnce runs a single batch.
func (a *Application) RunOnce(ctx context.Context, resourceVersion, resourceType string) (*batch.Report, error) {
	return a.services.Processor.Process(ctx, resourceVersion, resourceType)
}

// Follow supervises batches until ctx is cancelled, the process is signalled or
// the resource version expires. onReport receives every batch report.
func (a *Application) Follow(ctx context.Context, resourceVersion, resourceType string, onReport func(*batch.Report, error)) (string, error) {
	return runSupervised(ctx, a.config, a.services, a.logger, resourceVersion, resourceType, onReport)
}

// Metrics returns the batch metrics collected so far.
func (a *Application) Metrics() batch.MetricsSummary {
	return a.services.Processor.Metrics().Summary()
}
