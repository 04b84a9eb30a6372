package app

import (
	"context"
	"os/signal"
	"syscall"

	"sitewatcher/internal/batch"
	"sitewatcher/pkg/logging"
)

// runSupervised runs batches until ctx is cancelled or SIGINT/SIGTERM arrives.
// It returns the last resource version reached so the caller can report where
// a restart should resume, and an error when that version has expired.
func runSupervised(ctx context.Context, cfg *Config, services *Services, logger logging.Logger,
	resourceVersion, resourceType string, onReport func(*batch.Report, error)) (string, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := cfg.SiteWatcherConfig.Watch.PollInterval
	logger.Info("Supervisor", "Watching %s every %s starting at resourceVersion %q. Press Ctrl+C to stop.",
		resourceType, interval, resourceVersion)

	loop := batch.NewLoop(services.Processor, interval, logger)
	loop.OnReport = onReport
	last, err := loop.Run(ctx, resourceVersion, resourceType)

	summary := services.Processor.Metrics().Summary()
	logger.Info("Supervisor", "Ran %d batches, %d failed", summary.TotalAttempts, summary.TotalFailures)
	return last, err
}
