package batch

import (
	"context"
	"fmt"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"

	"sitewatcher/internal/watch"
	"sitewatcher/pkg/logging"
)

const loopSubsystem = "Supervisor"

// Runner runs one batch.
type Runner interface {
	Process(ctx context.Context, resourceVersion, resourceType string) (*Report, error)
}

// Loop re-runs batches, resuming each from the resource version the previous
// successful batch observed.
type Loop struct {
	runner   Runner
	interval time.Duration
	logger   logging.Logger

	// OnReport, when set, receives the report of every batch, failed or not.
	OnReport func(*Report, error)
}

// NewLoop creates a Loop pausing interval between the end of one batch and the start of the next.
func NewLoop(runner Runner, interval time.Duration, logger logging.Logger) *Loop {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Loop{runner: runner, interval: interval, logger: logger}
}

// Run processes batches of resourceType until ctx is cancelled and returns the
// last resource version reached. A failed batch is retried from the version it
// started at. When the API server reports that version as expired Run stops
// and returns the error.
func (l *Loop) Run(ctx context.Context, resourceVersion, resourceType string) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	current := resourceVersion
	failures := 0
	var terminal error

	wait.UntilWithContext(ctx, func(ctx context.Context) {
		report, err := l.runner.Process(ctx, current, resourceType)
		if l.OnReport != nil {
			l.OnReport(report, err)
		}
		if err != nil {
			if watch.IsExpired(err) {
				l.logger.Error(loopSubsystem, err, "resourceVersion %q of %s has expired, restart from a current resourceVersion",
					current, resourceType)
				terminal = fmt.Errorf("cannot resume %s from resourceVersion %q: %w", resourceType, current, err)
				cancel()
				return
			}
			failures++
			l.logger.Warn(loopSubsystem, "Batch failed %d time(s) in a row, retrying from resourceVersion %q in %s",
				failures, current, l.interval)
			return
		}
		failures = 0
		if report != nil && report.ResourceVersion != "" {
			current = report.ResourceVersion
		}
	}, l.interval)

	l.logger.Info(loopSubsystem, "Stopped watching %s at resourceVersion %q", resourceType, current)
	return current, terminal
}
