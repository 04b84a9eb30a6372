// Package logging provides the structured logging capability used across the
// site watcher.
//
// It is built on Go's standard slog package. There is no package-level logger:
// a Logger is created once at process start and passed to each component, which
// tags its entries with its own subsystem name.
//
// # Log Levels
//   - Debug: staged paths, matched policies, command lines
//   - Info: batch progress and summaries
//   - Warn: conditions that do not fail a batch
//   - Error: batch failures
//
// # Usage
//
//	logger := logging.New(logging.LevelInfo, os.Stderr)
//	logger = logger.With("batch", batchID)
//	logger.Info("Classifier", "Staged %d updates", n)
//	logger.Error("Batch", err, "Batch failed")
//
// # Controller-Runtime Integration
//
// BridgeControllerRuntime routes controller-runtime and client-go log output
// through the same slog handler, so cluster client warnings end up next to the
// batch diagnostics instead of triggering the "log.SetLogger(...) was never
// called" warning.
package logging
