package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sitewatcher/internal/config"
	"sitewatcher/internal/ztperrors"
	"sitewatcher/pkg/logging"
)

// Exit codes for CLI commands.
// Batch failures map to one code per error kind so callers can decide whether to retry.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid arguments, configuration, bootstrap).
	ExitCodeError = 1
	// ExitCodeTransport indicates a watch, apply or delete call failed.
	ExitCodeTransport = 2
	// ExitCodeData indicates a malformed watch payload or missing metadata.
	ExitCodeData = 3
	// ExitCodeReconciliation indicates live policies could not be compared or updated.
	ExitCodeReconciliation = 4
	// ExitCodeExternalTool indicates the policy renderer reported diagnostics.
	ExitCodeExternalTool = 5
)

// Persistent flags shared by every command.
var (
	configPath string
	debug      bool
	logFormat  string
)

// rootCmd represents the base command for the sitewatcher application.
var rootCmd = &cobra.Command{
	Use:   "sitewatcher",
	Short: "Turn site and policy template changes into cluster state",
	Long: `sitewatcher consumes bounded watch batches of SiteConfig or PolicyGenTemplate
resources, renders the changed objects into manifests and policies, applies
only what is missing and removes what no longer belongs.

Deleting a SiteConfig removes the ManagedCluster and Namespace of its site.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sitewatcher version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
func getExitCode(err error) int {
	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeError
	}

	switch ztperrors.KindOf(err) {
	case ztperrors.KindTransport:
		return ExitCodeTransport
	case ztperrors.KindData:
		return ExitCodeData
	case ztperrors.KindReconciliation:
		return ExitCodeReconciliation
	case ztperrors.KindExternalTool:
		return ExitCodeExternalTool
	}

	// Default to general error
	return ExitCodeError
}

// parseLogFormat validates the --log-format flag.
func parseLogFormat(s string) (logging.Format, error) {
	switch logging.Format(s) {
	case logging.FormatText, logging.FormatJSON:
		return logging.Format(s), nil
	default:
		return "", fmt.Errorf("unsupported log format %q (expected text or json)", s)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newWatchCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory containing config.yaml (default ~/.config/sitewatcher)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "Log output format: text or json")
}
