package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sitewatcher/internal/batch"
)

func newWatchCmd() *cobra.Command {
	opts := &syncOptions{}
	var follow bool

	cmd := &cobra.Command{
		Use:   "watch <resourceVersion> <resourceType>",
		Short: "Process watch batches continuously",
		Long: `Runs batches of <resourceType> one after another, each starting from the
resource version the previous batch reached. A failed batch is logged and
retried from the same resource version after the poll interval. An expired
resource version ends the command with the transport exit code.

Stops on SIGINT or SIGTERM and prints the resource version to resume from.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !follow {
				return runSync(cmd, args[0], args[1], opts)
			}
			return runWatch(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().BoolVar(&follow, "follow", true, "Keep processing batches until interrupted")
	cmd.Flags().BoolVar(&opts.keepStaged, "keep-staged", false, "Keep the staging area of every batch")
	cmd.Flags().StringVar(&opts.payloadFile, "payload-file", "", "Replay a recorded watch response on every batch")
	cmd.Flags().BoolVar(&opts.report, "report", false, "Print a report after every batch")
	return cmd
}

func runWatch(cmd *cobra.Command, resourceVersion, resourceType string, opts *syncOptions) error {
	application, err := newApplication(cmd, opts.keepStaged, opts.payloadFile)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var onReport func(*batch.Report, error)
	if opts.report {
		onReport = func(r *batch.Report, _ error) {
			if r != nil {
				r.Render(cmd.OutOrStdout())
			}
		}
	}

	last, err := application.Follow(ctx, resourceVersion, resourceType, onReport)
	fmt.Fprintf(cmd.OutOrStdout(), "resourceVersion: %s\n", last)
	return err
}
