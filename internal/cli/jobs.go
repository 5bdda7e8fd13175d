package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/jobs"
)

// NewJobCommands creates one command per background job. Manual runs surface
// errors to the caller; a held lease prints "skipped" and exits zero.
func NewJobCommands(rootOpts *RootOptions) []*cobra.Command {
	return []*cobra.Command{
		newBatchJobCommand(rootOpts, jobs.Backfill, "Recompute missing or stale embeddings"),
		newReclassifyCommand(rootOpts),
		newPlainJobCommand(rootOpts, jobs.Cleanup, "Purge trashed bookmarks past retention"),
		newPlainJobCommand(rootOpts, jobs.Sync, "Reconcile with the remote backend"),
	}
}

func runJob(cmd *cobra.Command, run func(ctx context.Context) (jobs.Result, error)) error {
	res, err := run(cmd.Context())
	if errors.Is(err, jobs.ErrNotAcquired) {
		fmt.Fprintln(cmd.OutOrStdout(), "skipped: another run is in flight")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "processed=%d updated=%d skipped=%d failed=%d",
		res.Processed, res.Updated, res.Skipped, res.Failed)
	if res.Completed {
		fmt.Fprint(cmd.OutOrStdout(), " completed")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func newBatchJobCommand(rootOpts *RootOptions, id jobs.ID, short string) *cobra.Command {
	var (
		limit       int
		delayMs     int
		resetCursor bool
	)

	cmd := &cobra.Command{
		Use:   string(id),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := jobs.Options{
				Limit:       limit,
				Delay:       time.Duration(delayMs) * time.Millisecond,
				ResetCursor: resetCursor,
			}
			return runJob(cmd, func(ctx context.Context) (jobs.Result, error) {
				return a.runner.Run(ctx, id, opts)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max items this run (default 100)")
	cmd.Flags().IntVar(&delayMs, "delay-ms", 0, "throttle delay between sub-batches")
	cmd.Flags().BoolVar(&resetCursor, "reset-cursor", false, "restart from the beginning")
	return cmd
}

func newReclassifyCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		limit       int
		delayMs     int
		resetCursor bool
		all         bool
	)

	cmd := &cobra.Command{
		Use:   string(jobs.Reclassify),
		Short: "Assign categories and tags to unclassified bookmarks",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := jobs.Options{
				Limit:       limit,
				Delay:       time.Duration(delayMs) * time.Millisecond,
				ResetCursor: resetCursor,
			}
			return runJob(cmd, func(ctx context.Context) (jobs.Result, error) {
				if all {
					return a.runner.ReclassifyAll(ctx, opts)
				}
				return a.runner.Reclassify(ctx, opts)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "max items per batch (default 100)")
	cmd.Flags().IntVar(&delayMs, "delay-ms", 0, "throttle delay between sub-batches")
	cmd.Flags().BoolVar(&resetCursor, "reset-cursor", false, "restart from the beginning")
	cmd.Flags().BoolVar(&all, "all", false, "loop until every candidate is classified")
	return cmd
}

func newPlainJobCommand(rootOpts *RootOptions, id jobs.ID, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(id),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			return runJob(cmd, func(ctx context.Context) (jobs.Result, error) {
				return a.runner.Run(ctx, id, jobs.Options{})
			})
		},
	}
}
