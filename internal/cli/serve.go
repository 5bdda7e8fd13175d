package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/linkhoard/linkhoard/internal/jobs"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server and periodic jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go a.runPeriodic(ctx, jobs.Backfill, a.cfg.Jobs.BackfillInterval)
			go a.runPeriodic(ctx, jobs.Reclassify, a.cfg.Jobs.ReclassifyInterval)
			go a.runPeriodic(ctx, jobs.Cleanup, a.cfg.Jobs.CleanupInterval)
			if a.reconciler != nil {
				go a.runPeriodic(ctx, jobs.Sync, a.cfg.Jobs.SyncInterval)
			}

			srv := &http.Server{
				Addr:    addr,
				Handler: a.serveHandler().Handler(),
			}
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("listening", "addr", addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}
