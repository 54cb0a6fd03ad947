package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/cookcut/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		watch bool
		addr  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer c.Close()
			if watch {
				_, w, err := startDatasetWatch(ctx, c, c.Config.Dataset.Path, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				defer w.Stop()
			}

			srv := server.NewServer(c.Engine, c.Catalog, c.Store, c.Config, c.Logger,
				server.WithMetrics(c.Metrics), server.WithAddr(addr))
			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			c.Logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				c.Logger.Warn("server shutdown", zap.Error(err))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "re-ingest the dataset file when it changes")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.host:server.port)")
	return cmd
}
