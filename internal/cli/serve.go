// internal/cli/serve.go

package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pricescout/pricescout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recipe builder API",
	Long: `Serve exposes test-mode extraction and context dumps over HTTP for the
recipe builder, plus health and Prometheus metrics endpoints.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		srv := server.New(cfg.ListenAddr())

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
