// internal/cli/root.go

// Package cli implements the pricescout command tree.
package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pricescout/pricescout/internal/api"
	"github.com/pricescout/pricescout/internal/auth"
	"github.com/pricescout/pricescout/internal/config"
)

var (
	cfgPath  string
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pricescout",
	Short: "Recipe-driven product data extraction",
	Long: `pricescout extracts structured product and price data from e-commerce
pages using server-authored recipes, and optionally submits the results to
the Price Patrol service.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func setupLogging() error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	level := logLevel
	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

func loadConfig() error {
	if cfgPath == "" {
		cfg = config.Default()
		return nil
	}
	loaded, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg = loaded
	if logLevel == "" && cfg.LogLevel != "" {
		if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	return nil
}

func tokenStore() auth.TokenStore {
	return auth.NewKeyringStore()
}

func newClient() *api.Client {
	httpc := &http.Client{Timeout: cfg.API.Timeout.Std()}
	return api.NewClient(cfg.API.BaseURL, tokenStore(), httpc)
}
