package main

import (
	"fmt"
	"os"

	"github.com/de-tools/site-report/pkg/runtime/app"
	"github.com/de-tools/site-report/pkg/server"
	"github.com/de-tools/site-report/pkg/services/config"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Site Report",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the YAML config file (SITE_REPORT_* variables override it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := cfg.Log.NewLogger(os.Stdout)
	ctx := logger.WithContext(cmd.Context())

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := a.Gateway.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	logger.Info().
		Str("database", cfg.Database.Path).
		Str("blob_backend", cfg.Blob.Backend).
		Dur("undo_window", a.Tracker.Timeout()).
		Msg("configuration loaded")

	webAPI := server.NewWebAPI(logger, server.Config{
		Addr:            cfg.Server.Addr(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Reports:       a.Reports,
			Complaints:    a.Complaints,
			Transcription: a.Transcription,
			Delivery:      a.Delivery,
			Tracker:       a.Tracker,
			Metrics:       a.Metrics,
			Gatherer:      a.Registry,
		},
	})

	return webAPI.Start(ctx)
}
