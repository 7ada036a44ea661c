package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobstreet-scraper/internal/api"
	"github.com/JakeFAU/jobstreet-scraper/internal/app"
	"github.com/JakeFAU/jobstreet-scraper/internal/config"
	"github.com/JakeFAU/jobstreet-scraper/internal/logging"
)

var errFailureThreshold = errors.New("failed page ratio exceeded threshold")

type rootOptions struct {
	configPath string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "jobscraper",
		Short: "Scrapes paginated job listings into a relational store.",
		Long: `jobscraper walks a job board's listing pages in order, extracts every
posting, resolves relative "posted" dates, and writes each page's records to
the configured database in a single transaction.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "keep records in memory instead of writing to the store")
	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	var loadOpts []config.Option
	if opts.dryRun {
		loadOpts = append(loadOpts, config.WithDryRun())
	}
	cfg, err := config.Load(opts.configPath, loadOpts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		File:        cfg.Logging.File,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", zap.Error(err))
		return err
	}
	defer a.Close()

	serverDone := make(chan error, 1)
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	if cfg.Server.Addr != "" {
		server := api.NewServer(a, logger.Named("api"))
		go func() { serverDone <- server.ListenAndServe(serverCtx, cfg.Server.Addr) }()
	} else {
		serverDone <- nil
	}

	summary := a.Run(ctx)

	stopServer()
	if err := <-serverDone; err != nil {
		logger.Warn("status server stopped with error", zap.Error(err))
	}

	if ratio := summary.FailureRatio(); ratio > cfg.Crawler.FailureThreshold {
		logger.Error("too many failed pages",
			zap.Float64("failure_ratio", ratio),
			zap.Float64("threshold", cfg.Crawler.FailureThreshold),
		)
		return fmt.Errorf("%w: %d of %d pages failed", errFailureThreshold, summary.Failed, summary.Done+summary.Failed)
	}
	return nil
}
