package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lisanmuaddib/lot-ingest/internal/ingestconfig"
	"github.com/lisanmuaddib/lot-ingest/pkg/db"
	"github.com/lisanmuaddib/lot-ingest/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ingest",
		Short:         "Auction lot ingestion and enrichment",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", os.Getenv("LOG_FORMAT"), "log format (text, json)")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run scraping, enrichment and outcome tracking until interrupted",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "crawl-status",
			Short: "Refresh trade outcomes for every bidding awaiting results once",
			RunE: func(cmd *cobra.Command, args []string) error {
				return crawlStatus(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "classify LOT_ID...",
			Short: "Classify the given lots immediately",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return classifyLots(cmd.Context(), args)
			},
		},
		&cobra.Command{
			Use:   "migrate-status",
			Short: "Print the applied schema migration version",
			RunE: func(cmd *cobra.Command, args []string) error {
				return migrateStatus()
			},
		},
	)
	return root
}

func newLogger() (*logrus.Logger, error) {
	return logging.New(logLevel, logging.Format(logFormat))
}

// build assembles the app and returns a context cancelled on SIGINT or SIGTERM
func build(parent context.Context) (*ingestconfig.App, context.Context, context.CancelFunc, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	config, err := ingestconfig.NewConfig(log)
	if err != nil {
		return nil, nil, nil, err
	}
	app, err := ingestconfig.Build(config)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := context.WithCancel(parent)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
			log.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
	return app, ctx, cancel, nil
}

func runPipeline(parent context.Context) error {
	app, ctx, cancel, err := build(parent)
	if err != nil {
		return err
	}
	defer cancel()
	defer app.Close()

	log := app.Logger()
	log.WithField("tasks", app.Runner.Names()).Info("Starting ingestion pipeline")

	if err := app.Runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("pipeline stopped: %w", err)
	}

	log.Info("Pipeline shutdown complete")
	return nil
}

func crawlStatus(parent context.Context) error {
	app, ctx, cancel, err := build(parent)
	if err != nil {
		return err
	}
	defer cancel()
	defer app.Close()

	return app.StatusJob.RunOnce(ctx)
}

func classifyLots(parent context.Context, lotIDs []string) error {
	app, ctx, cancel, err := build(parent)
	if err != nil {
		return err
	}
	defer cancel()
	defer app.Close()

	summary, err := app.Classifier.ClassifyBatch(ctx, lotIDs, "manual")
	if err != nil {
		return err
	}
	app.Logger().WithFields(logrus.Fields{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"skipped":   summary.Skipped,
	}).Info("Manual classification finished")
	return nil
}

func migrateStatus() error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	config, err := db.NewConfig()
	if err != nil {
		return err
	}
	version, dirty, err := db.MigrationStatus(config, log)
	if err != nil {
		return err
	}
	fmt.Printf("version=%d dirty=%t\n", version, dirty)
	return nil
}
