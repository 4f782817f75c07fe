package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one aggregation pass and exit",
	Long:  "Fetches all enabled sources once, scores and stores the results, and sends alerts.",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "do not persist anything, log matches only")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordStore, err := setupStore(ctx, cfg, dryRun, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer recordStore.Close()

	httpClient := newHTTPClient()
	n := setupNotifier(cfg, httpClient, logger)

	runner, err := buildRunner(cfg, recordStore, n, httpClient, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("run failed", "run_id", report.RunID, "error", err)
		os.Exit(1)
	}

	for _, sr := range report.Sources {
		if sr.Err != nil || sr.Skipped {
			logger.Warn("source did not complete",
				"source", sr.Source, "skipped", sr.Skipped, "reason", sr.SkipReason, "error", sr.Err)
		}
	}
	return nil
}
