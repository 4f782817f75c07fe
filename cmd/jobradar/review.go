package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/review"
)

var reviewLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Browse stored jobs in an interactive TUI",
	Long:  "Opens a split-pane terminal browser over the most recent stored jobs.",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewLimit, "limit", 200, "maximum number of jobs to load")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	recordStore, err := setupStore(context.Background(), cfg, false, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer recordStore.Close()

	jobs, err := review.RunLoader(func() ([]model.Job, error) {
		return recordStore.RecentJobs(reviewLimit)
	})
	if err != nil {
		logger.Error("failed to load jobs", "error", err)
		os.Exit(1)
	}
	if len(jobs) == 0 {
		logger.Info("store is empty, run `jobradar run` first")
		return nil
	}

	return review.Run(jobs, cfg.Scoring.AlertThreshold)
}
