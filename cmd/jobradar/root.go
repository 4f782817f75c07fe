package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobradar/internal/adapter"
	"github.com/amishk599/jobradar/internal/config"
	"github.com/amishk599/jobradar/internal/dedup"
	"github.com/amishk599/jobradar/internal/fetch"
	"github.com/amishk599/jobradar/internal/ghost"
	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/normalize"
	"github.com/amishk599/jobradar/internal/notifier"
	"github.com/amishk599/jobradar/internal/pipeline"
	"github.com/amishk599/jobradar/internal/ratelimit"
	"github.com/amishk599/jobradar/internal/score"
	"github.com/amishk599/jobradar/internal/store"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobradar",
	Short: "Job aggregation radar — one deduplicated, scored feed from many boards",
	Long: "JobRadar pulls listings from job boards and career pages, merges the\n" +
		"duplicates, scores every posting against your preferences, and flags\n" +
		"likely ghost listings.",
	// Default to `run` so `jobradar` with no args does one aggregation pass.
	RunE: runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBRADAR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBRADAR_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupStore(ctx context.Context, cfg *config.Config, dryRun bool, logger *slog.Logger) (model.RecordStore, error) {
	if dryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		return store.NewNopStore(), nil
	}

	switch cfg.Store.Backend {
	case "postgres":
		return store.NewPostgresStore(ctx, cfg.Store.DatabaseURL)
	case "nop":
		return store.NewNopStore(), nil
	default:
		return store.NewSQLiteStore(cfg.Store.Path)
	}
}

// buildAdapter maps one source config entry to its adapter.
func buildAdapter(src config.SourceConfig, httpClient *http.Client, logger *slog.Logger) (model.SourceAdapter, bool) {
	switch src.Kind {
	case "greenhouse":
		return adapter.NewGreenhouseAdapter(src.BoardToken, src.Name, httpClient), true
	case "lever":
		return adapter.NewLeverAdapter(src.BoardToken, src.Name, httpClient), true
	case "ashby":
		return adapter.NewAshbyAdapter(src.BoardToken, src.Name, httpClient), true
	case "jsonld":
		return adapter.NewJSONLDAdapter(src.URL, src.Name, src.Name, httpClient), true
	case "html":
		return adapter.NewHTMLBoardAdapter(src.URL, src.Name, src.Name, httpClient), true
	case "rss":
		return adapter.NewRSSBoardAdapter(src.URL, src.Name), true
	default:
		logger.Warn("unsupported source kind, skipping", "source", src.Name, "kind", src.Kind)
		return nil, false
	}
}

// buildRunner wires every stage from the config.
func buildRunner(cfg *config.Config, recordStore model.RecordStore, n model.Notifier, httpClient *http.Client, logger *slog.Logger) (*pipeline.Runner, error) {
	var adapters []model.SourceAdapter
	overrides := make(map[string]ratelimit.Setting)

	for _, src := range cfg.Sources {
		if !src.Enabled {
			continue
		}
		a, ok := buildAdapter(src, httpClient, logger)
		if !ok {
			continue
		}
		adapters = append(adapters, a)
		if src.RPS > 0 || src.Burst > 0 {
			overrides[a.Name()] = ratelimit.Setting{RPS: src.RPS, Burst: src.Burst}
		}
		logger.Info("registered source", "source", a.Name(), "kind", src.Kind)
	}

	limiter := ratelimit.NewSourceLimiter(
		ratelimit.Setting{RPS: cfg.Pipeline.RateRPS, Burst: cfg.Pipeline.RateBurst},
		overrides,
	)

	orch, err := fetch.New(adapters, limiter, recordStore, fetch.Options{
		Workers:          cfg.Pipeline.Workers,
		CallTimeout:      cfg.Pipeline.CallTimeout,
		MaxRetries:       cfg.Pipeline.MaxRetries,
		RetryBaseDelay:   cfg.Pipeline.RetryBaseDelay,
		BreakerThreshold: cfg.Pipeline.BreakerThreshold,
		BreakerCooldown:  cfg.Pipeline.BreakerCooldown,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("building fetch orchestrator: %w", err)
	}

	runner := pipeline.NewRunner(
		orch,
		normalize.NewNormalizer(logger, nil),
		dedup.NewDeduplicator(0),
		score.NewEngine(cfg.Scoring, nil),
		ghost.NewDetector(nil),
		recordStore,
		n,
		pipeline.Options{
			Query: model.Query{
				Keywords:  cfg.Query.Keywords,
				Locations: cfg.Query.Locations,
			},
			AlertThreshold: cfg.Scoring.AlertThreshold,
			RunDeadline:    cfg.Pipeline.RunDeadline,
		},
		logger,
	)
	return runner, nil
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}
