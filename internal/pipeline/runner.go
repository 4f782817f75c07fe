// Package pipeline composes one full aggregation run:
// fetch → normalize → dedup → history merge → score → ghost → persist → notify.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobradar/internal/fetch"
	"github.com/amishk599/jobradar/internal/model"
)

// Fetcher is the fetch stage. Satisfied by *fetch.Orchestrator.
type Fetcher interface {
	Fetch(ctx context.Context, q model.Query) fetch.Result
}

// Normalizer is the normalize stage.
type Normalizer interface {
	Normalize(listings []model.RawListing) ([]model.Job, int)
}

// Deduplicator is the dedup stage.
type Deduplicator interface {
	Dedup(jobs []model.Job) ([]model.Job, []model.DuplicateGroup)
}

// Scorer ranks jobs in place.
type Scorer interface {
	ScoreAll(jobs []model.Job)
}

// GhostDetector flags suspicious jobs in place.
type GhostDetector interface {
	DetectAll(jobs []model.Job)
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	Sources []fetch.SourceReport

	Fetched  int // raw listings across all sources
	Dropped  int // malformed listings dropped during normalization
	Filtered int // drafts that missed the configured keyword/location query
	Deduped  int // records after dedup
	Merged   int // fuzzy duplicate groups formed
	Alerts   int // jobs that crossed the alert threshold
	Degraded bool
}

// Runner wires the stages together. Stage components are interfaces so tests
// can substitute fakes for any of them.
type Runner struct {
	fetcher        Fetcher
	normalizer     Normalizer
	dedup          Deduplicator
	scorer         Scorer
	ghosts         GhostDetector
	store          model.RecordStore
	notifier       model.Notifier
	query          model.Query
	alertThreshold float64
	runDeadline    time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// Options configures a Runner.
type Options struct {
	Query          model.Query
	AlertThreshold float64
	RunDeadline    time.Duration // 0 disables the deadline
}

// NewRunner creates a Runner wired with all its dependencies.
func NewRunner(
	fetcher Fetcher,
	normalizer Normalizer,
	dedup Deduplicator,
	scorer Scorer,
	ghosts GhostDetector,
	store model.RecordStore,
	notifier model.Notifier,
	opts Options,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		fetcher:        fetcher,
		normalizer:     normalizer,
		dedup:          dedup,
		scorer:         scorer,
		ghosts:         ghosts,
		store:          store,
		notifier:       notifier,
		query:          opts.Query,
		alertThreshold: opts.AlertThreshold,
		runDeadline:    opts.RunDeadline,
		logger:         logger,
		now:            time.Now,
	}
}

// Run executes one pipeline pass. Fetch-side degradation never fails the run;
// storage and notification errors do, after whatever could be persisted was.
func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	started := r.now()
	report := RunReport{RunID: uuid.NewString(), Started: started}

	if r.runDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.runDeadline)
		defer cancel()
	}

	r.logger.Info("run started", "run_id", report.RunID, "keywords", r.query.Keywords)

	result := r.fetcher.Fetch(ctx, r.query)
	report.Sources = result.Reports
	report.Fetched = len(result.Listings)
	report.Degraded = result.Degraded

	drafts, dropped := r.normalizer.Normalize(result.Listings)
	report.Dropped = dropped
	if dropped > 0 {
		report.Degraded = true
	}

	drafts, filtered := applyQuery(drafts, r.query)
	report.Filtered = filtered

	jobs, groups := r.dedup.Dedup(drafts)
	report.Deduped = len(jobs)
	report.Merged = len(groups)

	if err := r.mergeHistory(jobs); err != nil {
		return report, fmt.Errorf("run %s: %w", report.RunID, err)
	}

	r.scorer.ScoreAll(jobs)
	r.ghosts.DetectAll(jobs)

	if len(jobs) > 0 {
		if err := r.store.UpsertJobs(jobs); err != nil {
			return report, fmt.Errorf("run %s: persisting jobs: %w", report.RunID, err)
		}
	}

	alerts := r.selectAlerts(jobs)
	report.Alerts = len(alerts)
	if len(alerts) > 0 {
		if err := r.notifier.Notify(alerts); err != nil {
			return report, fmt.Errorf("run %s: notifying: %w", report.RunID, err)
		}
	}

	report.Duration = r.now().Sub(started)
	r.logger.Info("run finished",
		"run_id", report.RunID,
		"fetched", report.Fetched,
		"dropped", report.Dropped,
		"filtered", report.Filtered,
		"deduped", report.Deduped,
		"merged_groups", report.Merged,
		"alerts", report.Alerts,
		"degraded", report.Degraded,
		"duration", report.Duration,
	)

	return report, nil
}

// mergeHistory folds stored state into the fresh batch: a record seen in a
// previous run keeps its original first_seen and accumulates times_seen.
func (r *Runner) mergeHistory(jobs []model.Job) error {
	for i := range jobs {
		prior, err := r.store.FindByHash(jobs[i].ContentHash)
		if err != nil {
			return fmt.Errorf("loading history for %s: %w", jobs[i].ContentHash, err)
		}
		if prior == nil {
			continue
		}

		if prior.FirstSeen.Before(jobs[i].FirstSeen) {
			jobs[i].FirstSeen = prior.FirstSeen
		}
		jobs[i].TimesSeen += prior.TimesSeen
		if jobs[i].PostedAt == nil {
			jobs[i].PostedAt = prior.PostedAt
		}
	}
	return nil
}

// applyQuery drops drafts that miss the configured search. The public boards
// behind the adapters expose no server-side search parameters, so the query
// is enforced here, after normalization has resolved the work mode. Empty
// keyword and location lists match everything.
func applyQuery(jobs []model.Job, q model.Query) ([]model.Job, int) {
	if len(q.Keywords) == 0 && len(q.Locations) == 0 {
		return jobs, 0
	}

	kept := jobs[:0]
	for _, j := range jobs {
		if matchesQuery(j, q) {
			kept = append(kept, j)
		}
	}
	return kept, len(jobs) - len(kept)
}

func matchesQuery(j model.Job, q model.Query) bool {
	if len(q.Keywords) > 0 {
		haystack := strings.ToLower(j.Title + " " + j.Description)
		if !containsAnyTerm(haystack, q.Keywords) {
			return false
		}
	}
	if len(q.Locations) > 0 {
		location := strings.ToLower(j.Location)
		matched := false
		for _, l := range q.Locations {
			term := strings.ToLower(strings.TrimSpace(l))
			if term == "" {
				continue
			}
			if strings.Contains(location, term) || (term == "remote" && j.WorkMode == model.WorkModeRemote) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func containsAnyTerm(haystack string, terms []string) bool {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// selectAlerts picks the jobs at or above the match threshold. Ghost severity
// does not gate alerts; it rides along in the notification so the reader can
// judge for themselves.
func (r *Runner) selectAlerts(jobs []model.Job) []model.Job {
	var out []model.Job
	for _, j := range jobs {
		if j.MatchScore >= r.alertThreshold {
			out = append(out, j)
		}
	}
	return out
}
