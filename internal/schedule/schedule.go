// Package schedule drives recurring pipeline runs on a cron spec.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobradar/internal/pipeline"
)

// Runner executes one pipeline pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.RunReport, error)
}

// Scheduler wraps robfig/cron around a pipeline Runner. Overlapping runs are
// skipped, not queued: if a run is still going when the next tick fires, the
// tick is dropped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler with a cron spec like "@every 6h" or "0 */4 * * *".
func New(runner Runner, spec string, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Run registers the job, fires one immediate run so the store is populated
// without waiting for the first tick, then blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}

	s.logger.Info("scheduler started", "spec", s.spec)
	s.cron.Start()

	s.runOnce(ctx)

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")

	// Stop returns a context that is done when in-flight jobs finish.
	<-s.cron.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous run still in progress, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.runner.Run(ctx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}
