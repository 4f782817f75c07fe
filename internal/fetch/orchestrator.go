// Package fetch runs all configured source adapters concurrently behind
// per-source rate limits and circuit breakers, and aggregates their results
// with per-source diagnostics. One failing source never discards another
// source's listings.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/ratelimit"
	"github.com/amishk599/jobradar/internal/retry"
)

// CooldownStore persists breaker cool-down timestamps between runs.
type CooldownStore interface {
	LoadCooldowns() (map[string]time.Time, error)
	SaveCooldown(source string, openUntil time.Time) error
}

// Options tunes the orchestrator.
type Options struct {
	Workers          int
	CallTimeout      time.Duration
	MaxRetries       int
	RetryBaseDelay   time.Duration
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// SourceReport is the per-source outcome of one run.
type SourceReport struct {
	Source     string
	Fetched    int // listings returned
	Dropped    int // individually malformed items skipped by the adapter
	Attempts   int
	Skipped    bool
	SkipReason string
	Breaker    State
	Err        error
}

// Result aggregates one fetch pass.
type Result struct {
	Listings []model.RawListing
	Reports  []SourceReport
	Degraded bool // at least one source skipped, failed, or dropped records
}

// Orchestrator owns the breaker and limiter state for every source.
type Orchestrator struct {
	adapters  []model.SourceAdapter
	limiter   *ratelimit.SourceLimiter
	breakers  map[string]*Breaker
	cooldowns CooldownStore // nil disables persistence
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

// New creates an orchestrator and seeds breakers from persisted cool-downs.
func New(adapters []model.SourceAdapter, limiter *ratelimit.SourceLimiter, cooldowns CooldownStore, opts Options, logger *slog.Logger) (*Orchestrator, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("no source adapters configured")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	o := &Orchestrator{
		adapters:  adapters,
		limiter:   limiter,
		breakers:  make(map[string]*Breaker, len(adapters)),
		cooldowns: cooldowns,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}

	var persisted map[string]time.Time
	if cooldowns != nil {
		var err error
		persisted, err = cooldowns.LoadCooldowns()
		if err != nil {
			// A missing cool-down table degrades to fresh breakers.
			logger.Warn("could not load breaker cooldowns", "error", err)
		}
	}

	for _, a := range adapters {
		br := NewBreaker(opts.BreakerThreshold, opts.BreakerCooldown, o.now)
		if until, ok := persisted[a.Name()]; ok {
			br.SeedOpen(until)
		}
		o.breakers[a.Name()] = br
	}

	return o, nil
}

// Fetch runs every adapter through the worker pool and collects listings and
// per-source reports. It never fails as a whole: a cancelled run returns
// whatever sources completed.
func (o *Orchestrator) Fetch(ctx context.Context, q model.Query) Result {
	var (
		mu      sync.Mutex
		result  Result
	)
	collect := func(rep SourceReport, listings []model.RawListing) {
		mu.Lock()
		defer mu.Unlock()
		result.Reports = append(result.Reports, rep)
		result.Listings = append(result.Listings, listings...)
		if rep.Skipped || rep.Err != nil || rep.Dropped > 0 {
			result.Degraded = true
		}
	}

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)

	for _, a := range o.adapters {
		g.Go(func() error {
			rep, listings := o.fetchSource(ctx, a, q)
			collect(rep, listings)
			return nil
		})
	}
	g.Wait()

	return result
}

// fetchSource runs the breaker/limiter/retry chain for a single source.
// Calls within a source are serialized behind its token bucket; each source's
// state is touched only by its own worker.
func (o *Orchestrator) fetchSource(ctx context.Context, a model.SourceAdapter, q model.Query) (SourceReport, []model.RawListing) {
	name := a.Name()
	br := o.breakers[name]
	rep := SourceReport{Source: name}

	if ctx.Err() != nil {
		rep.Skipped = true
		rep.SkipReason = "run cancelled"
		rep.Breaker = br.State()
		return rep, nil
	}

	allowed, probe := br.Allow()
	if !allowed {
		rep.Skipped = true
		rep.SkipReason = fmt.Sprintf("breaker open until %s", br.OpenUntil().Format(time.RFC3339))
		rep.Breaker = br.State()
		o.logger.Warn("skipping source, breaker open", "source", name, "open_until", br.OpenUntil())
		return rep, nil
	}

	if err := o.limiter.Wait(ctx, name); err != nil {
		rep.Skipped = true
		rep.SkipReason = "rate limit wait cancelled"
		rep.Breaker = br.State()
		return rep, nil
	}

	attempt := func(ctx context.Context) ([]model.RawListing, []error, error) {
		callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
		defer cancel()
		listings, partial, err := a.Fetch(callCtx, q)
		if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			// The call hit its own timeout while the run is still live.
			err = fmt.Errorf("%w after %s", model.ErrCallTimeout, o.opts.CallTimeout)
		}
		return listings, partial, err
	}

	maxRetries := o.opts.MaxRetries
	if probe {
		// Half-open admits exactly one probe call.
		maxRetries = 0
	}

	listings, partial, attempts, err := retry.Do(ctx, attempt, maxRetries, o.opts.RetryBaseDelay, o.logger)
	rep.Attempts = attempts

	if err != nil {
		br.RecordFailure()
		if br.State() == StateOpen && o.cooldowns != nil {
			if serr := o.cooldowns.SaveCooldown(name, br.OpenUntil()); serr != nil {
				o.logger.Warn("could not persist breaker cooldown", "source", name, "error", serr)
			}
		}
		rep.Err = err
		rep.Breaker = br.State()
		o.logger.Error("source fetch failed", "source", name, "attempts", attempts, "breaker", rep.Breaker, "error", err)
		return rep, nil
	}

	br.RecordSuccess()
	rep.Fetched = len(listings)
	rep.Dropped = len(partial)
	rep.Breaker = br.State()

	for _, perr := range partial {
		o.logger.Debug("listing dropped by adapter", "source", name, "error", perr)
	}
	o.logger.Info("source fetched", "source", name, "listings", len(listings), "dropped", len(partial), "attempts", attempts)

	return rep, listings
}

// BreakerState exposes a source's breaker position for diagnostics.
func (o *Orchestrator) BreakerState(source string) State {
	if br, ok := o.breakers[source]; ok {
		return br.State()
	}
	return ""
}
