package model

import (
	"context"
	"time"
)

// WorkMode classifies where a role is performed.
type WorkMode string

const (
	WorkModeRemote  WorkMode = "remote"
	WorkModeHybrid  WorkMode = "hybrid"
	WorkModeOnsite  WorkMode = "onsite"
	WorkModeUnknown WorkMode = "unknown"
)

// Severity buckets a ghost score into a coarse trust label.
type Severity string

const (
	SeverityNone   Severity = "none"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SourceRef identifies one listing on one board. Dedup merges never lose
// these, so a later re-fetch of the same listing resolves to the same record.
type SourceRef struct {
	Source     string
	ExternalID string
}

// RawListing is the loosely-typed payload an adapter returns before
// normalization. It is ephemeral: nothing downstream of the normalizer sees it.
type RawListing struct {
	Source      string
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Description string // may contain markup
	URL         string

	// Salary as reported by the source. Numeric fields are preferred when the
	// source exposes them; SalaryText is parsed otherwise.
	SalaryText string
	SalaryMin  float64
	SalaryMax  float64
	Currency   string

	RemoteHint string // explicit workplace field from the source, "" when absent
	PostedRaw  string // raw posted-at string in whatever format the source uses

	Extra map[string]string // source-specific leftovers, kept for debugging
}

// Job is the canonical record every source is normalized into.
type Job struct {
	ContentHash string // sha256 of normalized (title, company, location)

	Title       string
	Company     string
	Location    string
	WorkMode    WorkMode
	Description string
	URL         string
	Source      string // source of the primary record after dedup
	SourceRefs  []SourceRef

	SalaryMin *float64
	SalaryMax *float64
	Currency  string

	PostedAt  *time.Time // source-reported, nullable
	FirstSeen time.Time
	LastSeen  time.Time
	TimesSeen int

	MatchScore    float64
	ScoreReasons  []string
	GhostScore    float64
	GhostSeverity Severity

	DedupGroupID string
}

// DuplicateGroup records one fuzzy-merge result: the surviving primary plus
// every member hash that was folded into it. Consumed only by the run that
// produced it.
type DuplicateGroup struct {
	ID           string
	PrimaryHash  string
	MemberHashes []string
}

// Query is the search a run executes against every source.
type Query struct {
	Keywords  []string
	Locations []string
	Cursor    string // pagination cursor for sources that support it
}

// SourceAdapter fetches raw listings from one job board.
//
// Individually malformed items must be skipped and reported in the second
// return value; the error return is reserved for total failures
// (unreachability, auth rejection, malformed query).
type SourceAdapter interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]RawListing, []error, error)
}

// RecordStore is the persistence contract the pipeline hands finalized
// records to. Implementations own upsert-by-content_hash semantics.
type RecordStore interface {
	FindByHash(hash string) (*Job, error) // (nil, nil) when absent
	UpsertJobs(jobs []Job) error
	RecentJobs(limit int) ([]Job, error)

	// Breaker cool-down timestamps survive between runs so an open source
	// stays open across process restarts.
	LoadCooldowns() (map[string]time.Time, error)
	SaveCooldown(source string, openUntil time.Time) error

	Close() error
}

// Notifier delivers the jobs whose match score crossed the alert threshold.
type Notifier interface {
	Notify(jobs []Job) error
}
