package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/dedup"
	"github.com/amishk599/jobradar/internal/fetch"
	"github.com/amishk599/jobradar/internal/model"
	"github.com/amishk599/jobradar/internal/normalize"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher returns a canned fetch result.
type fakeFetcher struct {
	result fetch.Result
}

func (f *fakeFetcher) Fetch(ctx context.Context, q model.Query) fetch.Result {
	return f.result
}

// fakeScorer gives every job a fixed score.
type fakeScorer struct {
	score float64
}

func (s *fakeScorer) ScoreAll(jobs []model.Job) {
	for i := range jobs {
		jobs[i].MatchScore = s.score
		jobs[i].ScoreReasons = []string{"fixed"}
	}
}

// fakeGhosts marks everything clean.
type fakeGhosts struct{}

func (fakeGhosts) DetectAll(jobs []model.Job) {
	for i := range jobs {
		jobs[i].GhostSeverity = model.SeverityNone
	}
}

// memStore is an in-memory RecordStore.
type memStore struct {
	jobs      map[string]model.Job
	upsertErr error
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]model.Job)}
}

func (m *memStore) FindByHash(hash string) (*model.Job, error) {
	if j, ok := m.jobs[hash]; ok {
		out := j
		return &out, nil
	}
	return nil, nil
}

func (m *memStore) UpsertJobs(jobs []model.Job) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, j := range jobs {
		m.jobs[j.ContentHash] = j
	}
	return nil
}

func (m *memStore) RecentJobs(limit int) ([]model.Job, error)    { return nil, nil }
func (m *memStore) LoadCooldowns() (map[string]time.Time, error) { return nil, nil }
func (m *memStore) SaveCooldown(string, time.Time) error         { return nil }
func (m *memStore) Close() error                                 { return nil }

// recordingNotifier captures what was sent.
type recordingNotifier struct {
	sent []model.Job
}

func (n *recordingNotifier) Notify(jobs []model.Job) error {
	n.sent = append(n.sent, jobs...)
	return nil
}

func listing(source, id, title, company string) model.RawListing {
	return model.RawListing{
		Source:     source,
		ExternalID: id,
		Title:      title,
		Company:    company,
		Location:   "Remote",
		URL:        "https://example.com/" + id,
	}
}

func newTestRunner(f Fetcher, store model.RecordStore, n model.Notifier, score float64) *Runner {
	return NewRunner(
		f,
		normalize.NewNormalizer(discardLogger(), nil),
		dedup.NewDeduplicator(0),
		&fakeScorer{score: score},
		fakeGhosts{},
		store,
		n,
		Options{AlertThreshold: 0.75},
		discardLogger(),
	)
}

func TestRunEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{
		Listings: []model.RawListing{
			listing("board-a", "1", "Backend Engineer", "Acme"),
			listing("board-b", "x", "Backend Engineer", "Acme"), // same job, other board
			listing("board-a", "2", "SRE", "Globex"),
			{Source: "board-a", ExternalID: "3", Title: "", Company: "NoTitle Inc"}, // dropped
		},
		Reports: []fetch.SourceReport{{Source: "board-a", Fetched: 3}, {Source: "board-b", Fetched: 1}},
	}}
	store := newMemStore()
	notif := &recordingNotifier{}

	r := newTestRunner(fetcher, store, notif, 0.9)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.RunID == "" {
		t.Error("report has no run id")
	}
	if report.Fetched != 4 {
		t.Errorf("Fetched = %d, want 4", report.Fetched)
	}
	if report.Dropped != 1 {
		t.Errorf("Dropped = %d, want 1", report.Dropped)
	}
	if report.Deduped != 2 {
		t.Errorf("Deduped = %d, want 2 (exact duplicates collapsed)", report.Deduped)
	}
	if !report.Degraded {
		t.Error("a dropped listing should mark the run degraded")
	}
	if len(store.jobs) != 2 {
		t.Errorf("store holds %d jobs, want 2", len(store.jobs))
	}
	if len(notif.sent) != 2 {
		t.Errorf("notified %d jobs, want 2 (score above threshold)", len(notif.sent))
	}

	// The collapsed record kept both board identities.
	hash := normalize.ContentHash("Backend Engineer", "Acme", "Remote")
	merged, ok := store.jobs[hash]
	if !ok {
		t.Fatal("merged job missing from store")
	}
	if len(merged.SourceRefs) != 2 {
		t.Errorf("merged SourceRefs = %v, want both boards", merged.SourceRefs)
	}
	if merged.TimesSeen != 2 {
		t.Errorf("merged TimesSeen = %d, want 2", merged.TimesSeen)
	}
}

func TestRunAppliesQueryFilter(t *testing.T) {
	onsite := listing("board-a", "3", "Backend Engineer", "Initech")
	onsite.Location = "Columbus, OH"

	fetcher := &fakeFetcher{result: fetch.Result{
		Listings: []model.RawListing{
			listing("board-a", "1", "Backend Engineer", "Acme"),
			listing("board-a", "2", "Staff Accountant", "Acme"), // keyword miss
			onsite, // location miss
		},
	}}
	store := newMemStore()
	notif := &recordingNotifier{}

	r := NewRunner(
		fetcher,
		normalize.NewNormalizer(discardLogger(), nil),
		dedup.NewDeduplicator(0),
		&fakeScorer{score: 0.9},
		fakeGhosts{},
		store,
		notif,
		Options{
			AlertThreshold: 0.75,
			Query:          model.Query{Keywords: []string{"engineer"}, Locations: []string{"Remote"}},
		},
		discardLogger(),
	)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Filtered != 2 {
		t.Errorf("Filtered = %d, want 2", report.Filtered)
	}
	if report.Degraded {
		t.Error("query filtering is not degradation")
	}
	if report.Deduped != 1 || len(store.jobs) != 1 {
		t.Errorf("kept %d records, store holds %d; want 1 and 1", report.Deduped, len(store.jobs))
	}
	if len(notif.sent) != 1 || notif.sent[0].Title != "Backend Engineer" {
		t.Errorf("notified %v, want only the matching job", notif.sent)
	}
}

func TestRunBelowThresholdDoesNotNotify(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{
		Listings: []model.RawListing{listing("board-a", "1", "Backend Engineer", "Acme")},
	}}
	notif := &recordingNotifier{}

	r := newTestRunner(fetcher, newMemStore(), notif, 0.5)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notif.sent) != 0 {
		t.Errorf("notified %d jobs, want 0", len(notif.sent))
	}
}

func TestRunMergesStoredHistory(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{
		Listings: []model.RawListing{listing("board-a", "1", "Backend Engineer", "Acme")},
	}}
	store := newMemStore()

	hash := normalize.ContentHash("Backend Engineer", "Acme", "Remote")
	origFirstSeen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.jobs[hash] = model.Job{
		ContentHash: hash,
		FirstSeen:   origFirstSeen,
		TimesSeen:   3,
	}

	r := newTestRunner(fetcher, store, &recordingNotifier{}, 0.9)
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got := store.jobs[hash]
	if !got.FirstSeen.Equal(origFirstSeen) {
		t.Errorf("FirstSeen = %v, want original %v", got.FirstSeen, origFirstSeen)
	}
	if got.TimesSeen != 4 {
		t.Errorf("TimesSeen = %d, want 4 (3 prior + 1)", got.TimesSeen)
	}
}

func TestRunStoreFailureSurfaces(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{
		Listings: []model.RawListing{listing("board-a", "1", "Backend Engineer", "Acme")},
	}}
	store := newMemStore()
	store.upsertErr = errors.New("disk full")
	notif := &recordingNotifier{}

	r := newTestRunner(fetcher, store, notif, 0.9)
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error when persistence fails")
	}
	if len(notif.sent) != 0 {
		t.Error("must not notify when persistence failed")
	}
}

func TestRunEmptyFetchStillSucceeds(t *testing.T) {
	fetcher := &fakeFetcher{result: fetch.Result{
		Reports:  []fetch.SourceReport{{Source: "board-a", Skipped: true, SkipReason: "breaker open"}},
		Degraded: true,
	}}

	r := newTestRunner(fetcher, newMemStore(), &recordingNotifier{}, 0.9)
	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Degraded {
		t.Error("report should stay degraded")
	}
	if report.Deduped != 0 || report.Alerts != 0 {
		t.Errorf("expected empty run, got %+v", report)
	}
}
