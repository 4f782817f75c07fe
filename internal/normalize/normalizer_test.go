package normalize

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(discardLogger(), func() time.Time { return fixedNow })
}

func TestContentHashStableAcrossFormatting(t *testing.T) {
	a := ContentHash("Senior  Backend Engineer", "ACME Corp", "Remote, US")
	b := ContentHash("senior backend engineer", "acme corp", "remote,  us")
	if a != b {
		t.Errorf("hashes differ for semantically identical inputs:\n%s\n%s", a, b)
	}

	c := ContentHash("Senior Backend Engineer", "Acme Corp", "NYC")
	if a == c {
		t.Error("different locations must produce different hashes")
	}
}

func TestNormalizeHappyPath(t *testing.T) {
	n := newTestNormalizer()

	listings := []model.RawListing{{
		Source:      "acme-gh",
		ExternalID:  "123",
		Title:       "  Backend   Engineer ",
		Company:     "Acme",
		Location:    "Remote",
		Description: "<p>Build &amp; run the billing service.</p>",
		URL:         "https://example.com/123",
		SalaryText:  "$150,000 - $180,000",
		PostedRaw:   "2026-02-20T10:00:00Z",
	}}

	jobs, dropped := n.Normalize(listings)
	if dropped != 0 || len(jobs) != 1 {
		t.Fatalf("got %d jobs, %d dropped", len(jobs), dropped)
	}

	j := jobs[0]
	if j.Title != "Backend Engineer" {
		t.Errorf("Title = %q, want whitespace collapsed", j.Title)
	}
	if j.Description != "Build & run the billing service." {
		t.Errorf("Description = %q, want markup stripped", j.Description)
	}
	if j.WorkMode != model.WorkModeRemote {
		t.Errorf("WorkMode = %s, want remote", j.WorkMode)
	}
	if j.SalaryMin == nil || *j.SalaryMin != 150000 || j.SalaryMax == nil || *j.SalaryMax != 180000 {
		t.Errorf("salary = %v..%v", j.SalaryMin, j.SalaryMax)
	}
	if j.Currency != "USD" {
		t.Errorf("Currency = %q, want USD", j.Currency)
	}
	if j.PostedAt == nil || !j.PostedAt.Equal(time.Date(2026, 2, 20, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("PostedAt = %v", j.PostedAt)
	}
	if j.TimesSeen != 1 || !j.FirstSeen.Equal(fixedNow) || !j.LastSeen.Equal(fixedNow) {
		t.Errorf("seen fields = %d / %v / %v", j.TimesSeen, j.FirstSeen, j.LastSeen)
	}
	if len(j.SourceRefs) != 1 || j.SourceRefs[0] != (model.SourceRef{Source: "acme-gh", ExternalID: "123"}) {
		t.Errorf("SourceRefs = %v", j.SourceRefs)
	}
}

func TestNormalizeDropsMalformedButKeepsRest(t *testing.T) {
	n := newTestNormalizer()

	listings := []model.RawListing{
		{Source: "a", ExternalID: "1", Title: "", Company: "Acme", URL: "u"},        // no title
		{Source: "a", ExternalID: "2", Title: "Engineer", Company: "", URL: "u"},    // no company
		{Source: "a", Title: "Engineer", Company: "Acme"},                           // no url or id
		{Source: "a", ExternalID: "3", Title: "Engineer", Company: "Acme", URL: "u"},
	}

	jobs, dropped := n.Normalize(listings)
	if dropped != 3 {
		t.Errorf("dropped = %d, want 3", dropped)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
}

func TestNormalizeUnparseableDateLeavesNil(t *testing.T) {
	n := newTestNormalizer()

	jobs, dropped := n.Normalize([]model.RawListing{{
		Source: "a", ExternalID: "1", Title: "Engineer", Company: "Acme", URL: "u",
		PostedRaw: "sometime last week maybe",
	}})
	if dropped != 0 || len(jobs) != 1 {
		t.Fatalf("got %d jobs, %d dropped", len(jobs), dropped)
	}
	if jobs[0].PostedAt != nil {
		t.Errorf("PostedAt = %v, want nil for unparseable date", jobs[0].PostedAt)
	}
}

func TestNormalizePrefersStructuredSalary(t *testing.T) {
	n := newTestNormalizer()

	jobs, _ := n.Normalize([]model.RawListing{{
		Source: "a", ExternalID: "1", Title: "Engineer", Company: "Acme", URL: "u",
		SalaryMin: 90000, SalaryMax: 120000, Currency: "EUR",
		SalaryText: "$1 bazillion",
	}})
	j := jobs[0]
	if j.SalaryMin == nil || *j.SalaryMin != 90000 || j.Currency != "EUR" {
		t.Errorf("structured salary not preferred: %v %q", j.SalaryMin, j.Currency)
	}
}

func TestInferWorkMode(t *testing.T) {
	cases := []struct {
		name     string
		hint     string
		location string
		title    string
		desc     string
		want     model.WorkMode
	}{
		{"explicit remote hint", "Remote", "NYC", "", "", model.WorkModeRemote},
		{"explicit hybrid hint", "hybrid", "Remote", "", "", model.WorkModeHybrid},
		{"explicit onsite hint", "on-site", "", "", "", model.WorkModeOnsite},
		{"remote location", "", "Remote, US", "", "", model.WorkModeRemote},
		{"remote in title", "", "", "Staff Engineer (Remote)", "", model.WorkModeRemote},
		{"hybrid beats remote keyword", "", "", "", "hybrid remote role, 2 days in office", model.WorkModeHybrid},
		{"concrete location is onsite", "", "Berlin", "", "", model.WorkModeOnsite},
		{"nothing known", "", "", "", "great role", model.WorkModeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := inferWorkMode(tc.hint, tc.location, tc.title, tc.desc)
			if got != tc.want {
				t.Errorf("inferWorkMode = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestExtractText(t *testing.T) {
	in := "&lt;p&gt;We build &amp; ship.&lt;/p&gt;"
	if got := ExtractText(in); got != "We build & ship." {
		t.Errorf("ExtractText = %q", got)
	}

	plain := ExtractText("<div>Hello   <b>world</b></div>")
	if plain != "Hello world" {
		t.Errorf("ExtractText = %q", plain)
	}
}
