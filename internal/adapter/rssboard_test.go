package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobradar/internal/model"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Remote Jobs</title>
  <link>https://feed.example</link>
  <item>
    <title>Acme: Senior Backend Engineer</title>
    <link>https://feed.example/jobs/1</link>
    <guid>feed-1</guid>
    <pubDate>Fri, 20 Feb 2026 10:00:00 GMT</pubDate>
    <description>Own the backend.</description>
    <category>golang</category>
    <category>backend</category>
  </item>
  <item>
    <title>Platform Engineer at Globex (Berlin)</title>
    <link>https://feed.example/jobs/2</link>
  </item>
  <item>
    <link>https://feed.example/jobs/3</link>
  </item>
</channel>
</rss>`

func TestRSSBoardFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	a := NewRSSBoardAdapter(srv.URL, "remote-jobs")
	if a.Name() != "rss:remote-jobs" {
		t.Errorf("Name = %q", a.Name())
	}

	listings, partial, err := a.Fetch(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if len(partial) != 1 {
		t.Errorf("got %d partial errors, want 1 for the untitled item", len(partial))
	}

	first := listings[0]
	if first.Title != "Senior Backend Engineer" || first.Company != "Acme" {
		t.Errorf("listing = %+v, want the colon shape split", first)
	}
	if first.ExternalID != "feed-1" {
		t.Errorf("ExternalID = %q, want the guid", first.ExternalID)
	}
	if first.PostedRaw != "2026-02-20T10:00:00Z" {
		t.Errorf("PostedRaw = %q", first.PostedRaw)
	}
	if first.Extra["categories"] != "golang,backend" {
		t.Errorf("categories = %q", first.Extra["categories"])
	}

	second := listings[1]
	if second.Title != "Platform Engineer" || second.Company != "Globex" || second.Location != "Berlin" {
		t.Errorf("listing = %+v, want the at shape split", second)
	}
	if second.ExternalID != "https://feed.example/jobs/2" {
		t.Errorf("ExternalID = %q, want the link fallback", second.ExternalID)
	}
}

func TestRSSBoardFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewRSSBoardAdapter(srv.URL, "remote-jobs")
	if _, _, err := a.Fetch(context.Background(), model.Query{}); err == nil {
		t.Fatal("expected error when the feed cannot be fetched")
	}
}

func TestSplitFeedTitle(t *testing.T) {
	cases := []struct {
		raw                      string
		title, company, location string
	}{
		{"Acme: Senior Backend Engineer", "Senior Backend Engineer", "Acme", ""},
		{"Platform Engineer at Globex (Berlin)", "Platform Engineer", "Globex", "Berlin"},
		{"Platform Engineer at Globex", "Platform Engineer", "Globex", ""},
		{"Site Reliability Engineer", "Site Reliability Engineer", "", ""},
		{"  Trimmed Role  ", "Trimmed Role", "", ""},
	}

	for _, tc := range cases {
		title, company, location := splitFeedTitle(tc.raw)
		if title != tc.title || company != tc.company || location != tc.location {
			t.Errorf("splitFeedTitle(%q) = (%q, %q, %q), want (%q, %q, %q)",
				tc.raw, title, company, location, tc.title, tc.company, tc.location)
		}
	}
}
