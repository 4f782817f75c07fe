package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amishk599/jobradar/internal/model"
)

const ashbyBody = `{
  "jobs": [
    {
      "id": "j-1",
      "title": "Staff Engineer",
      "location": "San Francisco",
      "jobUrl": "https://jobs.ashbyhq.com/acme/j-1",
      "publishedAt": "2026-02-18T08:00:00Z",
      "isListed": true,
      "isRemote": true,
      "descriptionPlain": "Own the core systems.",
      "compensationTierSummary": "$200K - $250K"
    },
    {
      "id": "j-2",
      "title": "Internal Role",
      "jobUrl": "https://jobs.ashbyhq.com/acme/j-2",
      "isListed": false
    },
    {
      "id": "j-3",
      "title": "",
      "jobUrl": "",
      "isListed": true
    }
  ]
}`

func TestAshbyFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme" {
			t.Errorf("path = %q, want /acme", r.URL.Path)
		}
		if r.URL.Query().Get("includeCompensation") != "true" {
			t.Error("includeCompensation=true query parameter missing")
		}
		w.Write([]byte(ashbyBody))
	}))
	defer srv.Close()

	a := NewAshbyAdapter("acme", "Acme", rewriteClient(t, srv))
	if a.Name() != "ashby:acme" {
		t.Errorf("Name = %q", a.Name())
	}

	listings, partial, err := a.Fetch(context.Background(), model.Query{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// j-2 is unlisted and skipped silently; j-3 is malformed and reported.
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}
	if len(partial) != 1 {
		t.Fatalf("got %d partial errors, want 1", len(partial))
	}
	var pe *model.ParseError
	if !errors.As(partial[0], &pe) || pe.ExternalID != "j-3" {
		t.Errorf("partial error = %v, want ParseError for j-3", partial[0])
	}

	l := listings[0]
	if l.ExternalID != "j-1" || l.Title != "Staff Engineer" || l.Company != "Acme" {
		t.Errorf("listing = %+v", l)
	}
	if l.RemoteHint != "remote" {
		t.Errorf("RemoteHint = %q, want remote from isRemote", l.RemoteHint)
	}
	if l.SalaryText != "$200K - $250K" {
		t.Errorf("SalaryText = %q", l.SalaryText)
	}
	if l.PostedRaw != "2026-02-18T08:00:00Z" {
		t.Errorf("PostedRaw = %q", l.PostedRaw)
	}
}

func TestAshbyFetchNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewAshbyAdapter("gone", "Gone", rewriteClient(t, srv))
	_, _, err := a.Fetch(context.Background(), model.Query{})

	var he *model.HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusNotFound {
		t.Fatalf("error = %v, want HTTPError with status 404", err)
	}
}
