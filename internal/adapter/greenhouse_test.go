package adapter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

// roundTripFunc lets a test redirect a fixed-base-URL adapter at a local
// httptest server.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// rewriteClient returns a client whose every request is rewritten to hit srv.
func rewriteClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	target, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	return &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		r.URL.Scheme = target.Scheme
		r.URL.Host = target.Host
		return http.DefaultTransport.RoundTrip(r)
	})}
}

const greenhouseBody = `{
  "jobs": [
    {
      "id": 101,
      "title": "Backend Engineer",
      "location": {"name": "Remote"},
      "content": "Build the billing service.",
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/101",
      "first_published": "2026-02-20T10:00:00Z",
      "updated_at": "2026-02-25T09:00:00Z"
    },
    {
      "id": 102,
      "title": "",
      "absolute_url": ""
    },
    {
      "id": 103,
      "title": "Data Engineer",
      "location": {"name": "NYC"},
      "absolute_url": "https://boards.greenhouse.io/acme/jobs/103",
      "updated_at": "2026-02-26T09:00:00Z"
    }
  ]
}`

func TestGreenhouseFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acme/jobs" {
			t.Errorf("path = %q, want /acme/jobs", r.URL.Path)
		}
		if r.URL.Query().Get("content") != "true" {
			t.Error("content=true query parameter missing")
		}
		w.Write([]byte(greenhouseBody))
	}))
	defer srv.Close()

	a := NewGreenhouseAdapter("acme", "Acme", rewriteClient(t, srv))
	if a.Name() != "greenhouse:acme" {
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
		t.Fatalf("got %d partial errors, want 1 for the malformed entry", len(partial))
	}
	var pe *model.ParseError
	if !errors.As(partial[0], &pe) || pe.ExternalID != "102" {
		t.Errorf("partial error = %v, want ParseError for entry 102", partial[0])
	}

	first := listings[0]
	if first.ExternalID != "101" || first.Title != "Backend Engineer" || first.Company != "Acme" {
		t.Errorf("listing = %+v", first)
	}
	if first.Location != "Remote" || first.URL != "https://boards.greenhouse.io/acme/jobs/101" {
		t.Errorf("listing = %+v", first)
	}
	if first.PostedRaw != "2026-02-20T10:00:00Z" {
		t.Errorf("PostedRaw = %q, want first_published", first.PostedRaw)
	}

	// Entry 103 has no first_published, so updated_at stands in.
	if listings[1].PostedRaw != "2026-02-26T09:00:00Z" {
		t.Errorf("PostedRaw = %q, want updated_at fallback", listings[1].PostedRaw)
	}
}

func TestGreenhouseFetchRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a := NewGreenhouseAdapter("acme", "Acme", rewriteClient(t, srv))
	_, _, err := a.Fetch(context.Background(), model.Query{})
	if err == nil {
		t.Fatal("expected error on 429")
	}

	var he *model.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error type = %T, want *model.HTTPError", err)
	}
	if he.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", he.StatusCode)
	}
	if he.RetryAfter != 30*time.Second {
		t.Errorf("RetryAfter = %v, want 30s", he.RetryAfter)
	}
}

func TestGreenhouseFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	a := NewGreenhouseAdapter("acme", "Acme", rewriteClient(t, srv))
	if _, _, err := a.Fetch(context.Background(), model.Query{}); err == nil {
		t.Fatal("expected error on undecodable body")
	}
}
