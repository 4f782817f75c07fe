// Package normalize maps source-specific RawListings into canonical Job
// drafts: markup stripped, salary parsed, work mode inferred, and the
// content hash computed as the dedup join key.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/amishk599/jobradar/internal/model"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// ExtractText converts an HTML or HTML-encoded string to plain text.
// It first unescapes HTML entities (handles Greenhouse's double-encoding;
// no-op on already-real HTML), strips all tags, then collapses whitespace.
func ExtractText(content string) string {
	unescaped := html.UnescapeString(content)
	plain := htmlTagRegex.ReplaceAllString(unescaped, "")
	return strings.Join(strings.Fields(plain), " ")
}

// normKey lower-cases and whitespace-collapses a hash component.
func normKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ContentHash derives the canonical identity of a posting from its
// normalized title, company and location. Semantically identical postings
// hash the same regardless of source.
func ContentHash(title, company, location string) string {
	key := normKey(title) + "|" + normKey(company) + "|" + normKey(location)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Normalizer turns RawListings into Job drafts. Malformed listings are
// dropped with a logged reason; a bad record never aborts the batch.
type Normalizer struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewNormalizer creates a Normalizer. now is injectable for tests.
func NewNormalizer(logger *slog.Logger, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{logger: logger, now: now}
}

// Normalize maps every listing, returning the drafts and the count dropped.
func (n *Normalizer) Normalize(listings []model.RawListing) ([]model.Job, int) {
	drafts := make([]model.Job, 0, len(listings))
	dropped := 0

	for _, l := range listings {
		job, err := n.normalizeOne(l)
		if err != nil {
			dropped++
			n.logger.Warn("dropping malformed listing", "source", l.Source, "external_id", l.ExternalID, "error", err)
			continue
		}
		drafts = append(drafts, job)
	}

	return drafts, dropped
}

func (n *Normalizer) normalizeOne(l model.RawListing) (model.Job, error) {
	title := strings.Join(strings.Fields(l.Title), " ")
	company := strings.Join(strings.Fields(l.Company), " ")
	location := strings.Join(strings.Fields(l.Location), " ")

	if title == "" {
		return model.Job{}, &model.ParseError{Source: l.Source, ExternalID: l.ExternalID, Reason: "empty title"}
	}
	if company == "" {
		return model.Job{}, &model.ParseError{Source: l.Source, ExternalID: l.ExternalID, Reason: "empty company"}
	}
	if l.URL == "" && l.ExternalID == "" {
		return model.Job{}, &model.ParseError{Source: l.Source, Reason: "no url or external id"}
	}

	description := ExtractText(l.Description)
	now := n.now()

	job := model.Job{
		ContentHash: ContentHash(title, company, location),
		Title:       title,
		Company:     company,
		Location:    location,
		WorkMode:    inferWorkMode(l.RemoteHint, location, title, description),
		Description: description,
		URL:         l.URL,
		Source:      l.Source,
		SourceRefs:  []model.SourceRef{{Source: l.Source, ExternalID: l.ExternalID}},
		FirstSeen:   now,
		LastSeen:    now,
		TimesSeen:   1,
	}

	job.SalaryMin, job.SalaryMax, job.Currency = normalizeSalary(l)

	if l.PostedRaw != "" {
		// Sources report posted-at in wildly different formats; a string that
		// refuses to parse leaves the field nil rather than dropping the job.
		if t, err := dateparse.ParseAny(l.PostedRaw); err == nil {
			utc := t.UTC()
			job.PostedAt = &utc
		}
	}

	return job, nil
}

// normalizeSalary prefers structured numbers from the source and falls back
// to parsing the free-text salary. No parseable salary leaves all three
// fields null, never zero.
func normalizeSalary(l model.RawListing) (*float64, *float64, string) {
	if l.SalaryMin > 0 || l.SalaryMax > 0 {
		var min, max *float64
		if l.SalaryMin > 0 {
			v := l.SalaryMin
			min = &v
		}
		if l.SalaryMax > 0 {
			v := l.SalaryMax
			max = &v
		}
		return min, max, l.Currency
	}

	parsed := ParseSalaryText(l.SalaryText)
	return parsed.Min, parsed.Max, parsed.Currency
}

var (
	remoteKeywords = []string{"remote", "work from home", "work-from-home", "anywhere", "telecommute", "distributed"}
	hybridKeywords = []string{"hybrid"}
	onsiteKeywords = []string{"on-site", "onsite", "on site", "in office", "in-office"}
)

// inferWorkMode combines the source's explicit workplace field with keyword
// matching over location, title and description. Explicit hints win; hybrid
// outranks remote because "hybrid remote" postings are hybrid.
func inferWorkMode(hint, location, title, description string) model.WorkMode {
	switch strings.ToLower(strings.TrimSpace(hint)) {
	case "remote", "telecommute":
		return model.WorkModeRemote
	case "hybrid":
		return model.WorkModeHybrid
	case "onsite", "on-site", "on site":
		return model.WorkModeOnsite
	}

	haystacks := []string{strings.ToLower(location), strings.ToLower(title), strings.ToLower(description)}

	matches := func(keywords []string) bool {
		for _, h := range haystacks {
			for _, kw := range keywords {
				if strings.Contains(h, kw) {
					return true
				}
			}
		}
		return false
	}

	switch {
	case matches(hybridKeywords):
		return model.WorkModeHybrid
	case matches(remoteKeywords):
		return model.WorkModeRemote
	case matches(onsiteKeywords):
		return model.WorkModeOnsite
	case location != "":
		// A concrete location with no remote language reads as onsite.
		return model.WorkModeOnsite
	}
	return model.WorkModeUnknown
}
