package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/jobradar/internal/model"
)

// RSSBoardAdapter fetches listings from an RSS/Atom job feed. Feeds like
// We Work Remotely publish item titles as "Company: Role" or "Role at
// Company (Location)"; both shapes are split heuristically.
type RSSBoardAdapter struct {
	feedURL    string
	sourceName string
	parser     *gofeed.Parser
}

// NewRSSBoardAdapter creates an adapter for one job feed.
func NewRSSBoardAdapter(feedURL, sourceName string) *RSSBoardAdapter {
	return &RSSBoardAdapter{
		feedURL:    feedURL,
		sourceName: sourceName,
		parser:     gofeed.NewParser(),
	}
}

// Name implements model.SourceAdapter.
func (a *RSSBoardAdapter) Name() string { return "rss:" + a.sourceName }

// Fetch parses the feed and maps each item to a RawListing. Items without a
// parseable title/link pair are reported and skipped.
func (a *RSSBoardAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	feed, err := a.parser.ParseURLWithContext(a.feedURL, ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("rss fetch for %s: %w", a.sourceName, err)
	}

	listings := make([]model.RawListing, 0, len(feed.Items))
	var partial []error
	for i, item := range feed.Items {
		if item.Title == "" || item.Link == "" {
			partial = append(partial, &model.ParseError{
				Source: a.Name(),
				Reason: fmt.Sprintf("item %d: missing title or link", i),
			})
			continue
		}

		title, company, location := splitFeedTitle(item.Title)

		externalID := item.GUID
		if externalID == "" {
			externalID = item.Link
		}

		var postedRaw string
		if item.PublishedParsed != nil {
			postedRaw = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else {
			postedRaw = item.Published
		}

		listings = append(listings, model.RawListing{
			Source:      a.Name(),
			ExternalID:  externalID,
			Title:       title,
			Company:     company,
			Location:    location,
			Description: item.Description,
			URL:         item.Link,
			PostedRaw:   postedRaw,
			Extra:       map[string]string{"categories": strings.Join(item.Categories, ",")},
		})
	}

	return listings, partial, nil
}

var feedTitleAtRegex = regexp.MustCompile(`^(.*\S)\s+at\s+(.+?)(?:\s*\(([^)]+)\))?$`)

// splitFeedTitle breaks a feed item title into role, company and location.
// Recognized shapes, tried in order:
//
//	"Company: Role"
//	"Role at Company (Location)"
//	"Role at Company"
//
// Anything else is kept whole as the role with no company.
func splitFeedTitle(raw string) (title, company, location string) {
	raw = strings.TrimSpace(raw)

	if before, after, found := strings.Cut(raw, ": "); found {
		return strings.TrimSpace(after), strings.TrimSpace(before), ""
	}

	if m := feedTitleAtRegex.FindStringSubmatch(raw); m != nil {
		return m[1], strings.TrimSpace(m[2]), strings.TrimSpace(m[3])
	}

	return raw, "", ""
}
