package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobradar/internal/model"
)

// selectorStrategy is one way of locating job cards on a board page. The
// item selector finds repeated elements; the rest are evaluated relative to
// each item. Empty field selectors mean "not available in this layout".
type selectorStrategy struct {
	name     string
	item     string
	title    string
	company  string
	location string
	link     string // anchor whose href is the posting URL
	salary   string
}

// defaultStrategies is the fallback chain tried in order. The first strategy
// yielding at least one valid listing wins; later strategies are not
// consulted. Ordered from most to least specific.
var defaultStrategies = []selectorStrategy{
	{
		name:     "job-card",
		item:     "div.job-card, li.job-card, article.job-card",
		title:    ".job-title, h2, h3",
		company:  ".company, .company-name",
		location: ".location, .job-location",
		link:     "a",
		salary:   ".salary, .compensation",
	},
	{
		name:     "listing-row",
		item:     "ul.jobs li, table.jobs tr, div.jobs-list > div",
		title:    ".title, a",
		company:  ".company",
		location: ".location",
		link:     "a",
	},
	{
		name:  "bare-links",
		item:  "a[href*='/jobs/'], a[href*='/careers/'], a[href*='/position']",
		title: "", // the anchor text itself
	},
}

// HTMLBoardAdapter extracts listings from a board that exposes neither an
// API nor linked data, by trying an ordered chain of selector strategies.
type HTMLBoardAdapter struct {
	pageURL     string
	sourceName  string
	companyName string
	client      *http.Client
	strategies  []selectorStrategy
}

// NewHTMLBoardAdapter creates an adapter for one HTML board page using the
// default strategy chain.
func NewHTMLBoardAdapter(pageURL, sourceName, companyName string, client *http.Client) *HTMLBoardAdapter {
	return &HTMLBoardAdapter{
		pageURL:     pageURL,
		sourceName:  sourceName,
		companyName: companyName,
		client:      client,
		strategies:  defaultStrategies,
	}
}

// Name implements model.SourceAdapter.
func (a *HTMLBoardAdapter) Name() string { return "html:" + a.sourceName }

// Fetch downloads the page once and runs the strategy chain over it.
// Returning zero listings from every strategy is not an error: the board may
// genuinely be empty, and guessing wrong selectors must not trip the breaker.
func (a *HTMLBoardAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("html fetch for %s: %w", a.sourceName, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("html fetch for %s: %w", a.sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, statusError(a.Name(), resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("html parse for %s: %w", a.sourceName, err)
	}

	base, err := url.Parse(a.pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("html fetch for %s: bad page url: %w", a.sourceName, err)
	}

	var partial []error
	for _, strat := range a.strategies {
		listings, errs := a.extract(doc, strat, base)
		if len(listings) > 0 {
			return listings, append(partial, errs...), nil
		}
		partial = append(partial, errs...)
	}

	return nil, partial, nil
}

// extract applies one strategy to the document. Items missing a title or a
// resolvable link are reported and skipped.
func (a *HTMLBoardAdapter) extract(doc *goquery.Document, strat selectorStrategy, base *url.URL) ([]model.RawListing, []error) {
	var listings []model.RawListing
	var errs []error

	doc.Find(strat.item).Each(func(i int, item *goquery.Selection) {
		title := titleText(item, strat.title)
		href := a.itemHref(item, strat)

		if title == "" || href == "" {
			errs = append(errs, &model.ParseError{
				Source: a.Name(),
				Reason: fmt.Sprintf("strategy %s item %d: missing title or link", strat.name, i),
			})
			return
		}

		abs := href
		if u, err := url.Parse(href); err == nil {
			abs = base.ResolveReference(u).String()
		}

		company := fieldText(item, strat.company)
		if company == "" {
			company = a.companyName
		}

		listings = append(listings, model.RawListing{
			Source:     a.Name(),
			ExternalID: abs,
			Title:      title,
			Company:    company,
			Location:   fieldText(item, strat.location),
			URL:        abs,
			SalaryText: fieldText(item, strat.salary),
			Extra:      map[string]string{"strategy": strat.name},
		})
	})

	return listings, errs
}

// itemHref resolves the posting link for an item: the configured link
// selector, or the item itself when it is an anchor.
func (a *HTMLBoardAdapter) itemHref(item *goquery.Selection, strat selectorStrategy) string {
	if strat.link != "" {
		href, _ := item.Find(strat.link).First().Attr("href")
		return href
	}
	href, _ := item.Attr("href")
	return href
}

// titleText evaluates the title selector. An empty selector means the item's
// own text, for strategies whose items are bare anchors.
func titleText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return collapseSpace(item.Text())
	}
	return fieldText(item, selector)
}

// fieldText evaluates a relative selector and collapses whitespace. An empty
// selector means the field is not available in this layout.
func fieldText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return collapseSpace(item.Find(selector).First().Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
