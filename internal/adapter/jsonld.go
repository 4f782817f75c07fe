package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/amishk599/jobradar/internal/model"
)

// JSONLDAdapter extracts schema.org JobPosting blocks embedded in a career
// page as <script type="application/ld+json"> linked data. It handles a
// single object, a top-level array, and @graph wrappers.
type JSONLDAdapter struct {
	pageURL     string
	sourceName  string
	companyName string // fallback when hiringOrganization is absent
	client      *http.Client
}

// NewJSONLDAdapter creates an adapter for one career page.
func NewJSONLDAdapter(pageURL, sourceName, companyName string, client *http.Client) *JSONLDAdapter {
	return &JSONLDAdapter{
		pageURL:     pageURL,
		sourceName:  sourceName,
		companyName: companyName,
		client:      client,
	}
}

// Name implements model.SourceAdapter.
func (a *JSONLDAdapter) Name() string { return "jsonld:" + a.sourceName }

// ldJobPosting mirrors the schema.org JobPosting fields we consume.
type ldJobPosting struct {
	Type        string `json:"@type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DatePosted  string `json:"datePosted"`
	URL         string `json:"url"`
	Identifier  json.RawMessage `json:"identifier"`
	JobLocationType    string `json:"jobLocationType"` // "TELECOMMUTE" for remote
	HiringOrganization struct {
		Name string `json:"name"`
	} `json:"hiringOrganization"`
	JobLocation ldLocations `json:"jobLocation"`
	BaseSalary  struct {
		Currency string `json:"currency"`
		Value    struct {
			MinValue float64 `json:"minValue"`
			MaxValue float64 `json:"maxValue"`
			Value    float64 `json:"value"`
		} `json:"value"`
	} `json:"baseSalary"`
}

// ldLocations tolerates both a single jobLocation object and an array.
type ldLocations []ldPlace

type ldPlace struct {
	Address struct {
		Locality string `json:"addressLocality"`
		Region   string `json:"addressRegion"`
		Country  string `json:"addressCountry"`
	} `json:"address"`
}

func (l *ldLocations) UnmarshalJSON(data []byte) error {
	var many []ldPlace
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}
	var one ldPlace
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = ldLocations{one}
	return nil
}

// Fetch downloads the page and extracts every JobPosting block. A block that
// fails to decode is reported as a ParseError and skipped; the page-level
// fetch or parse failing is fatal.
func (a *JSONLDAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.pageURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("jsonld fetch for %s: %w", a.sourceName, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("jsonld fetch for %s: %w", a.sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, statusError(a.Name(), resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("jsonld parse for %s: %w", a.sourceName, err)
	}

	var listings []model.RawListing
	var partial []error

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		postings, err := decodeJobPostings(sel.Text())
		if err != nil {
			partial = append(partial, &model.ParseError{
				Source: a.Name(),
				Reason: fmt.Sprintf("ld+json block %d undecodable", i),
				Err:    err,
			})
			return
		}
		for _, p := range postings {
			listing, err := a.listingFromPosting(p)
			if err != nil {
				partial = append(partial, err)
				continue
			}
			listings = append(listings, listing)
		}
	})

	return listings, partial, nil
}

// decodeJobPostings decodes one ld+json block into zero or more JobPostings.
// Non-JobPosting blocks (Organization, BreadcrumbList, ...) decode to nothing.
func decodeJobPostings(text string) ([]ldJobPosting, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	// Top-level array of entities.
	if strings.HasPrefix(text, "[") {
		var arr []ldJobPosting
		if err := json.Unmarshal([]byte(text), &arr); err != nil {
			return nil, err
		}
		return filterJobPostings(arr), nil
	}

	// Single entity, possibly an @graph wrapper.
	var wrapper struct {
		Graph []ldJobPosting `json:"@graph"`
	}
	if err := json.Unmarshal([]byte(text), &wrapper); err == nil && len(wrapper.Graph) > 0 {
		return filterJobPostings(wrapper.Graph), nil
	}

	var one ldJobPosting
	if err := json.Unmarshal([]byte(text), &one); err != nil {
		return nil, err
	}
	return filterJobPostings([]ldJobPosting{one}), nil
}

func filterJobPostings(in []ldJobPosting) []ldJobPosting {
	var out []ldJobPosting
	for _, p := range in {
		if p.Type == "JobPosting" {
			out = append(out, p)
		}
	}
	return out
}

func (a *JSONLDAdapter) listingFromPosting(p ldJobPosting) (model.RawListing, error) {
	if p.Title == "" {
		return model.RawListing{}, &model.ParseError{
			Source: a.Name(),
			Reason: "JobPosting block missing title",
		}
	}

	company := p.HiringOrganization.Name
	if company == "" {
		company = a.companyName
	}

	var locParts []string
	for _, place := range p.JobLocation {
		part := place.Address.Locality
		if place.Address.Region != "" {
			if part != "" {
				part += ", "
			}
			part += place.Address.Region
		}
		if part == "" {
			part = place.Address.Country
		}
		if part != "" {
			locParts = append(locParts, part)
		}
	}

	var remoteHint string
	if strings.EqualFold(p.JobLocationType, "TELECOMMUTE") {
		remoteHint = "remote"
	}

	url := p.URL
	if url == "" {
		url = a.pageURL
	}

	listing := model.RawListing{
		Source:      a.Name(),
		ExternalID:  externalIDFromIdentifier(p.Identifier, url),
		Title:       p.Title,
		Company:     company,
		Location:    strings.Join(locParts, "; "),
		Description: p.Description,
		URL:         url,
		RemoteHint:  remoteHint,
		PostedRaw:   p.DatePosted,
		Currency:    p.BaseSalary.Currency,
	}

	v := p.BaseSalary.Value
	switch {
	case v.MinValue > 0 || v.MaxValue > 0:
		listing.SalaryMin = v.MinValue
		listing.SalaryMax = v.MaxValue
	case v.Value > 0:
		listing.SalaryMin = v.Value
		listing.SalaryMax = v.Value
	}

	return listing, nil
}

// externalIDFromIdentifier pulls a stable id out of the identifier property,
// which sites publish as either a string or a PropertyValue object. Falls
// back to the posting URL.
func externalIDFromIdentifier(raw json.RawMessage, fallback string) string {
	if len(raw) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var pv struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &pv); err == nil && pv.Value != "" {
		return pv.Value
	}
	return fallback
}
