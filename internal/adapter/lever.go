package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobradar/internal/model"
)

const leverBaseURL = "https://api.lever.co/v0/postings"

// leverCategories represents the categories object in a Lever posting.
type leverCategories struct {
	Team         string   `json:"team"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Commitment   string   `json:"commitment"`
	AllLocations []string `json:"allLocations"`
}

// leverSalaryRange is the optional structured salary block.
type leverSalaryRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
	Interval string  `json:"interval"`
}

// leverJob represents a single posting in the Lever API response.
type leverJob struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	Description      string            `json:"description"`
	DescriptionPlain string            `json:"descriptionPlain"`
	Categories       leverCategories   `json:"categories"`
	SalaryRange      *leverSalaryRange `json:"salaryRange"`
	CreatedAt        int64             `json:"createdAt"`
	WorkplaceType    string            `json:"workplaceType"`
	HostedURL        string            `json:"hostedUrl"`
}

// LeverAdapter fetches listings from the Lever public postings API.
type LeverAdapter struct {
	companySlug string
	companyName string
	client      *http.Client
}

// NewLeverAdapter creates a new adapter for a Lever board.
func NewLeverAdapter(companySlug string, companyName string, client *http.Client) *LeverAdapter {
	return &LeverAdapter{
		companySlug: companySlug,
		companyName: companyName,
		client:      client,
	}
}

// Name implements model.SourceAdapter.
func (a *LeverAdapter) Name() string { return "lever:" + a.companySlug }

// Fetch retrieves all postings on the board and maps them into RawListings.
func (a *LeverAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	url := fmt.Sprintf("%s/%s?mode=json", leverBaseURL, a.companySlug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, statusError(a.Name(), resp)
	}

	var leverJobs []leverJob
	if err := json.NewDecoder(resp.Body).Decode(&leverJobs); err != nil {
		return nil, nil, fmt.Errorf("lever fetch for %s: %w", a.companySlug, err)
	}

	listings := make([]model.RawListing, 0, len(leverJobs))
	var partial []error
	for _, lj := range leverJobs {
		if lj.Text == "" || lj.HostedURL == "" {
			partial = append(partial, &model.ParseError{
				Source:     a.Name(),
				ExternalID: lj.ID,
				Reason:     "missing title or url",
			})
			continue
		}

		// Prefer allLocations when populated, fall back to location.
		location := lj.Categories.Location
		if len(lj.Categories.AllLocations) > 0 {
			location = strings.Join(lj.Categories.AllLocations, ", ")
		}

		description := lj.DescriptionPlain
		if description == "" {
			description = lj.Description
		}

		var postedRaw string
		if lj.CreatedAt > 0 {
			postedRaw = time.UnixMilli(lj.CreatedAt).UTC().Format(time.RFC3339)
		}

		listing := model.RawListing{
			Source:      a.Name(),
			ExternalID:  lj.ID,
			Title:       lj.Text,
			Company:     a.companyName,
			Location:    location,
			Description: description,
			URL:         lj.HostedURL,
			RemoteHint:  lj.WorkplaceType, // "remote", "hybrid", "on-site" or ""
			PostedRaw:   postedRaw,
			Extra: map[string]string{
				"team":       lj.Categories.Team,
				"commitment": lj.Categories.Commitment,
			},
		}
		if lj.SalaryRange != nil {
			listing.SalaryMin = lj.SalaryRange.Min
			listing.SalaryMax = lj.SalaryRange.Max
			listing.Currency = lj.SalaryRange.Currency
		}

		listings = append(listings, listing)
	}

	return listings, partial, nil
}
