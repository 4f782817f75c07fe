package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amishk599/jobradar/internal/model"
)

const ashbyBaseURL = "https://api.ashbyhq.com/posting-api/job-board"

// ashbyJob represents a single job in the Ashby API response.
type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Location         string `json:"location"`
	JobURL           string `json:"jobUrl"`
	PublishedAt      string `json:"publishedAt"`
	IsListed         bool   `json:"isListed"`
	IsRemote         bool   `json:"isRemote"`
	DescriptionPlain string `json:"descriptionPlain"`
	CompensationTierSummary string `json:"compensationTierSummary"`
}

// ashbyResponse is the top-level Ashby job board API response.
type ashbyResponse struct {
	Jobs []ashbyJob `json:"jobs"`
}

// AshbyAdapter fetches listings from the Ashby public job board API.
type AshbyAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewAshbyAdapter creates a new adapter for an Ashby job board.
func NewAshbyAdapter(boardToken string, companyName string, client *http.Client) *AshbyAdapter {
	return &AshbyAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// Name implements model.SourceAdapter.
func (a *AshbyAdapter) Name() string { return "ashby:" + a.boardToken }

// Fetch retrieves all listed jobs from the board. Unlisted postings are
// silently skipped; malformed ones are reported as ParseErrors.
func (a *AshbyAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	url := fmt.Sprintf("%s/%s?includeCompensation=true", ashbyBaseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, statusError(a.Name(), resp)
	}

	var ashbyResp ashbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&ashbyResp); err != nil {
		return nil, nil, fmt.Errorf("ashby fetch for %s: %w", a.boardToken, err)
	}

	listings := make([]model.RawListing, 0, len(ashbyResp.Jobs))
	var partial []error
	for _, aj := range ashbyResp.Jobs {
		if !aj.IsListed {
			continue
		}
		if aj.Title == "" || aj.JobURL == "" {
			partial = append(partial, &model.ParseError{
				Source:     a.Name(),
				ExternalID: aj.ID,
				Reason:     "missing title or url",
			})
			continue
		}

		var remoteHint string
		if aj.IsRemote {
			remoteHint = "remote"
		}

		listings = append(listings, model.RawListing{
			Source:      a.Name(),
			ExternalID:  aj.ID,
			Title:       aj.Title,
			Company:     a.companyName,
			Location:    aj.Location,
			Description: aj.DescriptionPlain,
			URL:         aj.JobURL,
			SalaryText:  aj.CompensationTierSummary,
			RemoteHint:  remoteHint,
			PostedRaw:   aj.PublishedAt,
		})
	}

	return listings, partial, nil
}
