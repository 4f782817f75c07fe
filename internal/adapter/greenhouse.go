package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amishk599/jobradar/internal/model"
)

const greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"

// greenhouseJob represents a single job in the Greenhouse API response.
type greenhouseJob struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Location    greenhouseLocation `json:"location"`
	Content     string             `json:"content"`
	AbsoluteURL string             `json:"absolute_url"`
	UpdatedAt   string             `json:"updated_at"`
	FirstPublished string          `json:"first_published"`
}

type greenhouseLocation struct {
	Name string `json:"name"`
}

// greenhouseResponse is the top-level Greenhouse jobs API response.
type greenhouseResponse struct {
	Jobs []greenhouseJob `json:"jobs"`
}

// GreenhouseAdapter fetches listings from the Greenhouse public boards API.
type GreenhouseAdapter struct {
	boardToken  string
	companyName string
	client      *http.Client
}

// NewGreenhouseAdapter creates a new adapter for a Greenhouse board.
func NewGreenhouseAdapter(boardToken string, companyName string, client *http.Client) *GreenhouseAdapter {
	return &GreenhouseAdapter{
		boardToken:  boardToken,
		companyName: companyName,
		client:      client,
	}
}

// Name implements model.SourceAdapter.
func (a *GreenhouseAdapter) Name() string { return "greenhouse:" + a.boardToken }

// Fetch retrieves all jobs on the board. Individually malformed entries are
// skipped and reported as ParseErrors; only transport, auth, and decode
// failures of the whole response are fatal.
func (a *GreenhouseAdapter) Fetch(ctx context.Context, _ model.Query) ([]model.RawListing, []error, error) {
	url := fmt.Sprintf("%s/%s/jobs?content=true", greenhouseBaseURL, a.boardToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, statusError(a.Name(), resp)
	}

	var ghResp greenhouseResponse
	if err := json.NewDecoder(resp.Body).Decode(&ghResp); err != nil {
		return nil, nil, fmt.Errorf("greenhouse fetch for %s: %w", a.boardToken, err)
	}

	listings := make([]model.RawListing, 0, len(ghResp.Jobs))
	var partial []error
	for _, gj := range ghResp.Jobs {
		if gj.Title == "" || gj.AbsoluteURL == "" {
			partial = append(partial, &model.ParseError{
				Source:     a.Name(),
				ExternalID: fmt.Sprintf("%d", gj.ID),
				Reason:     "missing title or url",
			})
			continue
		}

		postedRaw := gj.FirstPublished
		if postedRaw == "" {
			postedRaw = gj.UpdatedAt
		}

		listings = append(listings, model.RawListing{
			Source:      a.Name(),
			ExternalID:  fmt.Sprintf("%d", gj.ID),
			Title:       gj.Title,
			Company:     a.companyName,
			Location:    gj.Location.Name,
			Description: gj.Content,
			URL:         gj.AbsoluteURL,
			PostedRaw:   postedRaw,
		})
	}

	return listings, partial, nil
}
