package recreation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

// Client fetches per-facility monthly availability from the recreation.gov
// availability endpoint. It is not safe for concurrent use; callers that
// fetch in parallel give each worker its own Client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an availability client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ providers.AvailabilityClient = (*Client)(nil)

// FetchMonth requests the availability payload for the facility, anchored at
// the first instant of the month (UTC).
func (c *Client) FetchMonth(ctx context.Context, facilityID, month string) (entities.AvailabilityPayload, error) {
	startDate := fmt.Sprintf("%s-01T00:00:00.000Z", month)
	endpoint := fmt.Sprintf(
		"%s/api/camps/availability/campground/%s/month?start_date=%s",
		c.baseURL, url.PathEscape(facilityID), url.QueryEscape(startDate),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build availability request: %w", err)
	}
	for k, v := range browserHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &entities.UpstreamError{Op: "availability", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("facility %s: %w", facilityID, entities.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &entities.UpstreamError{
			Op:  "availability",
			Err: fmt.Errorf("facility %s: status %d", facilityID, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &entities.UpstreamError{Op: "availability", Err: err}
	}
	if !json.Valid(body) {
		return nil, &entities.ParseError{Source: "availability response", Err: fmt.Errorf("facility %s: body is not valid JSON", facilityID)}
	}
	return entities.AvailabilityPayload(body), nil
}
