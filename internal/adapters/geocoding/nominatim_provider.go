package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tjg323/recdotgov/internal/domain/entities"
	"github.com/tjg323/recdotgov/internal/domain/providers"
)

const defaultHTTPTimeout = 10 * time.Second

// NominatimProvider implements GeocodingProvider against the OpenStreetMap
// Nominatim search endpoint, asking for the single best match restricted to
// one country.
type NominatimProvider struct {
	baseURL     string
	userAgent   string
	countryCode string
	httpClient  *http.Client
}

// NewNominatimProvider creates a new Nominatim geocoding provider.
func NewNominatimProvider(baseURL, userAgent, countryCode string) providers.GeocodingProvider {
	return NewNominatimProviderWithClient(baseURL, userAgent, countryCode, nil)
}

// NewNominatimProviderWithClient allows overriding the HTTP client (used for tests).
func NewNominatimProviderWithClient(baseURL, userAgent, countryCode string, httpClient *http.Client) providers.GeocodingProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &NominatimProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		userAgent:   userAgent,
		countryCode: countryCode,
		httpClient:  httpClient,
	}
}

// Resolve converts a place name to coordinates using the first returned match.
func (p *NominatimProvider) Resolve(ctx context.Context, place string) (entities.Coordinates, error) {
	trimmed := strings.TrimSpace(place)
	if trimmed == "" {
		return entities.Coordinates{}, fmt.Errorf("place name is required")
	}

	params := url.Values{}
	params.Set("q", trimmed)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("countrycodes", p.countryCode)

	reqURL := fmt.Sprintf("%s?%s", p.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return entities.Coordinates{}, fmt.Errorf("failed to build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return entities.Coordinates{}, &entities.UpstreamError{Op: "geocode", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return entities.Coordinates{}, &entities.UpstreamError{
			Op:  "geocode",
			Err: fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return entities.Coordinates{}, &entities.UpstreamError{Op: "geocode", Err: err}
	}

	if len(results) == 0 {
		return entities.Coordinates{}, fmt.Errorf("%q: %w", trimmed, entities.ErrLocationNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return entities.Coordinates{}, &entities.UpstreamError{Op: "geocode", Err: fmt.Errorf("non-numeric latitude %q", results[0].Lat)}
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return entities.Coordinates{}, &entities.UpstreamError{Op: "geocode", Err: fmt.Errorf("non-numeric longitude %q", results[0].Lon)}
	}

	return entities.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// Nominatim returns coordinates as JSON strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}
