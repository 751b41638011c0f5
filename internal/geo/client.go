package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"eventchat/internal/config"
)

// Client reverse-geocodes coordinates against a Nominatim-style endpoint.
// One stateless call; callers always treat the result as optional.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

func NewClient(cfg config.GeocodeConfig) *Client {
	base := cfg.URL
	if base == "" {
		base = "https://nominatim.openstreetmap.org/reverse"
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = "eventchat/1.0"
	}
	return &Client{
		baseURL:    base,
		userAgent:  agent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ReverseGeocode resolves (lat, lon) to a city-level place name.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid geocode URL: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geocode returned status %d", resp.StatusCode)
	}

	var parsed struct {
		DisplayName string `json:"display_name"`
		Address     struct {
			City    string `json:"city"`
			Town    string `json:"town"`
			Village string `json:"village"`
			State   string `json:"state"`
			Country string `json:"country"`
		} `json:"address"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse geocode response: %w", err)
	}

	for _, candidate := range []string{parsed.Address.City, parsed.Address.Town, parsed.Address.Village, parsed.Address.State} {
		if candidate != "" {
			return candidate, nil
		}
	}
	if parsed.DisplayName != "" {
		return parsed.DisplayName, nil
	}
	return "", fmt.Errorf("no place name in geocode response")
}
