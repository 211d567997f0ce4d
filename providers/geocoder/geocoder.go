// Package geocoder resolves coordinates to addresses and back against a
// Nominatim-compatible HTTP API, and decodes plus-style location codes via
// the same service's search endpoint.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wasgeurtjeNL/prop-pulse-sub000/external"
)

type Client struct {
	BaseURL   string
	UserAgent string
	HTTP      *http.Client
}

var _ external.Geocoder = (*Client)(nil)

func New(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		Suburb   string `json:"suburb"`
		Town     string `json:"town"`
		City     string `json:"city"`
		District string `json:"city_district"`
		County   string `json:"county"`
	} `json:"address"`
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (external.Place, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("format", "jsonv2")

	var out reverseResponse
	if err := c.get(ctx, "/reverse", q, &out); err != nil {
		return external.Place{}, fmt.Errorf("reverse geocode: %w", err)
	}
	district := firstNonEmpty(out.Address.Suburb, out.Address.District, out.Address.Town, out.Address.City, out.Address.County)
	return external.Place{Address: out.DisplayName, District: district}, nil
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (c *Client) Forward(ctx context.Context, text string) (external.Coordinates, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")

	var results []searchResult
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return external.Coordinates{}, fmt.Errorf("forward geocode: %w", err)
	}
	if len(results) == 0 {
		return external.Coordinates{}, fmt.Errorf("no geocoding result for %q", text)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return external.Coordinates{}, err
	}
	lng, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return external.Coordinates{}, err
	}
	return external.Coordinates{Lat: lat, Lng: lng}, nil
}

// ResolveLocationCode decodes a plus code by searching for it. Nominatim
// and compatible services accept full plus codes as queries.
func (c *Client) ResolveLocationCode(ctx context.Context, code string) (external.Coordinates, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return external.Coordinates{}, fmt.Errorf("empty location code")
	}
	return c.Forward(ctx, code)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("geocoder http %d: %s", resp.StatusCode, string(raw))
	}
	return json.Unmarshal(raw, out)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
