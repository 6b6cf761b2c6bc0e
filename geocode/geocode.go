// Package geocode talks to the Open-Meteo geocoding API.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
)

const DefaultBaseURL = "https://geocoding-api.open-meteo.com"

var ErrNotFound = errors.New("no matching place")

type result struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
	Country     string  `json:"country"`
	Admin1      string  `json:"admin1"`
}

type response struct {
	Results []result `json:"results"`
}

type Client struct {
	http *provider.Client
}

func New(http *provider.Client) *Client {
	return &Client{http: http}
}

// Search returns the best match for name, labelled "Name, CC".
func (c *Client) Search(ctx context.Context, name string) (types.Place, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var resp response
	if err := c.http.GetJSON(ctx, "/v1/search", q, &resp); err != nil {
		return types.Place{}, fmt.Errorf("geocoding %q: %w", name, err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Name == "" {
		return types.Place{}, fmt.Errorf("geocoding %q: %w", name, ErrNotFound)
	}
	return resp.Results[0].place(), nil
}

// Reverse returns the place closest to coords.
func (c *Client) Reverse(ctx context.Context, coords types.Coordinates) (types.Place, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	q.Set("language", "en")

	var resp response
	if err := c.http.GetJSON(ctx, "/v1/reverse", q, &resp); err != nil {
		return types.Place{}, fmt.Errorf("reverse geocoding %s: %w", coords, err)
	}
	if len(resp.Results) == 0 || resp.Results[0].Name == "" {
		return types.Place{}, fmt.Errorf("reverse geocoding %s: %w", coords, ErrNotFound)
	}

	p := resp.Results[0].place()
	// Keep the device position, the match is only used for its name.
	p.Coordinates = coords
	return p, nil
}

func (r result) place() types.Place {
	name := strings.TrimSpace(r.Name)
	if r.CountryCode != "" {
		name = fmt.Sprintf("%s, %s", name, r.CountryCode)
	}
	return types.Place{
		Name:        name,
		Coordinates: types.Coordinates{Latitude: r.Latitude, Longitude: r.Longitude},
	}
}
