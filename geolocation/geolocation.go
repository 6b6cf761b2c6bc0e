// Package geolocation stands in for the device location service: a
// permission prompt followed by a position lookup.
package geolocation

import (
	"context"
	"errors"
	"fmt"

	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
)

var ErrPositionUnavailable = errors.New("position unavailable")

type Locator interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (types.Coordinates, error)
}

// Denied never grants permission.
type Denied struct{}

func (Denied) RequestPermission(context.Context) (bool, error) {
	return false, nil
}

func (Denied) CurrentPosition(context.Context) (types.Coordinates, error) {
	return types.Coordinates{}, ErrPositionUnavailable
}

// Static reports a fixed position, e.g. a stationary display.
type Static struct {
	Position types.Coordinates
}

func (Static) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (s Static) CurrentPosition(context.Context) (types.Coordinates, error) {
	return s.Position, nil
}

const DefaultIPLookupURL = "http://ip-api.com"

// IPLookup approximates the position from the public IP address.
type IPLookup struct {
	http *provider.Client
}

func NewIPLookup(http *provider.Client) *IPLookup {
	return &IPLookup{http: http}
}

func (l *IPLookup) RequestPermission(context.Context) (bool, error) {
	return true, nil
}

func (l *IPLookup) CurrentPosition(ctx context.Context) (types.Coordinates, error) {
	var resp struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := l.http.GetJSON(ctx, "/json", nil, &resp); err != nil {
		return types.Coordinates{}, fmt.Errorf("ip lookup: %w", err)
	}
	if resp.Status != "success" {
		return types.Coordinates{}, fmt.Errorf("ip lookup %s %s: %w", resp.Status, resp.Message, ErrPositionUnavailable)
	}
	return types.Coordinates{Latitude: resp.Lat, Longitude: resp.Lon}, nil
}
