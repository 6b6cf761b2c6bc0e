// Package location turns a device position or a search query into a named place.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/angas/skyphase/geocode"
	"github.com/angas/skyphase/geolocation"
	"github.com/angas/skyphase/types"
)

const (
	DefaultFallbackCity = "San Francisco"
	UnnamedPosition     = "Current Location"
)

var (
	ErrEmptyQuery          = errors.New("empty search query")
	ErrNotFound            = errors.New("city not found")
	ErrLocationUnavailable = errors.New("location unavailable")
)

type Resolver struct {
	logger       *slog.Logger
	geocoder     types.Geocoder
	locator      geolocation.Locator
	fallbackCity string
}

func NewResolver(geocoder types.Geocoder, locator geolocation.Locator, fallbackCity string) *Resolver {
	if strings.TrimSpace(fallbackCity) == "" {
		fallbackCity = DefaultFallbackCity
	}
	if locator == nil {
		locator = geolocation.Denied{}
	}
	return &Resolver{
		logger:       slog.Default().With("module", "location"),
		geocoder:     geocoder,
		locator:      locator,
		fallbackCity: fallbackCity,
	}
}

// ResolveInitial prefers the device position and falls back to the
// fallback city whenever the position can't be had.
func (r *Resolver) ResolveInitial(ctx context.Context) (types.Place, error) {
	granted, err := r.locator.RequestPermission(ctx)
	if err != nil {
		r.logger.Warn("location permission request failed", slog.Any("error", err))
		granted = false
	}
	if !granted {
		r.logger.Info("location permission denied, using fallback city", slog.String("city", r.fallbackCity))
		return r.fallback(ctx)
	}

	coords, err := r.locator.CurrentPosition(ctx)
	if err != nil {
		r.logger.Warn("current position unavailable, using fallback city", slog.String("city", r.fallbackCity), slog.Any("error", err))
		return r.fallback(ctx)
	}

	place, err := r.geocoder.Reverse(ctx, coords)
	if err != nil {
		if !errors.Is(err, geocode.ErrNotFound) {
			r.logger.Warn("reverse geocoding failed", slog.String("coordinates", coords.String()), slog.Any("error", err))
		}
		return types.Place{Name: UnnamedPosition, Coordinates: coords}, nil
	}
	return place, nil
}

// ResolveByQuery never touches the network for a blank query.
func (r *Resolver) ResolveByQuery(ctx context.Context, query string) (types.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return types.Place{}, ErrEmptyQuery
	}

	place, err := r.geocoder.Search(ctx, query)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return types.Place{}, fmt.Errorf("%w: %q", ErrNotFound, query)
		}
		return types.Place{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	return place, nil
}

func (r *Resolver) fallback(ctx context.Context) (types.Place, error) {
	place, err := r.geocoder.Search(ctx, r.fallbackCity)
	if err != nil {
		return types.Place{}, fmt.Errorf("%w: fallback city %q: %v", ErrLocationUnavailable, r.fallbackCity, err)
	}
	return place, nil
}
