package location

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angas/skyphase/geocode"
	"github.com/angas/skyphase/geolocation"
	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
)

type fakeGeocoder struct {
	places     map[string]types.Place
	searchErr  error
	reverse    types.Place
	reverseErr error
	searches   []string
}

func (g *fakeGeocoder) Search(_ context.Context, name string) (types.Place, error) {
	g.searches = append(g.searches, name)
	if g.searchErr != nil {
		return types.Place{}, g.searchErr
	}
	if p, ok := g.places[name]; ok {
		return p, nil
	}
	return types.Place{}, fmt.Errorf("search %q: %w", name, geocode.ErrNotFound)
}

func (g *fakeGeocoder) Reverse(_ context.Context, coords types.Coordinates) (types.Place, error) {
	if g.reverseErr != nil {
		return types.Place{}, g.reverseErr
	}
	p := g.reverse
	p.Coordinates = coords
	return p, nil
}

type failingLocator struct{}

func (failingLocator) RequestPermission(context.Context) (bool, error) { return true, nil }
func (failingLocator) CurrentPosition(context.Context) (types.Coordinates, error) {
	return types.Coordinates{}, geolocation.ErrPositionUnavailable
}

var (
	sanFrancisco = types.Place{Name: "San Francisco, US", Coordinates: types.Coordinates{Latitude: 37.77, Longitude: -122.42}}
	device       = types.Coordinates{Latitude: 48.85, Longitude: 2.35}
)

func TestResolveInitial(t *testing.T) {
	tests := []struct {
		name     string
		geocoder *fakeGeocoder
		locator  geolocation.Locator
		expected types.Place
		err      error
	}{
		{
			name:     "permission denied uses fallback city",
			geocoder: &fakeGeocoder{places: map[string]types.Place{"San Francisco": sanFrancisco}},
			locator:  geolocation.Denied{},
			expected: sanFrancisco,
		},
		{
			name:     "granted with reverse match",
			geocoder: &fakeGeocoder{reverse: types.Place{Name: "Paris, FR"}},
			locator:  geolocation.Static{Position: device},
			expected: types.Place{Name: "Paris, FR", Coordinates: device},
		},
		{
			name:     "granted without reverse match",
			geocoder: &fakeGeocoder{reverseErr: geocode.ErrNotFound},
			locator:  geolocation.Static{Position: device},
			expected: types.Place{Name: "Current Location", Coordinates: device},
		},
		{
			name:     "granted with reverse failure",
			geocoder: &fakeGeocoder{reverseErr: provider.ErrUnavailable},
			locator:  geolocation.Static{Position: device},
			expected: types.Place{Name: "Current Location", Coordinates: device},
		},
		{
			name:     "position failure uses fallback city",
			geocoder: &fakeGeocoder{places: map[string]types.Place{"San Francisco": sanFrancisco}},
			locator:  failingLocator{},
			expected: sanFrancisco,
		},
		{
			name:     "fallback city lookup fails",
			geocoder: &fakeGeocoder{searchErr: provider.ErrUnavailable},
			locator:  geolocation.Denied{},
			err:      ErrLocationUnavailable,
		},
		{
			name:     "fallback city not found",
			geocoder: &fakeGeocoder{},
			locator:  geolocation.Denied{},
			err:      ErrLocationUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.geocoder, tt.locator, "")
			got, err := r.ResolveInitial(context.Background())
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestResolveInitialConfiguredFallback(t *testing.T) {
	oslo := types.Place{Name: "Oslo, NO"}
	g := &fakeGeocoder{places: map[string]types.Place{"Oslo": oslo}}
	got, err := NewResolver(g, nil, "Oslo").ResolveInitial(context.Background())
	if err != nil || got != oslo {
		t.Errorf("expected %+v, got %+v %v", oslo, got, err)
	}
}

func TestResolveByQuery(t *testing.T) {
	tokyo := types.Place{Name: "Tokyo, JP", Coordinates: types.Coordinates{Latitude: 35.68, Longitude: 139.69}}

	tests := []struct {
		name         string
		query        string
		geocoder     *fakeGeocoder
		expected     types.Place
		err          error
		wantSearches int
	}{
		{"found", "Tokyo", &fakeGeocoder{places: map[string]types.Place{"Tokyo": tokyo}}, tokyo, nil, 1},
		{"trimmed", "  Tokyo\t", &fakeGeocoder{places: map[string]types.Place{"Tokyo": tokyo}}, tokyo, nil, 1},
		{"empty", "", &fakeGeocoder{}, types.Place{}, ErrEmptyQuery, 0},
		{"whitespace", "   ", &fakeGeocoder{}, types.Place{}, ErrEmptyQuery, 0},
		{"not found", "Xyzzyville", &fakeGeocoder{}, types.Place{}, ErrNotFound, 1},
		{"network failure", "Tokyo", &fakeGeocoder{searchErr: provider.ErrUnavailable}, types.Place{}, ErrLocationUnavailable, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.geocoder, geolocation.Denied{}, "")
			got, err := r.ResolveByQuery(context.Background(), tt.query)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
			if len(tt.geocoder.searches) != tt.wantSearches {
				t.Errorf("expected %d geocoder calls, got %d", tt.wantSearches, len(tt.geocoder.searches))
			}
		})
	}
}
