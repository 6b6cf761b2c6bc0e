package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/angas/skyphase/config"
	"github.com/angas/skyphase/geocode"
	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	query := flag.String("query", "", "city to search for")
	reverse := flag.String("reverse", "", "coordinates to name, as lat,lon")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn})))
	_ = godotenv.Load()

	cnfg, _, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}

	geocoder := geocode.New(provider.New(provider.OptionsFromConfig(
		"geocoding", cnfg.Provider.GetGeocodingUrl(), cnfg.Provider, "cli")))

	ctx, cancel := context.WithTimeout(context.Background(), cnfg.Provider.GetTimeout())
	defer cancel()

	var place types.Place
	switch {
	case *reverse != "":
		coords, err := parseCoordinates(*reverse)
		if err != nil {
			fail(err)
		}
		place, err = geocoder.Reverse(ctx, coords)
		if err != nil {
			fail(err)
		}
	case strings.TrimSpace(*query) != "":
		place, err = geocoder.Search(ctx, strings.TrimSpace(*query))
		if err != nil {
			fail(err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(place); err != nil {
		fail(err)
	}
}

func parseCoordinates(s string) (types.Coordinates, error) {
	lat, lon, ok := strings.Cut(s, ",")
	if !ok {
		return types.Coordinates{}, fmt.Errorf("invalid coordinates %q, expected lat,lon", s)
	}
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("invalid latitude: %w", err)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return types.Coordinates{}, fmt.Errorf("invalid longitude: %w", err)
	}
	return types.Coordinates{Latitude: latitude, Longitude: longitude}, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
