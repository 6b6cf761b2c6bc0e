package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angas/skyphase/config"
	"github.com/angas/skyphase/engine"
	"github.com/angas/skyphase/geocode"
	"github.com/angas/skyphase/geolocation"
	"github.com/angas/skyphase/location"
	"github.com/angas/skyphase/openmeteo"
	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
	"github.com/angas/skyphase/types/maybe"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	query := flag.String("query", "", "city to look up, the configured fallback city when empty")
	temp := flag.String("temp", "", "temperature unit, celsius or fahrenheit")
	wind := flag.String("wind", "", "wind speed unit, kmh or mph")
	flag.Parse()

	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelWarn})))
	_ = godotenv.Load()

	cnfg, _, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}

	tempUnit := cnfg.Units.GetTemperature()
	if *temp != "" {
		if tempUnit, err = types.ParseTempUnit(*temp); err != nil {
			fail(err)
		}
	}
	windUnit := cnfg.Units.GetWind()
	if *wind != "" {
		if windUnit, err = types.ParseWindUnit(*wind); err != nil {
			fail(err)
		}
	}

	geocoder := geocode.New(provider.New(provider.OptionsFromConfig(
		"geocoding", cnfg.Provider.GetGeocodingUrl(), cnfg.Provider, "cli")))
	forecast := openmeteo.New(provider.New(provider.OptionsFromConfig(
		"forecast", cnfg.Provider.GetForecastUrl(), cnfg.Provider, "cli")))
	resolver := location.NewResolver(geocoder, geolocation.Denied{}, cnfg.Location.GetFallbackCity())

	eng := engine.New(resolver, forecast, engine.Options{TempUnit: tempUnit, WindUnit: windUnit})

	ctx, cancel := context.WithTimeout(context.Background(), cnfg.Refresh.GetTimeout())
	defer cancel()

	if *query != "" {
		err = eng.SubmitSearch(ctx, *query)
	} else {
		err = eng.Start(ctx)
	}
	if err != nil {
		fail(err)
	}

	st := eng.State()
	out := struct {
		Place    maybe.Maybe[types.Place]           `json:"place"`
		Snapshot maybe.Maybe[types.WeatherSnapshot] `json:"snapshot"`
		Theme    engine.Appearance                  `json:"theme"`
	}{
		Place:    st.Place,
		Snapshot: st.Snapshot,
		Theme:    eng.Theme(time.Now()),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
