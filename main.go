package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/angas/skyphase/broker"
	"github.com/angas/skyphase/config"
	"github.com/angas/skyphase/database"
	"github.com/angas/skyphase/engine"
	"github.com/angas/skyphase/geocode"
	"github.com/angas/skyphase/geolocation"
	"github.com/angas/skyphase/location"
	"github.com/angas/skyphase/logging"
	"github.com/angas/skyphase/metrics"
	"github.com/angas/skyphase/openmeteo"
	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/task"
	"github.com/angas/skyphase/types"
	"github.com/angas/skyphase/types/maybe"
	"github.com/angas/skyphase/www"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A missing .env file is fine, the environment may already be set.
	_ = godotenv.Load()

	cnfg, loader, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("skyphase is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	metrics.SetVersion(Version)

	geocoder := geocode.New(provider.New(provider.OptionsFromConfig(
		"geocoding", cnfg.Provider.GetGeocodingUrl(), cnfg.Provider, Version)))
	forecast := openmeteo.New(provider.New(provider.OptionsFromConfig(
		"forecast", cnfg.Provider.GetForecastUrl(), cnfg.Provider, Version)))

	resolver := location.NewResolver(geocoder, newLocator(cnfg), cnfg.Location.GetFallbackCity())

	eng := engine.New(resolver, forecast, engine.Options{
		TempUnit: cnfg.Units.GetTemperature(),
		WindUnit: cnfg.Units.GetWind(),
		Timeout:  cnfg.Refresh.GetTimeout(),
	})
	eng.OnCycle = func(c engine.Cycle) {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.SaveFetchCycle(saveCtx, fetchCycleRow(c)); err != nil {
			logger.Warn("failed to save fetch cycle", slog.Uint64("seq", c.Seq), slog.Any("error", err))
		}
	}

	server := www.NewServer(eng, db, cnfg.Api)
	eng.Subscribe(server.Publish)

	if cnfg.Mqtt.Enabled {
		publisher := broker.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.Port,
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.GetTopic())
		publisher.Connect()
		defer publisher.Disconnect()
		eng.Subscribe(publisher.Publish)
	}

	loader.WatchUnits(logger.With("module", "config"), func(u config.AppConfigUnits) {
		if err := eng.SetTempUnit(ctx, u.GetTemperature()); err != nil {
			logger.Warn("temperature unit change failed", slog.Any("error", err))
		}
		if err := eng.SetWindUnit(ctx, u.GetWind()); err != nil {
			logger.Warn("wind unit change failed", slog.Any("error", err))
		}
	})

	tasks := task.NewTasks(eng, db, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	go func() {
		if err := eng.Start(ctx); err != nil {
			logger.Warn("initial weather fetch failed", slog.Any("error", err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server.Run(ctx)
}

func newLocator(cnfg *config.AppConfig) geolocation.Locator {
	device := cnfg.Location.Device
	switch device.GetMode() {
	case "static":
		return geolocation.Static{Position: types.Coordinates{Latitude: device.Latitude, Longitude: device.Longitude}}
	case "ip":
		return geolocation.NewIPLookup(provider.New(provider.OptionsFromConfig(
			"ip_lookup", cnfg.Provider.GetIpLookupUrl(), cnfg.Provider, Version)))
	default:
		return geolocation.Denied{}
	}
}

func fetchCycleRow(c engine.Cycle) database.FetchCycleRow {
	r := database.FetchCycleRow{
		Seq:       c.Seq,
		Started:   c.Started,
		Source:    string(c.Trigger),
		TempUnit:  string(c.TempUnit),
		WindUnit:  string(c.WindUnit),
		Outcome:   string(c.Outcome),
		ErrorKind: string(c.Error),
		Duration:  c.Duration,
		Discarded: c.Discarded,
	}
	if c.Place.Name != "" {
		r.Place = maybe.Some(c.Place.Name)
		r.Latitude = maybe.Some(c.Place.Coordinates.Latitude)
		r.Longitude = maybe.Some(c.Place.Coordinates.Longitude)
	}
	if c.Err != nil {
		r.Error = c.Err.Error()
	}
	return r
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
