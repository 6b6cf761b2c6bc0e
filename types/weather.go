package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/angas/skyphase/types/maybe"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Place is a resolved location with the label shown to the user.
type Place struct {
	Name        string      `json:"name"`
	Coordinates Coordinates `json:"coordinates"`
}

type TempUnit string

const (
	Celsius    TempUnit = "celsius"
	Fahrenheit TempUnit = "fahrenheit"
)

func ParseTempUnit(s string) (TempUnit, error) {
	switch u := TempUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case Celsius, Fahrenheit:
		return u, nil
	}
	return "", fmt.Errorf("unknown temperature unit %q", s)
}

type WindUnit string

const (
	Kmh WindUnit = "kmh"
	Mph WindUnit = "mph"
)

func ParseWindUnit(s string) (WindUnit, error) {
	switch u := WindUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case Kmh, Mph:
		return u, nil
	}
	return "", fmt.Errorf("unknown wind speed unit %q", s)
}

type CurrentConditions struct {
	ObservedAt    time.Time `json:"observedAt"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Humidity      float64   `json:"humidity"`      // Percent, 0-100
	WindSpeed     float64   `json:"windSpeed"`     // In the requested wind unit
	WindDirection float64   `json:"windDirection"` // Degrees, 0-360
	UvIndex       float64   `json:"uvIndex"`
	WeatherCode   int       `json:"weatherCode"`
	Description   string    `json:"description"` // Filled by wmo.Decorate
	UvSeverity    string    `json:"uvSeverity"`  // Filled by wmo.Decorate
}

type HourlyPoint struct {
	Time        time.Time `json:"time"`
	Label       string    `json:"label"` // "3PM", "12AM"
	Temperature float64   `json:"temperature"`
	WeatherCode int       `json:"weatherCode"`
}

type DailyPoint struct {
	Date        time.Time `json:"date"`
	Weekday     string    `json:"weekday"` // "Today", "Mon", ...
	Max         float64   `json:"max"`
	Min         float64   `json:"min"`
	WeatherCode int       `json:"weatherCode"`
}

// WeatherSnapshot is the normalized result of one fetch cycle.
// It is never mutated after it has been published.
type WeatherSnapshot struct {
	LocationName string                         `json:"locationName"`
	Current      maybe.Maybe[CurrentConditions] `json:"current"`
	Hourly       []HourlyPoint                  `json:"hourly"`
	Daily        []DailyPoint                   `json:"daily"`
	Sunrise      maybe.Maybe[time.Time]         `json:"sunrise"`
	Sunset       maybe.Maybe[time.Time]         `json:"sunset"`
}
