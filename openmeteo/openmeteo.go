// Package openmeteo fetches forecasts from the Open-Meteo API and
// normalizes them into a WeatherSnapshot.
package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angas/skyphase/hours"
	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
	"github.com/angas/skyphase/types/maybe"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"
	MaxDays        = 7
)

var (
	ErrUnavailable = errors.New("forecast unavailable")
	ErrMalformed   = errors.New("malformed forecast")
)

var (
	currentVars = []string{"temperature_2m", "relative_humidity_2m", "apparent_temperature", "weather_code", "wind_speed_10m", "wind_direction_10m", "uv_index"}
	hourlyVars  = []string{"temperature_2m", "weather_code", "apparent_temperature", "relative_humidity_2m", "wind_speed_10m", "uv_index"}
	dailyVars   = []string{"weather_code", "temperature_2m_max", "temperature_2m_min", "sunrise", "sunset", "uv_index_max"}
)

type Client struct {
	http *provider.Client
}

func New(http *provider.Client) *Client {
	return &Client{http: http}
}

// Params builds the query for a single forecast request. Units are
// passed through, the provider does the conversion.
func Params(coords types.Coordinates, temp types.TempUnit, wind types.WindUnit) url.Values {
	if temp != types.Fahrenheit {
		temp = types.Celsius
	}
	if wind != types.Mph {
		wind = types.Kmh
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	q.Set("current", strings.Join(currentVars, ","))
	q.Set("hourly", strings.Join(hourlyVars, ","))
	q.Set("daily", strings.Join(dailyVars, ","))
	q.Set("timezone", "auto")
	q.Set("temperature_unit", string(temp))
	q.Set("wind_speed_unit", string(wind))
	return q
}

func (c *Client) Forecast(ctx context.Context, coords types.Coordinates, temp types.TempUnit, wind types.WindUnit) (types.WeatherSnapshot, error) {
	var resp Response
	if err := c.http.GetJSON(ctx, "/v1/forecast", Params(coords, temp, wind), &resp); err != nil {
		return types.WeatherSnapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	snap, err := Normalize(resp)
	if err != nil {
		return types.WeatherSnapshot{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return snap, nil
}

// Normalize is pure, the same response always gives the same snapshot.
// Description and UV severity of the current conditions are left blank.
func Normalize(resp Response) (types.WeatherSnapshot, error) {
	if resp.Current == nil {
		return types.WeatherSnapshot{}, fmt.Errorf("%w: no current conditions", ErrMalformed)
	}

	loc := hours.Zone(resp.TimezoneAbbreviation, resp.UtcOffsetSeconds)

	current, err := normalizeCurrent(resp.Current, resp.Daily, loc)
	if err != nil {
		return types.WeatherSnapshot{}, err
	}

	hourly := normalizeHourly(resp.Hourly, loc)
	daily := normalizeDaily(resp.Daily, loc)

	snap := types.WeatherSnapshot{
		Current: maybe.Some(current),
		Hourly:  hourly,
		Daily:   daily,
		Sunrise: maybe.None[time.Time](),
		Sunset:  maybe.None[time.Time](),
	}
	if resp.Daily != nil {
		snap.Sunrise = firstTime(resp.Daily.Sunrise, loc)
		snap.Sunset = firstTime(resp.Daily.Sunset, loc)
	}
	return snap, nil
}

func normalizeCurrent(c *Current, daily *Daily, loc *time.Location) (types.CurrentConditions, error) {
	cc := types.CurrentConditions{
		Temperature:   deref(c.Temperature),
		FeelsLike:     deref(c.ApparentTemperature),
		Humidity:      deref(c.RelativeHumidity),
		WindSpeed:     deref(c.WindSpeed),
		WindDirection: deref(c.WindDirection),
		WeatherCode:   deref(c.WeatherCode),
	}

	if c.Time != "" {
		t, err := hours.ParseLocal(c.Time, loc)
		if err != nil {
			return types.CurrentConditions{}, fmt.Errorf("%w: current time: %v", ErrMalformed, err)
		}
		cc.ObservedAt = t
	}

	// Live UV first, then today's maximum, then zero.
	switch {
	case c.UvIndex != nil:
		cc.UvIndex = *c.UvIndex
	case daily != nil && len(daily.UvIndexMax) > 0:
		cc.UvIndex = daily.UvIndexMax[0]
	}

	return cc, nil
}

// normalizeHourly skips points whose time does not parse, a null in the
// provider's time array decodes as "".
func normalizeHourly(h *Hourly, loc *time.Location) []types.HourlyPoint {
	if h == nil {
		return []types.HourlyPoint{}
	}

	n := min(len(h.Time), len(h.Temperature), len(h.WeatherCode))
	points := make([]types.HourlyPoint, 0, n)
	for i := 0; i < n; i++ {
		t, err := hours.ParseLocal(h.Time[i], loc)
		if err != nil {
			continue
		}
		points = append(points, types.HourlyPoint{
			Time:        t,
			Label:       hours.Label(t),
			Temperature: h.Temperature[i],
			WeatherCode: h.WeatherCode[i],
		})
	}
	return points
}

// normalizeDaily reads the first MaxDays provider entries. Entries with a bad
// date or dated before the previous kept day are dropped, not replaced.
func normalizeDaily(d *Daily, loc *time.Location) []types.DailyPoint {
	if d == nil {
		return []types.DailyPoint{}
	}

	n := min(len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin), len(d.WeatherCode), MaxDays)
	points := make([]types.DailyPoint, 0, n)
	for i := 0; i < n; i++ {
		date, err := hours.ParseLocal(d.Time[i], loc)
		if err != nil {
			continue
		}
		if len(points) > 0 && date.Before(points[len(points)-1].Date) {
			continue
		}
		points = append(points, types.DailyPoint{
			Date:        date,
			Weekday:     hours.WeekdayLabel(len(points), date),
			Max:         d.TemperatureMax[i],
			Min:         d.TemperatureMin[i],
			WeatherCode: d.WeatherCode[i],
		})
	}
	return points
}

func firstTime(values []string, loc *time.Location) maybe.Maybe[time.Time] {
	if len(values) == 0 || values[0] == "" {
		return maybe.None[time.Time]()
	}
	t, err := hours.ParseLocal(values[0], loc)
	if err != nil {
		return maybe.None[time.Time]()
	}
	return maybe.Some(t)
}

func deref[T any](p *T) T {
	return maybe.FromPtr(p).ValueOrDefault(*new(T))
}
