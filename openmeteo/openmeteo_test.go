package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/angas/skyphase/provider"
	"github.com/angas/skyphase/types"
)

func loadFixture(t *testing.T) Response {
	t.Helper()
	data, err := os.ReadFile("testdata/forecast_tokyo.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return resp
}

func ptr[T any](v T) *T {
	return &v
}

func TestParams(t *testing.T) {
	tests := []struct {
		name     string
		temp     types.TempUnit
		wind     types.WindUnit
		expected map[string]string
	}{
		{
			name: "metric",
			temp: types.Celsius,
			wind: types.Kmh,
			expected: map[string]string{
				"latitude":         "37.7749",
				"longitude":        "-122.4194",
				"current":          "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,uv_index",
				"hourly":           "temperature_2m,weather_code,apparent_temperature,relative_humidity_2m,wind_speed_10m,uv_index",
				"daily":            "weather_code,temperature_2m_max,temperature_2m_min,sunrise,sunset,uv_index_max",
				"timezone":         "auto",
				"temperature_unit": "celsius",
				"wind_speed_unit":  "kmh",
			},
		},
		{
			name: "imperial",
			temp: types.Fahrenheit,
			wind: types.Mph,
			expected: map[string]string{
				"temperature_unit": "fahrenheit",
				"wind_speed_unit":  "mph",
			},
		},
		{
			name: "unknown units fall back to metric",
			temp: "",
			wind: "",
			expected: map[string]string{
				"temperature_unit": "celsius",
				"wind_speed_unit":  "kmh",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Params(types.Coordinates{Latitude: 37.7749, Longitude: -122.4194}, tt.temp, tt.wind)
			for k, v := range tt.expected {
				if got := q.Get(k); got != v {
					t.Errorf("%s expected %q, got %q", k, v, got)
				}
			}
		})
	}
}

func TestNormalizeFixture(t *testing.T) {
	snap, err := Normalize(loadFixture(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	jst := time.FixedZone("JST", 9*3600)

	if !snap.Current.IsValid() {
		t.Fatalf("expected current conditions")
	}
	c := snap.Current.Value()
	if !c.ObservedAt.Equal(time.Date(2025, 6, 1, 14, 45, 0, 0, jst)) {
		t.Errorf("unexpected observation time %v", c.ObservedAt)
	}
	if c.Temperature != 24.3 || c.FeelsLike != 25.1 || c.Humidity != 61 || c.WindSpeed != 11.2 || c.WindDirection != 135 {
		t.Errorf("unexpected current conditions %+v", c)
	}
	if c.UvIndex != 6.35 {
		t.Errorf("expected live uv index 6.35, got %v", c.UvIndex)
	}
	if c.WeatherCode != 2 {
		t.Errorf("expected weather code 2, got %d", c.WeatherCode)
	}
	if c.Description != "" || c.UvSeverity != "" {
		t.Errorf("derived text must be left blank, got %q %q", c.Description, c.UvSeverity)
	}

	if len(snap.Hourly) != 48 {
		t.Fatalf("expected 48 hourly points, got %d", len(snap.Hourly))
	}
	for i, h := range []struct {
		label string
		temp  float64
		code  int
	}{{"12AM", 12.0, 0}, {"1AM", 12.5, 0}} {
		if snap.Hourly[i].Label != h.label || snap.Hourly[i].Temperature != h.temp || snap.Hourly[i].WeatherCode != h.code {
			t.Errorf("hourly[%d] unexpected %+v", i, snap.Hourly[i])
		}
	}
	if snap.Hourly[12].Label != "12PM" || snap.Hourly[13].Label != "1PM" || snap.Hourly[47].Label != "11PM" {
		t.Errorf("unexpected hourly labels %q %q %q", snap.Hourly[12].Label, snap.Hourly[13].Label, snap.Hourly[47].Label)
	}
	for i := 1; i < len(snap.Hourly); i++ {
		if !snap.Hourly[i].Time.After(snap.Hourly[i-1].Time) {
			t.Fatalf("hourly points out of order at %d", i)
		}
	}

	expectedDays := []string{"Today", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	if len(snap.Daily) != len(expectedDays) {
		t.Fatalf("expected %d daily points, got %d", len(expectedDays), len(snap.Daily))
	}
	for i, d := range snap.Daily {
		if d.Weekday != expectedDays[i] {
			t.Errorf("daily[%d] expected %q, got %q", i, expectedDays[i], d.Weekday)
		}
	}
	if d := snap.Daily[1]; d.Max != 24.0 || d.Min != 17.9 || d.WeatherCode != 61 {
		t.Errorf("unexpected daily[1] %+v", d)
	}

	if !snap.Sunrise.IsValid() || !snap.Sunrise.Value().Equal(time.Date(2025, 6, 1, 4, 26, 0, 0, jst)) {
		t.Errorf("unexpected sunrise %+v", snap.Sunrise)
	}
	if !snap.Sunset.IsValid() || !snap.Sunset.Value().Equal(time.Date(2025, 6, 1, 18, 53, 0, 0, jst)) {
		t.Errorf("unexpected sunset %+v", snap.Sunset)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	resp := loadFixture(t)
	a, err := Normalize(resp)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize(resp)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("normalizing the same response twice gave different snapshots")
	}
}

func TestNormalizeUvFallback(t *testing.T) {
	tests := []struct {
		name     string
		current  *float64
		daily    *Daily
		expected float64
	}{
		{"live value", ptr(4.2), &Daily{UvIndexMax: []float64{7.1}}, 4.2},
		{"live zero is kept", ptr(0.0), &Daily{UvIndexMax: []float64{7.1}}, 0},
		{"daily max", nil, &Daily{UvIndexMax: []float64{7.1, 3}}, 7.1},
		{"no daily max", nil, &Daily{}, 0},
		{"no daily", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Normalize(Response{Current: &Current{UvIndex: tt.current}, Daily: tt.daily})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := snap.Current.Value().UvIndex; got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNormalizeMissingCurrent(t *testing.T) {
	resp := loadFixture(t)
	resp.Current = nil
	if _, err := Normalize(resp); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestNormalizeMissingOptionalSections(t *testing.T) {
	snap, err := Normalize(Response{Current: &Current{Time: "2025-06-01T10:00", WeatherCode: ptr(3)}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Hourly) != 0 || len(snap.Daily) != 0 {
		t.Errorf("expected empty series, got %d hourly and %d daily", len(snap.Hourly), len(snap.Daily))
	}
	if snap.Sunrise.IsValid() || snap.Sunset.IsValid() {
		t.Errorf("expected unknown sunrise and sunset")
	}
	if snap.Current.Value().WeatherCode != 3 {
		t.Errorf("expected weather code 3, got %d", snap.Current.Value().WeatherCode)
	}
}

func TestNormalizeTruncatesToShortestArray(t *testing.T) {
	resp := Response{
		Current: &Current{},
		Hourly: &Hourly{
			Time:        []string{"2025-06-01T00:00", "2025-06-01T01:00", "2025-06-01T02:00"},
			Temperature: []float64{10, 11},
			WeatherCode: []int{0, 1, 2},
		},
		Daily: &Daily{
			Time:           []string{"2025-06-01", "2025-06-02"},
			TemperatureMax: []float64{20, 21},
			TemperatureMin: []float64{10},
			WeatherCode:    []int{0, 1},
		},
	}
	snap, err := Normalize(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Hourly) != 2 {
		t.Errorf("expected 2 hourly points, got %d", len(snap.Hourly))
	}
	if len(snap.Daily) != 1 {
		t.Errorf("expected 1 daily point, got %d", len(snap.Daily))
	}
}

func TestNormalizeSkipsOutOfOrderDays(t *testing.T) {
	resp := Response{
		Current: &Current{},
		Daily: &Daily{
			Time:           []string{"2025-06-02", "2025-06-01", "2025-06-03", "2025-06-04"},
			TemperatureMax: []float64{1, 2, 3, 4},
			TemperatureMin: []float64{0, 0, 0, 0},
			WeatherCode:    []int{0, 0, 0, 0},
			Sunrise:        []string{"2025-06-02T05:00"},
			Sunset:         []string{},
		},
	}
	snap, err := Normalize(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Daily) != 3 {
		t.Fatalf("expected 3 daily points, got %d", len(snap.Daily))
	}
	for i, exp := range []struct {
		max     float64
		weekday string
	}{{1, "Today"}, {3, "Tue"}, {4, "Wed"}} {
		if snap.Daily[i].Max != exp.max || snap.Daily[i].Weekday != exp.weekday {
			t.Errorf("daily[%d] expected %v/%s, got %+v", i, exp.max, exp.weekday, snap.Daily[i])
		}
	}
	if !snap.Sunrise.IsValid() {
		t.Errorf("expected sunrise from first daily entry")
	}
	if snap.Sunset.IsValid() {
		t.Errorf("expected unknown sunset")
	}
}

func TestNormalizeDailyReadsFirstSevenEntries(t *testing.T) {
	resp := Response{
		Current: &Current{},
		Daily: &Daily{
			Time: []string{"2025-06-01", "2025-05-31", "2025-06-03", "", "2025-06-05",
				"2025-06-06", "2025-06-07", "2025-06-08", "2025-06-09"},
			TemperatureMax: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9},
			TemperatureMin: make([]float64, 9),
			WeatherCode:    make([]int, 9),
		},
	}
	snap, err := Normalize(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got []float64
	for _, d := range snap.Daily {
		got = append(got, d.Max)
	}
	want := []float64{1, 3, 5, 6, 7}
	if len(got) != len(want) {
		t.Fatalf("expected days %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("daily[%d] expected %v, got %v", i, want[i], got[i])
		}
	}
	if snap.Daily[0].Weekday != "Today" || snap.Daily[1].Weekday != "Tue" {
		t.Errorf("unexpected weekday labels %s, %s", snap.Daily[0].Weekday, snap.Daily[1].Weekday)
	}
}

func TestNormalizeSkipsBadHourlyTimestamp(t *testing.T) {
	resp := Response{
		Current: &Current{},
		Hourly: &Hourly{
			Time:        []string{"2025-06-01T00:00", "", "soon", "2025-06-01T03:00"},
			Temperature: []float64{10, 11, 12, 13},
			WeatherCode: []int{0, 1, 2, 3},
		},
	}
	snap, err := Normalize(resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Hourly) != 2 || snap.Hourly[0].Temperature != 10 || snap.Hourly[1].Label != "3AM" {
		t.Errorf("unexpected hourly points %+v", snap.Hourly)
	}
}

func TestNormalizeBadCurrentTime(t *testing.T) {
	resp := Response{Current: &Current{Time: "soon"}}
	if _, err := Normalize(resp); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestForecast(t *testing.T) {
	fixture, err := os.ReadFile("testdata/forecast_tokyo.json")
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/forecast" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("temperature_unit") != "fahrenheit" || q.Get("wind_speed_unit") != "mph" {
			t.Errorf("units not passed through: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(fixture)
	}))
	defer srv.Close()

	c := New(provider.New(provider.Options{Name: "forecast", BaseURL: srv.URL, Timeout: time.Second}))
	snap, err := c.Forecast(context.Background(), types.Coordinates{Latitude: 35.7, Longitude: 139.69}, types.Fahrenheit, types.Mph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snap.Daily) != MaxDays {
		t.Errorf("expected %d days, got %d", MaxDays, len(snap.Daily))
	}
}

func TestForecastErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		also   error
	}{
		{"server error", http.StatusInternalServerError, "", provider.ErrUnavailable},
		{"bad request", http.StatusBadRequest, `{"error":true,"reason":"Latitude must be in range"}`, provider.ErrStatus},
		{"not json", http.StatusOK, "<html>", provider.ErrDecode},
		{"no current", http.StatusOK, `{"daily":{}}`, ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(provider.New(provider.Options{Name: "forecast", BaseURL: srv.URL, Timeout: time.Second}))
			_, err := c.Forecast(context.Background(), types.Coordinates{}, types.Celsius, types.Kmh)
			if !errors.Is(err, ErrUnavailable) {
				t.Errorf("expected ErrUnavailable, got %v", err)
			}
			if !errors.Is(err, tt.also) {
				t.Errorf("expected %v in chain, got %v", tt.also, err)
			}
		})
	}
}
