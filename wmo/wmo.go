// Package wmo maps WMO weather interpretation codes to text and categories.
package wmo

import (
	"slices"

	"github.com/angas/skyphase/types"
)

var descriptions = map[int]string{
	0:  "Clear",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Dense drizzle",
	56: "Freezing drizzle",
	57: "Freezing drizzle",
	61: "Slight rain",
	63: "Rain",
	65: "Heavy rain",
	66: "Freezing rain",
	67: "Freezing rain",
	71: "Slight snow",
	73: "Snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Rain showers",
	81: "Rain showers",
	82: "Violent rain showers",
	85: "Snow showers",
	86: "Snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm w/ hail",
	99: "Thunderstorm w/ hail",
}

// Describe never fails, codes outside the table are "Unknown".
func Describe(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown"
}

func UvSeverity(uv float64) string {
	switch {
	case uv < 3:
		return "Low"
	case uv < 6:
		return "Moderate"
	case uv < 8:
		return "High"
	case uv < 11:
		return "Very High"
	default:
		return "Extreme"
	}
}

type Category string

const (
	CategoryClear Category = "clear"
	CategoryRain  Category = "rain"
	CategoryCloud Category = "cloud"
	CategorySnow  Category = "snow"
)

var (
	rainCodes  = []int{51, 53, 55, 61, 63, 65, 80, 81, 82}
	cloudCodes = []int{2, 3, 45, 48}
	snowCodes  = []int{71, 73, 75, 77, 85, 86}
)

// CategoryOf checks rain, then cloud, then snow. Everything else,
// thunderstorms and freezing precipitation included, counts as clear.
func CategoryOf(code int) Category {
	switch {
	case slices.Contains(rainCodes, code):
		return CategoryRain
	case slices.Contains(cloudCodes, code):
		return CategoryCloud
	case slices.Contains(snowCodes, code):
		return CategorySnow
	default:
		return CategoryClear
	}
}

// Decorate returns c with the derived description and UV severity filled in.
func Decorate(c types.CurrentConditions) types.CurrentConditions {
	c.Description = Describe(c.WeatherCode)
	c.UvSeverity = UvSeverity(c.UvIndex)
	return c
}
