package openmeteo

// Response is the subset of the /v1/forecast payload we ask for.
// Null entries in the hourly and daily arrays decode as zero.
type Response struct {
	Latitude             float64  `json:"latitude"`
	Longitude            float64  `json:"longitude"`
	Timezone             string   `json:"timezone"`
	TimezoneAbbreviation string   `json:"timezone_abbreviation"`
	UtcOffsetSeconds     int      `json:"utc_offset_seconds"`
	Current              *Current `json:"current"`
	Hourly               *Hourly  `json:"hourly"`
	Daily                *Daily   `json:"daily"`
}

type Current struct {
	Time                string   `json:"time"`
	Temperature         *float64 `json:"temperature_2m"`
	RelativeHumidity    *float64 `json:"relative_humidity_2m"`
	ApparentTemperature *float64 `json:"apparent_temperature"`
	WeatherCode         *int     `json:"weather_code"`
	WindSpeed           *float64 `json:"wind_speed_10m"`
	WindDirection       *float64 `json:"wind_direction_10m"`
	UvIndex             *float64 `json:"uv_index"`
}

type Hourly struct {
	Time                []string  `json:"time"`
	Temperature         []float64 `json:"temperature_2m"`
	WeatherCode         []int     `json:"weather_code"`
	ApparentTemperature []float64 `json:"apparent_temperature"`
	RelativeHumidity    []float64 `json:"relative_humidity_2m"`
	WindSpeed           []float64 `json:"wind_speed_10m"`
	UvIndex             []float64 `json:"uv_index"`
}

type Daily struct {
	Time           []string  `json:"time"`
	WeatherCode    []int     `json:"weather_code"`
	TemperatureMax []float64 `json:"temperature_2m_max"`
	TemperatureMin []float64 `json:"temperature_2m_min"`
	Sunrise        []string  `json:"sunrise"`
	Sunset         []string  `json:"sunset"`
	UvIndexMax     []float64 `json:"uv_index_max"`
}
