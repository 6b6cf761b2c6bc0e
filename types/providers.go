package types

import "context"

type ForecastProvider interface {
	Forecast(ctx context.Context, coords Coordinates, temp TempUnit, wind WindUnit) (WeatherSnapshot, error)
}

type Geocoder interface {
	Search(ctx context.Context, name string) (Place, error)
	Reverse(ctx context.Context, coords Coordinates) (Place, error)
}
