package convert

import (
	"math"
)

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

func OneDecimal(number float64) float64 {
	return RoundFloat64(number, 1)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(decimals)) / math.Pow10(decimals)
}

// CompassPoint maps a direction in degrees to one of eight compass points.
func CompassPoint(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return compassPoints[int(math.Round(deg/45))%len(compassPoints)]
}
