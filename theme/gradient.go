// Package theme picks the background gradient for a solar phase and weather code.
package theme

import (
	"github.com/angas/skyphase/solar"
	"github.com/angas/skyphase/wmo"
)

type Gradient struct {
	From string `json:"from"`
	To   string `json:"to"`
}

var (
	SunriseGradient = Gradient{From: "#FFD194", To: "#70E1F5"}
	SunsetGradient  = Gradient{From: "#FEC163", To: "#DE4313"}
	NightGradient   = Gradient{From: "#0F2027", To: "#203A43"}
	RainGradient    = Gradient{From: "#83a4d4", To: "#b6fbff"}
	CloudGradient   = Gradient{From: "#d7d2cc", To: "#304352"}
	SnowGradient    = Gradient{From: "#E0EAFC", To: "#CFDEF3"}
	ClearGradient   = Gradient{From: "#8EC5FC", To: "#E0C3FC"}
)

// Select only looks at the weather code during the day.
func Select(phase solar.Phase, code int) Gradient {
	switch phase {
	case solar.Sunrise:
		return SunriseGradient
	case solar.Sunset:
		return SunsetGradient
	case solar.Night:
		return NightGradient
	}

	switch wmo.CategoryOf(code) {
	case wmo.CategoryRain:
		return RainGradient
	case wmo.CategoryCloud:
		return CloudGradient
	case wmo.CategorySnow:
		return SnowGradient
	default:
		return ClearGradient
	}
}
