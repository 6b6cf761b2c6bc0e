// Package solar classifies a point in time relative to sunrise and sunset.
package solar

import (
	"time"

	"github.com/angas/skyphase/types/maybe"
)

type Phase string

const (
	Sunrise Phase = "sunrise"
	Day     Phase = "day"
	Sunset  Phase = "sunset"
	Night   Phase = "night"
)

// Window is the half width of the sunrise and sunset phases.
const Window = 45 * time.Minute

// Classify checks the sunrise window first, then the sunset window.
// Window bounds are inclusive.
func Classify(now, sunrise, sunset time.Time) Phase {
	riseStart, riseEnd := sunrise.Add(-Window), sunrise.Add(Window)
	setStart, setEnd := sunset.Add(-Window), sunset.Add(Window)

	switch {
	case within(now, riseStart, riseEnd):
		return Sunrise
	case within(now, setStart, setEnd):
		return Sunset
	case now.After(riseEnd) && now.Before(setStart):
		return Day
	default:
		return Night
	}
}

// PhaseAt is Day whenever sunrise or sunset is unknown.
func PhaseAt(now time.Time, sunrise, sunset maybe.Maybe[time.Time]) Phase {
	if !sunrise.IsValid() || !sunset.IsValid() {
		return Day
	}
	return Classify(now, sunrise.Value(), sunset.Value())
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
