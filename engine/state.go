package engine

import (
	"time"

	"github.com/angas/skyphase/solar"
	"github.com/angas/skyphase/theme"
	"github.com/angas/skyphase/types"
	"github.com/angas/skyphase/types/maybe"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

type ErrorKind string

const (
	ErrorNone                ErrorKind = ""
	ErrorLocationUnavailable ErrorKind = "location_unavailable"
	ErrorCityNotFound        ErrorKind = "city_not_found"
	ErrorForecastUnavailable ErrorKind = "forecast_unavailable"
)

// Message is the text shown to the user for the error.
func (k ErrorKind) Message() string {
	switch k {
	case ErrorLocationUnavailable:
		return "Unable to get location."
	case ErrorCityNotFound:
		return "City not found."
	case ErrorForecastUnavailable:
		return "Failed to fetch weather. Try again."
	default:
		return ""
	}
}

type Trigger string

const (
	TriggerStart   Trigger = "start"
	TriggerSearch  Trigger = "search"
	TriggerRefresh Trigger = "refresh"
	TriggerUnits   Trigger = "units"
)

// State is a copy, holding on to it is safe.
type State struct {
	Status   Status                             `json:"status"`
	Loading  bool                               `json:"loading"`
	Error    ErrorKind                          `json:"error,omitempty"`
	Message  string                             `json:"message,omitempty"`
	Place    maybe.Maybe[types.Place]           `json:"place"`
	Snapshot maybe.Maybe[types.WeatherSnapshot] `json:"snapshot"`
	TempUnit types.TempUnit                     `json:"tempUnit"`
	WindUnit types.WindUnit                     `json:"windUnit"`
	// Seq is the sequence number of the latest issued request
	Seq       uint64    `json:"seq"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Appearance struct {
	Phase    solar.Phase    `json:"phase"`
	Gradient theme.Gradient `json:"gradient"`
}

// AppearanceOf derives phase and gradient from a state at the given time.
// Without a snapshot it is day with a clear sky.
func AppearanceOf(s State, now time.Time) Appearance {
	phase := solar.Day
	code := 0
	if s.Snapshot.IsValid() {
		snap := s.Snapshot.Value()
		phase = solar.PhaseAt(now, snap.Sunrise, snap.Sunset)
		if snap.Current.IsValid() {
			code = snap.Current.Value().WeatherCode
		}
	}
	return Appearance{Phase: phase, Gradient: theme.Select(phase, code)}
}

// Cycle describes one finished request, superseded ones included.
type Cycle struct {
	Seq       uint64
	Trigger   Trigger
	Place     types.Place
	TempUnit  types.TempUnit
	WindUnit  types.WindUnit
	Outcome   Status
	Error     ErrorKind
	Err       error
	Started   time.Time
	Duration  time.Duration
	Discarded bool

	begun time.Time // monotonic, for Duration
}
