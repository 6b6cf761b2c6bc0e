// Package hours deals with the provider's local wall clock times and the
// labels shown for them.
package hours

import (
	"fmt"
	"time"
)

const (
	DateLayout   = "2006-01-02"
	MinuteLayout = "2006-01-02T15:04"
)

// Zone returns a fixed zone for the provider's UTC offset. The name is
// only used for display, e.g. "CEST".
func Zone(name string, offsetSeconds int) *time.Location {
	if name == "" {
		sign := '+'
		if offsetSeconds < 0 {
			sign = '-'
		}
		a := abs(offsetSeconds)
		name = fmt.Sprintf("UTC%c%02d:%02d", sign, a/3600, a%3600/60)
	}
	return time.FixedZone(name, offsetSeconds)
}

// ParseLocal parses a local "2006-01-02T15:04" time. A trailing ":05"
// seconds part and plain dates are accepted too.
func ParseLocal(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{MinuteLayout, "2006-01-02T15:04:05", DateLayout} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported local time %q", s)
}

// Label formats the hour as "3PM", with 12AM for midnight and 12PM for noon.
func Label(t time.Time) string {
	h := t.Hour()
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d%s", h, suffix)
}

// WeekdayLabel is "Today" for the first forecast day and a short weekday name for the rest.
func WeekdayLabel(index int, date time.Time) string {
	if index == 0 {
		return "Today"
	}
	return date.Weekday().String()[:3]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
