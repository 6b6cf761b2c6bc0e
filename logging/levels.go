package logging

import (
	"log/slog"
	"strings"
)

// ParseLevel accepts slog level names in any case, WARNING included.
func ParseLevel(s string) (slog.Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		name = "WARN"
	}
	var l slog.Level
	err := l.UnmarshalText([]byte(name))
	return l, err
}

// LevelFromString parses a configured level such as "debug", "WARNING" or
// "INFO+2". Unset or unknown names give INFO.
func LevelFromString(str *string) slog.Level {
	if str == nil {
		return slog.LevelInfo
	}
	l, err := ParseLevel(*str)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

// AttrFormatFromString gives TEXT for "text" in any case, JSON otherwise.
func AttrFormatFromString(str *string) LogAttrFormat {
	if str != nil && strings.EqualFold(strings.TrimSpace(*str), string(LogAttrFormatText)) {
		return LogAttrFormatText
	}
	return LogAttrFormatJSON
}
