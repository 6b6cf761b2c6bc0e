package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/angas/skyphase/database"
)

type memStore struct {
	mu      sync.Mutex
	entries []database.LogEntryRow
	err     error
}

func (s *memStore) SaveLogEntry(_ context.Context, r database.LogEntryRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, r)
	return nil
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    *string
		expected slog.Level
	}{
		{nil, slog.LevelInfo},
		{ptr("debug"), slog.LevelDebug},
		{ptr("WARN"), slog.LevelWarn},
		{ptr("Error"), slog.LevelError},
		{ptr(" warning "), slog.LevelWarn},
		{ptr("info+2"), slog.LevelInfo + 2},
		{ptr("verbose"), slog.LevelInfo},
		{ptr(""), slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.input); got != tt.expected {
			t.Errorf("LevelFromString(%v) expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestAttrFormatFromString(t *testing.T) {
	tests := []struct {
		input    *string
		expected LogAttrFormat
	}{
		{nil, LogAttrFormatJSON},
		{ptr("text"), LogAttrFormatText},
		{ptr(" TEXT"), LogAttrFormatText},
		{ptr("json"), LogAttrFormatJSON},
		{ptr("yaml"), LogAttrFormatJSON},
	}
	for _, tt := range tests {
		if got := AttrFormatFromString(tt.input); got != tt.expected {
			t.Errorf("AttrFormatFromString(%v) expected %v, got %v", tt.input, tt.expected, got)
		}
	}
}

func TestSQLiteHandler(t *testing.T) {
	store := &memStore{}
	logger := slog.New(NewSQLiteHandler(store, slog.LevelInfo, LogAttrFormatJSON)).With("module", "engine")

	logger.Debug("dropped")
	logger.Info("weather updated", slog.String("place", "Oslo, NO"))

	if len(store.entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(store.entries))
	}
	e := store.entries[0]
	if e.Message != "weather updated" || e.Level != int(slog.LevelInfo) {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Attrs != `[{"module":"engine"},{"place":"Oslo, NO"}]` {
		t.Errorf("unexpected attrs %s", e.Attrs)
	}
}

func TestSQLiteHandlerTextFormat(t *testing.T) {
	store := &memStore{}
	logger := slog.New(NewSQLiteHandler(store, slog.LevelDebug, LogAttrFormatText)).WithGroup("http")
	logger.Warn("slow", slog.String("path", "/state;x=1"))

	if got := store.entries[0].Attrs; got != `http.path=/state\;x\=1` {
		t.Errorf("unexpected attrs %q", got)
	}
}

func TestMultiHandler(t *testing.T) {
	var buf bytes.Buffer
	store := &memStore{err: errors.New("disk full")}
	text := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	h := NewMultiHandler(text, NewSQLiteHandler(store, slog.LevelWarn, LogAttrFormatJSON))

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("expected debug to be enabled by the text handler")
	}

	logger := slog.New(h).With("module", "test")
	logger.Debug("only console")
	logger.Error("both")

	out := buf.String()
	if !strings.Contains(out, "only console") || !strings.Contains(out, "both") || !strings.Contains(out, "module=test") {
		t.Errorf("unexpected console output %q", out)
	}

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelError, "direct", 0))
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected sink error to be reported, got %v", err)
	}
	if !strings.Contains(buf.String(), "direct") {
		t.Errorf("console handler should still receive the record")
	}
}

func ptr(s string) *string {
	return &s
}
