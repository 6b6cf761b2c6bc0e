package www

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/angas/skyphase/database"
	"github.com/angas/skyphase/logging"
	"github.com/angas/skyphase/types"
	"github.com/go-playground/validator/v10"
)

const (
	maxHistory     = 500
	maxLogPageSize = 200
)

var validate = validator.New()

func NewStateHandler(logger *slog.Logger, view func() StateView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, view())
	}
}

type searchRequest struct {
	Query string `json:"query" validate:"required,max=200"`
}

func NewSearchHandler(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		req.Query = strings.TrimSpace(req.Query)
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := eng.SubmitSearch(ctx, req.Query); err != nil {
				logger.Debug("search finished with error", slog.String("query", req.Query), slog.Any("error", err))
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	}
}

func NewRefreshHandler(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		go func() {
			if err := eng.Refresh(ctx); err != nil {
				logger.Debug("refresh finished with error", slog.Any("error", err))
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	}
}

type unitsRequest struct {
	Temperature string `json:"temperature" validate:"omitempty,oneof=celsius fahrenheit"`
	Wind        string `json:"wind" validate:"omitempty,oneof=kmh mph"`
}

func NewUnitsHandler(logger *slog.Logger, eng Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req unitsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if req.Temperature == "" && req.Wind == "" {
			http.Error(w, "temperature or wind is required", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		ctx := context.WithoutCancel(r.Context())
		go func() {
			if req.Temperature != "" {
				if err := eng.SetTempUnit(ctx, types.TempUnit(req.Temperature)); err != nil {
					logger.Debug("temperature unit change finished with error", slog.Any("error", err))
				}
			}
			if req.Wind != "" {
				if err := eng.SetWindUnit(ctx, types.WindUnit(req.Wind)); err != nil {
					logger.Debug("wind unit change finished with error", slog.Any("error", err))
				}
			}
		}()
		w.WriteHeader(http.StatusAccepted)
	}
}

func NewHistoryHandler(logger *slog.Logger, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rows, err := db.GetFetchCycles(r.Context(), queryInt(r, "limit", 20, 1, maxHistory))
		if err != nil {
			logger.Error("handling history request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, rows)
	}
}

func NewLogHandler(logger *slog.Logger, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filter := database.LogFilter{
			MinLevel: slog.LevelDebug,
			Module:   strings.TrimSpace(r.URL.Query().Get("module")),
			Page:     queryInt(r, "page", 1, 1, math.MaxInt32),
			PageSize: queryInt(r, "pageSize", 25, 1, maxLogPageSize),
		}
		if lvl := r.URL.Query().Get("level"); lvl != "" {
			l, err := logging.ParseLevel(lvl)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid level %q", lvl), http.StatusBadRequest)
				return
			}
			filter.MinLevel = l
		}
		if err := validate.Var(filter.Module, "max=64,printascii"); err != nil {
			http.Error(w, "invalid module", http.StatusBadRequest)
			return
		}

		e, err := db.GetLogEntries(r.Context(), filter)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Page     int                    `json:"page"`
			PageSize int                    `json:"pageSize"`
			Entries  []database.LogEntryRow `json:"entries"`
		}{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Entries:  e,
		})
	}
}

func NewHealthHandler(db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
