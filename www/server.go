package www

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/angas/skyphase/config"
	"github.com/angas/skyphase/database"
	"github.com/angas/skyphase/engine"
	"github.com/angas/skyphase/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the part of the weather engine the server drives.
type Engine interface {
	State() engine.State
	SubmitSearch(ctx context.Context, query string) error
	Refresh(ctx context.Context) error
	SetTempUnit(ctx context.Context, unit types.TempUnit) error
	SetWindUnit(ctx context.Context, unit types.WindUnit) error
}

type Store interface {
	Ping(ctx context.Context) error
	GetFetchCycles(ctx context.Context, limit int) ([]database.FetchCycleRow, error)
	GetLogEntries(ctx context.Context, f database.LogFilter) ([]database.LogEntryRow, error)
}

// StateView is the payload of GET /state and of every websocket message.
type StateView struct {
	engine.State
	Theme engine.Appearance `json:"theme"`
}

type Server struct {
	logger *slog.Logger
	config config.AppConfigApi
	eng    Engine
	db     Store
	hub    *Hub
	mux    *http.ServeMux
	now    func() time.Time
}

//go:embed static
var embeddedStaticDir embed.FS

func NewServer(eng Engine, db Store, config config.AppConfigApi) *Server {
	logger := slog.Default().With("module", "www")

	s := &Server{
		logger: logger,
		config: config,
		eng:    eng,
		db:     db,
		hub:    NewHub(logger),
		mux:    http.NewServeMux(),
		now:    time.Now,
	}

	go s.hub.Run()

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}

	s.mux.Handle("/", staticFilesHandler())
	s.mux.Handle("/state", logReqMW(NewStateHandler(logger.With(slog.String("handler", "state")), s.View)))
	s.mux.Handle("/search", logReqMW(NewSearchHandler(logger.With(slog.String("handler", "search")), eng)))
	s.mux.Handle("/refresh", logReqMW(NewRefreshHandler(logger.With(slog.String("handler", "refresh")), eng)))
	s.mux.Handle("/units", logReqMW(NewUnitsHandler(logger.With(slog.String("handler", "units")), eng)))
	s.mux.Handle("/history", logReqMW(NewHistoryHandler(logger.With(slog.String("handler", "history")), db)))
	s.mux.Handle("/log", logReqMW(NewLogHandler(logger.With(slog.String("handler", "log")), db)))
	s.mux.Handle("/health", NewHealthHandler(db))
	s.mux.Handle("/metrics", promhttp.Handler())

	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		// New clients start with the current state.
		if buf, err := s.viewJSON(s.eng.State()); err == nil {
			client.send <- buf
		}
		s.hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// View combines the engine state with the theme for the current time.
func (s *Server) View() StateView {
	st := s.eng.State()
	return StateView{State: st, Theme: engine.AppearanceOf(st, s.now())}
}

// Publish broadcasts a state to all websocket clients.
func (s *Server) Publish(st engine.State) {
	buf, err := s.viewJSON(st)
	if err != nil {
		s.logger.Error("state encoding failed", slog.Any("error", err))
		return
	}
	s.hub.Broadcast <- buf
}

func (s *Server) viewJSON(st engine.State) ([]byte, error) {
	return json.Marshal(StateView{State: st, Theme: engine.AppearanceOf(st, s.now())})
}

func (s *Server) Run(ctx context.Context) {
	s.logger.Info("starting server...", "port", s.config.Port)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.Address, s.config.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErrors := make(chan error, 1)

	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	// The theme depends on the clock, clients are pushed a fresh view every minute.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case err := <-srvErrors:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("server error", slog.Any("error", err))
			}
			return

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return

		case <-ticker.C:
			s.Publish(s.eng.State())
		}
	}
}

func staticFilesHandler() http.Handler {
	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
