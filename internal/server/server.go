package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"trainquery/internal/config"
	"trainquery/internal/handler"
	"trainquery/internal/realtime"
	"trainquery/internal/timetable"
	"trainquery/internal/timeutil"
	"trainquery/web"
)

// Server is the HTTP server for trainquery.
type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	logger *slog.Logger
	ready  <-chan struct{} // closed when the first timetable snapshot is installed
	http   *http.Server
}

// New creates a new Server with all routes registered.
func New(cfg *config.Config, store *timetable.Store, rt *realtime.Store, clock timeutil.Clock, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Static files, served from the embedded FS; versioned URLs get immutable caching
	staticFS, _ := fs.Sub(web.StaticFiles, "static")
	h := handler.New(store, rt, staticFS, clock, logger)

	s := &Server{mux: mux, cfg: cfg, logger: logger, ready: store.Ready()}

	fileServer := http.FileServer(http.FS(staticFS))
	mux.Handle("GET /static/", http.StripPrefix("/static/", staticCacheHandler(fileServer)))

	// JSON API
	mux.HandleFunc("GET /api/departures", h.Departures)
	mux.HandleFunc("GET /api/departures/next", h.NextDepartures)
	mux.HandleFunc("POST /api/match", h.MatchRoute)
	mux.HandleFunc("GET /api/stops", h.SearchStops)
	mux.HandleFunc("GET /api/lines", h.Lines)
	mux.HandleFunc("GET /api/lines/{id}/stops", h.LineStops)
	mux.HandleFunc("GET /api/status", h.Status)
	mux.HandleFunc("GET /api/realtime/{tripID}", h.RealtimeTrip)

	// Pages
	mux.HandleFunc("GET /", h.Home)
	mux.HandleFunc("GET /stops/{id}", h.StopBoard)
	mux.HandleFunc("GET /stops/{id}/lines/{line}", h.LaterDepartures)

	// SSE
	mux.HandleFunc("GET /sse/stops/{id}", h.SSEDepartures)

	return s
}

// Handler returns the routes wrapped in middleware.
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux, s.logger, s.ready)
}

// ListenAndServe starts the HTTP server. It returns http.ErrServerClosed
// after Shutdown.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("server starting", "addr", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully stops a server started with ListenAndServe.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
