// Package server is the HTTP host for the overlay widget: the server-rendered
// map page plus a small JSON API over the same data.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/unklstewy/telex-livemap/internal/chrome"
	"github.com/unklstewy/telex-livemap/internal/overlay"
	"github.com/unklstewy/telex-livemap/internal/popup"
	"github.com/unklstewy/telex-livemap/pkg/config"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/map.html"))

const defaultRenderTimeout = 10 * time.Second

// Source is the TELEX surface the server needs.
type Source interface {
	telex.ConnectionSource
	GetConnection(ctx context.Context, id string) (*telex.Connection, error)
	GetConnections(ctx context.Context, skip, take int, bounds *telex.Bounds) (*telex.Page, error)
}

// Server holds the HTTP router and its dependencies
type Server struct {
	router *chi.Mux
	source Source
	popups *popup.Renderer
	cfg    *config.Config
	logger zerolog.Logger
}

// New creates a server with all routes registered.
func New(cfg *config.Config, source Source, logger zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		source: source,
		popups: popup.NewRenderer(cfg.Map.Locale, nil),
		cfg:    cfg,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Map page
	r.Get("/", s.handleMapPage)
	r.Get("/map", s.handleMapPage)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/connections", s.handleGetConnections)
		r.Get("/connections/{id}", s.handleGetConnection)
		r.Get("/connections/{id}/popup", s.handleGetPopup)
		r.Get("/markers", s.handleGetMarkers)
		r.Get("/legend", s.handleGetLegend)
		r.Get("/system/status", s.handleGetSystemStatus)
	})

	// Icons and popup artwork
	fileServer := http.FileServer(http.Dir(s.cfg.Server.StaticDir))
	r.Handle("/meta/*", fileServer)
	r.Handle("/svg/*", fileServer)
}

// requestLogger logs one line per request with zerolog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requestWidget is a widget mounted for the lifetime of one request.
type requestWidget struct {
	*overlay.Widget

	// timedOut is set when the render timeout passed before the fetch
	// succeeded, including a fetch that then failed on the expired context.
	timedOut bool
	cancel   context.CancelFunc
}

// Close unmounts the widget and must be deferred.
func (rw *requestWidget) Close() {
	rw.Unmount()
	rw.cancel()
}

// mountWidget mounts a widget and waits for its fetch to settle or the
// render timeout to pass.
func (s *Server) mountWidget(r *http.Request, props overlay.Props, page chrome.Controller) (*requestWidget, error) {
	timeout := time.Duration(s.cfg.Server.RenderTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)

	w := overlay.New(s.source, page, s.popups, s.logger.With().
		Str("request_id", middleware.GetReqID(r.Context())).
		Logger())
	if err := w.Mount(ctx, props); err != nil {
		cancel()
		return nil, err
	}

	select {
	case <-w.Loaded():
	case <-ctx.Done():
	}

	rw := &requestWidget{Widget: w, cancel: cancel}
	// A fetch cut off by the deadline may already have settled as failed.
	if ctx.Err() != nil {
		if state, _ := w.State(); state != overlay.StateReady {
			rw.timedOut = true
			s.logger.Warn().Dur("timeout", timeout).Msg("render timeout waiting for connections")
		}
	}
	return rw, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{
		"error": msg,
	})
}
