package server

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unklstewy/telex-livemap/internal/chrome"
	"github.com/unklstewy/telex-livemap/internal/legend"
	"github.com/unklstewy/telex-livemap/internal/overlay"
	"github.com/unklstewy/telex-livemap/pkg/telex"
)

// propsFromRequest reads widget props from the query string, falling back
// to the configured widget defaults.
func (s *Server) propsFromRequest(r *http.Request) (overlay.Props, error) {
	q := r.URL.Query()

	props := overlay.Props{
		FullPage:  s.cfg.Widget.FullPage,
		ClassName: s.cfg.Widget.ClassName,
	}

	if raw := q.Get("fullpage"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return props, errors.New("fullpage must be a boolean")
		}
		props.FullPage = v
	}
	if q.Has("class") {
		props.ClassName = q.Get("class")
	}

	variant := s.cfg.Widget.Variant
	if raw := q.Get("variant"); raw != "" {
		variant = raw
	}
	v, err := overlay.ParseVariant(variant)
	if err != nil {
		return props, err
	}
	props.Variant = v

	return props, nil
}

type pageMarker struct {
	ID        string  `json:"id"`
	Flight    string  `json:"flight"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	IconHTML  string  `json:"html"`
	AnchorX   int     `json:"anchorX"`
	AnchorY   int     `json:"anchorY"`

	// PopupHTML is rendered from the same snapshot as the marker
	PopupHTML string `json:"popup"`
}

type pageData struct {
	ClassName     string
	State         string
	Error         string
	Markers       []pageMarker
	Legend        template.HTML
	FooterDisplay string
	HasFooter     bool
	CenterLat     float64
	CenterLon     float64
	Zoom          int
	TileURL       string
	Attribution   string
}

func (s *Server) handleMapPage(w http.ResponseWriter, r *http.Request) {
	props, err := s.propsFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page := chrome.NewPage(s.cfg.Widget.FooterDisplay)
	widget, err := s.mountWidget(r, props, page)
	if err != nil {
		http.Error(w, "Failed to mount map", http.StatusInternalServerError)
		return
	}
	defer widget.Close()

	view := widget.Render()

	data := pageData{
		ClassName:   view.ClassName,
		State:       view.State.String(),
		Markers:     make([]pageMarker, 0, len(view.Markers)),
		CenterLat:   s.cfg.Map.CenterLatitude,
		CenterLon:   s.cfg.Map.CenterLongitude,
		Zoom:        s.cfg.Map.Zoom,
		TileURL:     s.cfg.Map.TileURL,
		Attribution: s.cfg.Map.Attribution,
	}
	if view.Err != nil {
		data.Error = view.Err.Error()
	}
	for _, m := range view.Markers {
		pm := pageMarker{
			ID:        m.ID,
			Flight:    m.Flight,
			Latitude:  m.Latitude,
			Longitude: m.Longitude,
			IconHTML:  m.HTML(),
			AnchorX:   m.Anchor.X,
			AnchorY:   m.Anchor.Y,
		}
		if panel, ok := widget.Popup(m.ID); ok {
			content, err := panel.HTML()
			if err != nil {
				s.logger.Error().Err(err).Str("id", m.ID).Msg("failed to render popup")
				http.Error(w, "Failed to render map", http.StatusInternalServerError)
				return
			}
			pm.PopupHTML = string(content)
		}
		data.Markers = append(data.Markers, pm)
	}
	if len(view.Legend) > 0 {
		if data.Legend, err = legend.HTML(); err != nil {
			s.logger.Error().Err(err).Msg("failed to render legend")
			http.Error(w, "Failed to render map", http.StatusInternalServerError)
			return
		}
	}

	// Read the footer while the widget is still mounted so full-page mode
	// renders it hidden.
	data.FooterDisplay, data.HasFooter = page.FooterDisplay()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Msg("failed to render map page")
	}
}

func (s *Server) handleGetConnections(w http.ResponseWriter, r *http.Request) {
	widget, err := s.mountWidget(r, overlay.Props{Variant: overlay.VariantBasic}, nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer widget.Close()

	if !s.checkState(w, widget) {
		return
	}

	conns := widget.Connections()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"connections": conns,
		"count":       len(conns),
	})
}

func (s *Server) handleGetMarkers(w http.ResponseWriter, r *http.Request) {
	props, err := s.propsFromRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	widget, err := s.mountWidget(r, props, nil)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer widget.Close()

	if !s.checkState(w, widget) {
		return
	}

	view := widget.Render()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"markers":   view.Markers,
		"count":     len(view.Markers),
		"legend":    view.Legend,
		"className": view.ClassName,
	})
}

// checkState writes an error response unless the widget's fetch succeeded.
func (s *Server) checkState(w http.ResponseWriter, widget *requestWidget) bool {
	if widget.timedOut {
		respondError(w, http.StatusGatewayTimeout, "timed out waiting for connections")
		return false
	}

	switch state, err := widget.State(); state {
	case overlay.StateReady:
		return true
	case overlay.StateFailed:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusGatewayTimeout, "timed out waiting for connections")
	}
	return false
}

func (s *Server) handleGetConnection(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, conn)
}

func (s *Server) handleGetPopup(w http.ResponseWriter, r *http.Request) {
	conn, ok := s.lookup(w, r)
	if !ok {
		return
	}

	html, err := s.popups.Build(*conn).HTML()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to render popup")
		http.Error(w, "Failed to render popup", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*telex.Connection, bool) {
	id := chi.URLParam(r, "id")

	conn, err := s.source.GetConnection(r.Context(), id)
	switch {
	case errors.Is(err, telex.ErrNotFound):
		respondError(w, http.StatusNotFound, "Connection not found")
		return nil, false
	case err != nil:
		s.logger.Error().Err(err).Str("id", id).Msg("failed to fetch connection")
		respondError(w, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return conn, true
}

func (s *Server) handleGetLegend(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"legend": legend.Entries(),
	})
}

func (s *Server) handleGetSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"telex": false,
		"total": 0,
	}

	page, err := s.source.GetConnections(r.Context(), 0, 1, nil)
	if err != nil {
		status["error"] = err.Error()
		if rle, ok := telex.IsRateLimitError(err); ok {
			status["retryAfterSeconds"] = rle.RetryAfter.Seconds()
		}
	} else {
		status["telex"] = true
		status["total"] = page.Total
	}

	respondJSON(w, http.StatusOK, status)
}
