// Package api serves the route map and the arrival summaries over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"flight_tracker/internal/logger"
	"flight_tracker/internal/mapview"
	"flight_tracker/internal/summary"
)

const dateLayout = "2006-01-02"

// MapSource builds the current route map.
type MapSource interface {
	BuildMap(ctx context.Context) (mapview.Model, error)
}

// SummaryStore computes rollups on demand.
type SummaryStore interface {
	DailySummary(ctx context.Context, airports []string, from, to time.Time) ([]summary.Row, error)
	HourlySummary(ctx context.Context, airports []string, hour int) ([]summary.Row, error)
}

// Config holds configuration for the API server.
type Config struct {
	Addr     string
	Airports []string
	APIKeys  []string // Empty disables authentication.
}

// Server provides REST access to the map and summaries.
type Server struct {
	maps      MapSource
	summaries SummaryStore
	addr      string
	airports  []string
	apiKeys   map[string]bool
}

// NewServer creates a new API server.
func NewServer(maps MapSource, summaries SummaryStore, cfg Config) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	return &Server{
		maps:      maps,
		summaries: summaries,
		addr:      cfg.Addr,
		airports:  cfg.Airports,
		apiKeys:   keys,
	}
}

// Handler returns the full router with middleware, mounted under /api/v1.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Mount("/api/v1", s.Router())
	return r
}

// Router returns the API routes without the outer middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if len(s.apiKeys) > 0 {
			r.Use(s.authMiddleware)
		}
		r.Get("/map", s.handleMap)
		r.Get("/map.geojson", s.handleMapGeoJSON)
		r.Get("/map.kml", s.handleMapKML)
		r.Get("/summary/daily", s.handleDailySummary)
		r.Get("/summary/hourly", s.handleHourlySummary)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API starting", "addr", s.addr, "auth", len(s.apiKeys) > 0)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for browser access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-API-Key")

		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}
		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) buildMap(w http.ResponseWriter, r *http.Request) (mapview.Model, bool) {
	m, err := s.maps.BuildMap(r.Context())
	if err != nil {
		logger.Error("build map failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load flights")
		return mapview.Model{}, false
	}
	return m, true
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.buildMap(w, r); ok {
		writeJSON(w, http.StatusOK, m)
	}
}

func (s *Server) handleMapGeoJSON(w http.ResponseWriter, r *http.Request) {
	m, ok := s.buildMap(w, r)
	if !ok {
		return
	}
	data, err := mapview.GeoJSON(m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}

func (s *Server) handleMapKML(w http.ResponseWriter, r *http.Request) {
	m, ok := s.buildMap(w, r)
	if !ok {
		return
	}
	data, err := mapview.KML(m)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	_, _ = w.Write(data)
}

// SummaryResponse is the JSON response for summary queries.
type SummaryResponse struct {
	Airports []string      `json:"airports"`
	From     string        `json:"from,omitempty"`
	To       string        `json:"to,omitempty"`
	Hour     *int          `json:"hour,omitempty"`
	Rows     []summary.Row `json:"rows"`
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from date, expected YYYY-MM-DD")
		return
	}
	to := from
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = parseDate(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date, expected YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	// Both dates are whole days; the store range is inclusive.
	end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	rows, err := s.summaries.DailySummary(r.Context(), s.airports, from, end)
	if err != nil {
		logger.Error("daily summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Airports: s.airports,
		From:     from.Format(dateLayout),
		To:       to.Format(dateLayout),
		Rows:     nonNil(rows),
	})
}

func (s *Server) handleHourlySummary(w http.ResponseWriter, r *http.Request) {
	hour, err := strconv.Atoi(r.URL.Query().Get("hour"))
	if err != nil || hour < 0 || hour > 23 {
		writeError(w, http.StatusBadRequest, "hour must be between 0 and 23")
		return
	}

	rows, err := s.summaries.HourlySummary(r.Context(), s.airports, hour)
	if err != nil {
		logger.Error("hourly summary failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{
		Airports: s.airports,
		Hour:     &hour,
		Rows:     nonNil(rows),
	})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func nonNil(rows []summary.Row) []summary.Row {
	if rows == nil {
		return []summary.Row{}
	}
	return rows
}
