// Package api exposes the HTTP interface for the scraper service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jmcruz14/top250-scraper/internal/config"
	"github.com/jmcruz14/top250-scraper/internal/letterboxd"
	"github.com/jmcruz14/top250-scraper/internal/store"
)

// Syncer is the engine surface the HTTP layer drives.
type Syncer interface {
	SyncCatalog(ctx context.Context, catalogID, catalogURL string, parseExtraPages bool, entryLimit int) (letterboxd.CatalogSnapshot, error)
	ScrapeFilm(ctx context.Context, slug, filmID string) (letterboxd.ScrapeResult, error)
	LatestHistory(ctx context.Context, filmID string) (letterboxd.HistoryRecord, error)
	FilmHistory(ctx context.Context, filmID string, limit int64) ([]letterboxd.HistoryRecord, error)
}

// Server wires HTTP handlers to the sync engine.
type Server struct {
	router chi.Router
	engine Syncer
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(engine Syncer, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(10 * time.Minute))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/catalogs/{catalog_id}/sync", s.syncCatalog)
		r.Route("/films/{film_ref}", func(r chi.Router) {
			r.Get("/", s.scrapeFilm)
			r.Get("/history", s.filmHistory)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// syncCatalog runs a full sync pass and returns the resulting snapshot.
// Per-entry failures never surface here; they are visible via logs and
// metrics only, and the skipped entries are simply absent.
func (s *Server) syncCatalog(w http.ResponseWriter, r *http.Request) {
	catalogID := chi.URLParam(r, "catalog_id")
	catalogURL, ok := s.cfg.Catalogs[catalogID]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown catalog")
		return
	}

	extraPages := true
	if raw := r.URL.Query().Get("extra_pages"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "extra_pages must be a boolean")
			return
		}
		extraPages = parsed
	}
	entryLimit := s.cfg.Scraper.EntryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		entryLimit = parsed
	}

	snapshot, err := s.engine.SyncCatalog(r.Context(), catalogID, catalogURL, extraPages, entryLimit)
	if err != nil {
		s.logger.Error("catalog sync failed", zap.String("catalog_id", catalogID), zap.Error(err))
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) scrapeFilm(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "film_ref")
	result, err := s.engine.ScrapeFilm(r.Context(), slug, r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) filmHistory(w http.ResponseWriter, r *http.Request) {
	filmID := chi.URLParam(r, "film_ref")
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		records, err := s.engine.FilmHistory(r.Context(), filmID, limit)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	record, err := s.engine.LatestHistory(r.Context(), filmID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func statusFor(err error) int {
	var (
		fetchErr      *letterboxd.FetchError
		structureErr  *letterboxd.PageStructureError
		validationErr *letterboxd.ValidationError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &fetchErr), errors.As(err, &structureErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Headers are gone; nothing left to do but note it.
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
