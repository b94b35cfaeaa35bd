// Package api serves stored experiment reports over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/horizons/internal/probe"
	"github.com/TimurManjosov/horizons/internal/store"
	"github.com/TimurManjosov/horizons/internal/telemetry"
)

// DefaultRateLimitPerIP is used when a Server is built without a limit.
const DefaultRateLimitPerIP = 100

type Server struct {
	store          store.Store
	rateLimitPerIP int
	logger         zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimit sets the per-IP request budget per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimitPerIP = perMinute }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func NewServer(st store.Store, opts ...Option) *Server {
	s := &Server{store: st, rateLimitPerIP: DefaultRateLimitPerIP, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(telemetry.Middleware)

	// health
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", telemetry.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(
			s.rateLimitPerIP,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(RateLimitedError),
		))

		r.Get("/v1/reports", s.handleListReports)
		r.Get("/v1/reports/latest", s.handleLatestReport)
		r.Get("/v1/reports/{id}", s.handleGetReport)
	})

	return r
}

// ---- handlers ----

type listResponse struct {
	Reports []probe.Summary `json:"reports"`
	Count   int             `json:"count"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("listing reports failed")
		InternalError(w, r, "failed to list reports")
		return
	}
	telemetry.ReportsStored.Set(float64(len(summaries)))
	writeJSON(w, http.StatusOK, listResponse{Reports: summaries, Count: len(summaries)})
}

func (s *Server) handleLatestReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Latest(r.Context())
	s.writeReport(w, r, report, err)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequestError(w, r, "report id is required", map[string]string{"id": "required"})
		return
	}
	report, err := s.store.Get(r.Context(), id)
	s.writeReport(w, r, report, err)
}

// writeReport sends report with an ETag and honours If-None-Match.
func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, report *probe.Report, err error) {
	if errors.Is(err, store.ErrNotFound) {
		NotFoundError(w, r, "report not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("loading report failed")
		InternalError(w, r, "failed to load report")
		return
	}

	body, err := json.Marshal(report)
	if err != nil {
		InternalError(w, r, "failed to encode report")
		return
	}
	etag := etagFor(body)

	w.Header().Set("ETag", etag)
	if matchesETag(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}
