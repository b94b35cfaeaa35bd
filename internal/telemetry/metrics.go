package telemetry

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	trialSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_trial_steps_total",
			Help: "Trial steps executed, by phase, step and status",
		},
		[]string{"engine", "phase", "step", "status"},
	)
	trialStepDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "horizons_trial_step_duration_seconds",
			Help: "Wall time of a single trial step (check, install, exercise)",
			// 100ms .. ~7min: runtime checks are sub-second, installs can take minutes.
			Buckets: prometheus.ExponentialBuckets(0.1, 2.5, 10),
		},
		[]string{"engine", "step"},
	)
	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "horizons_verifications_total",
			Help: "Two-phase verifications by failure reason (None on success)",
		},
		[]string{"engine", "reason"},
	)
	searchProbes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "horizons_search_probes",
			Help:    "Verifications issued by one compatibility search",
			Buckets: prometheus.LinearBuckets(1, 1, 12),
		},
		[]string{"engine", "mode"},
	)

	ReportsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "horizons_reports_stored",
		Help: "Number of experiment reports visible through the report store",
	})

	initOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(httpReqs, httpDur, trialSteps, trialStepDur, verifications, searchProbes, ReportsStored)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStep records one finished trial step.
func ObserveStep(engine, phase, step, status string, d time.Duration) {
	trialSteps.WithLabelValues(engine, phase, step, status).Inc()
	trialStepDur.WithLabelValues(engine, step).Observe(d.Seconds())
}

// ObserveVerification records the verdict of one two-phase verification.
func ObserveVerification(engine, reason string) {
	verifications.WithLabelValues(engine, reason).Inc()
}

// ObserveSearch records how many verifications a search needed.
func ObserveSearch(engine, mode string, probes int) {
	searchProbes.WithLabelValues(engine, mode).Observe(float64(probes))
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills in the pattern while routing, so it is only known afterwards
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
