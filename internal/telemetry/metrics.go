package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/formship/formship/internal/visibility"
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

	SSEClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sse_clients",
		Help: "Number of currently connected SSE clients",
	})
	SnapshotForms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snapshot_forms",
		Help: "Number of published forms currently in the in-memory snapshot",
	})

	visibilityEvals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_evaluations_total",
			Help: "Total visibility decisions, labeled by outcome",
		},
		[]string{"visible"},
	)
	visibilityAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "visibility_anomalies_total",
			Help: "Degraded rule evaluations (unknown operator, bad pattern, unparsable number)",
		},
		[]string{"kind"},
	)
)

func Init() {
	prometheus.MustRegister(httpReqs, httpDur, SSEClients, SnapshotForms, visibilityEvals, visibilityAnomalies)
}

// Tracer counts visibility decisions and anomalies. It implements
// visibility.Tracer and is typically combined with a log tracer via
// visibility.MultiTracer.
type Tracer struct{}

func (Tracer) Rule(ev visibility.RuleTrace) {
	if ev.Anomaly != "" {
		visibilityAnomalies.WithLabelValues(string(ev.Anomaly)).Inc()
	}
}

func (Tracer) Decision(ev visibility.DecisionTrace) {
	if ev.Visible {
		visibilityEvals.WithLabelValues("true").Inc()
	} else {
		visibilityEvals.WithLabelValues("false").Inc()
	}
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// get route pattern if available
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

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

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
