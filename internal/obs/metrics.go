package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ready = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "service_ready",
		Help: "1 when the readiness probe last succeeded.",
	})
)

// Auth core metrics
var (
	authOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_outcomes_total",
			Help: "Bearer token authentication outcomes.",
		},
		[]string{"outcome"},
	)

	revokedTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_revoked_tokens",
		Help: "Tokens currently held in the revocation set.",
	})

	rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Requests rejected by the sliding window limiter.",
		},
		[]string{"class", "scope"},
	)

	rateLimitBuckets = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ratelimit_buckets",
			Help: "Live sliding window buckets.",
		},
		[]string{"scope"},
	)

	auditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events recorded by kind.",
		},
		[]string{"kind"},
	)

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_events_dropped_total",
		Help: "Audit entries dropped because the persistence queue was full.",
	})
)

var initOnce sync.Once

// Init registers all metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration, ready,
			authOutcomes, revokedTokens,
			rateLimitRejections, rateLimitBuckets,
			auditEvents, auditDropped,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetReady records the latest readiness probe result.
func SetReady(ok bool) {
	if ok {
		ready.Set(1)
		return
	}
	ready.Set(0)
}

// AuthOutcome counts one authentication outcome (e.g. "success", "expired", "role_mismatch").
func AuthOutcome(outcome string) { authOutcomes.WithLabelValues(outcome).Inc() }

// RevokedTokens publishes the size of the revocation set.
func RevokedTokens(n int) { revokedTokens.Set(float64(n)) }

// RateLimited counts a rejection for the endpoint class and scope ("ip" or "user").
func RateLimited(class, scope string) { rateLimitRejections.WithLabelValues(class, scope).Inc() }

// RateLimitBuckets publishes the live bucket count of a limiter scope.
func RateLimitBuckets(scope string, n int) { rateLimitBuckets.WithLabelValues(scope).Set(float64(n)) }

// AuditEvent counts a recorded audit event.
func AuditEvent(kind string) { auditEvents.WithLabelValues(kind).Inc() }

// AuditDropped counts an audit entry that could not be queued for persistence.
func AuditDropped() { auditDropped.Inc() }

// Instrument measures RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// pathTemplates collapses resource identifiers so label cardinality stays bounded.
var pathTemplates = [][]string{
	{"api", "shops", ":slug"},
	{"api", "products", ":id"},
}

// CanonicalPath maps a request path onto its route template.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for _, tmpl := range pathTemplates {
		if len(tmpl) != len(segments) {
			continue
		}
		matched := true
		for i, part := range tmpl {
			if strings.HasPrefix(part, ":") {
				if segments[i] == "" {
					matched = false
					break
				}
				continue
			}
			if segments[i] != part {
				matched = false
				break
			}
		}
		if matched {
			return "/" + strings.Join(tmpl, "/")
		}
	}
	return p
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
