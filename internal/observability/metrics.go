package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	AuthzDecisionsTotal *prometheus.CounterVec
	RoleCacheHitsTotal  prometheus.Counter
	RoleCacheMissTotal  prometheus.Counter
	RoleCacheInvalidate *prometheus.CounterVec

	// Assignment metrics
	AssignmentsTotal   *prometheus.CounterVec
	AdminReinsertTotal prometheus.Counter

	// Catalog metrics
	CatalogSyncTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers every collector on registry. A nil
// registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "member_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "member_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "member_authz_decisions_total",
				Help: "Server-side authorization decisions by permission and outcome",
			},
			[]string{"permission", "outcome"},
		),
		RoleCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "member_role_cache_hits_total",
				Help: "Role cache hits",
			},
		),
		RoleCacheMissTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "member_role_cache_misses_total",
				Help: "Role cache misses",
			},
		),
		RoleCacheInvalidate: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "member_role_cache_invalidations_total",
				Help: "Role cache invalidations by origin",
			},
			[]string{"origin"},
		),
		AssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "member_role_assignments_total",
				Help: "Role assignment outcomes",
			},
			[]string{"mode", "status"},
		),
		AdminReinsertTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "member_admin_role_reinserted_total",
				Help: "Times the Admin role was restored on the system administrator",
			},
		),
		CatalogSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "member_permission_catalog_sync_total",
				Help: "Permission catalog reconciliations by outcome",
			},
			[]string{"outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthzDecisionsTotal,
		m.RoleCacheHitsTotal,
		m.RoleCacheMissTotal,
		m.RoleCacheInvalidate,
		m.AssignmentsTotal,
		m.AdminReinsertTotal,
		m.CatalogSyncTotal,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordDecision counts one authorization outcome. Safe on a nil receiver.
func (m *Metrics) RecordDecision(permission string, granted bool) {
	if m == nil {
		return
	}
	outcome := "denied"
	if granted {
		outcome = "granted"
	}
	m.AuthzDecisionsTotal.WithLabelValues(permission, outcome).Inc()
}

func (m *Metrics) RecordCacheHit() {
	if m != nil {
		m.RoleCacheHitsTotal.Inc()
	}
}

func (m *Metrics) RecordCacheMiss() {
	if m != nil {
		m.RoleCacheMissTotal.Inc()
	}
}

func (m *Metrics) RecordInvalidation(origin string) {
	if m != nil {
		m.RoleCacheInvalidate.WithLabelValues(origin).Inc()
	}
}

func (m *Metrics) RecordAssignment(mode string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.AssignmentsTotal.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) RecordAdminReinsert() {
	if m != nil {
		m.AdminReinsertTotal.Inc()
	}
}

func (m *Metrics) RecordCatalogSync(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failed"
	}
	m.CatalogSyncTotal.WithLabelValues(outcome).Inc()
}

// HTTPMiddleware records request counts and latency, labelled by the chi
// route pattern so ids do not explode cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
