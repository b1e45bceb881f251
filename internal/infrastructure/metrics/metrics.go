package metrics

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "civicreport"

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	ReportsSubmitted   *prometheus.CounterVec
	EnrichmentFailures *prometheus.CounterVec
	Mutations          *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	LiveSubscriptions  prometheus.Gauge
	OverdueReports     prometheus.Gauge

	goroutines  prometheus.Gauge
	memoryAlloc prometheus.Gauge
	numGC       prometheus.Gauge
}

// New registers every collector on a private registry so several
// instances (one per test) never collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ReportsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_submitted_total",
			Help:      "Reports persisted by the submission workflow, by issue type.",
		}, []string{"issue_type"}),
		EnrichmentFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_failures_total",
			Help:      "Enrichment steps that fell back to their default.",
		}, []string{"step"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_mutations_total",
			Help:      "Guarded report mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Lifecycle events handed to the broker.",
		}, []string{"routing_key", "outcome"}),
		LiveSubscriptions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Open realtime report subscriptions.",
		}),
		OverdueReports: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_reports",
			Help:      "Open reports older than the overdue threshold at the last sweep.",
		}),
		goroutines: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "go_routines",
			Help:      "Goroutines at scrape time.",
		}),
		memoryAlloc: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sys_memory_alloc_bytes",
			Help:      "Bytes of allocated heap objects at scrape time.",
		}),
		numGC: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "go_num_gc",
			Help:      "Completed GC cycles at scrape time.",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Mount adds /metrics and the pprof endpoints to r.
func (m *Metrics) Mount(r chi.Router) {
	r.With(m.systemMetrics).Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	r.Route("/debug/pprof", func(r chi.Router) {
		r.HandleFunc("/", pprof.Index)
		r.HandleFunc("/cmdline", pprof.Cmdline)
		r.HandleFunc("/profile", pprof.Profile)
		r.HandleFunc("/symbol", pprof.Symbol)
		r.HandleFunc("/trace", pprof.Trace)
		r.Handle("/{profile}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "profile")).ServeHTTP(w, req)
		}))
	})
}

func (m *Metrics) systemMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)

		m.goroutines.Set(float64(runtime.NumGoroutine()))
		m.memoryAlloc.Set(float64(stats.Alloc))
		m.numGC.Set(float64(stats.NumGC))

		next.ServeHTTP(w, r)
	})
}
