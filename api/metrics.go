package api

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sashashura/netbox/domain"
)

// objectCounter is the subset of the db repository the metrics collector
// needs. Repositories that cannot count (fakes in tests) simply skip the
// collector.
type objectCounter interface {
	CountObjects() (map[domain.ObjectKind]int, error)
}

type metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newMetrics(s *Server) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "netbox",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "netbox",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.duration,
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "netbox",
			Name:      "webhook_deliveries_dropped_total",
			Help:      "Webhook deliveries discarded because the queue was full.",
		}, func() float64 {
			return float64(s.app.Webhooks.Dropped())
		}),
	)

	if counter, ok := s.app.Repo.(objectCounter); ok {
		m.registry.MustRegister(newObjectCollector(counter))
	}
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// middleware records request counts and latency.
func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		m.requests.WithLabelValues(r.Method, strconv.Itoa(wrapped.Status())).Inc()
		m.duration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}

// objectCollector exports per-kind object counts on scrape.
type objectCollector struct {
	counter objectCounter
	desc    *prometheus.Desc
}

func newObjectCollector(counter objectCounter) *objectCollector {
	return &objectCollector{
		counter: counter,
		desc: prometheus.NewDesc(
			"netbox_objects",
			"Number of stored objects by kind.",
			[]string{"kind"}, nil,
		),
	}
}

func (c *objectCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *objectCollector) Collect(ch chan<- prometheus.Metric) {
	counts, err := c.counter.CountObjects()
	if err != nil {
		return
	}
	for kind, count := range counts {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(count), string(kind))
	}
}
