package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plumbstore"

// Recorder receives domain-level counters from the services.
type Recorder interface {
	OrderCreated(source string)
	OrderReplayed()
	StatusChanged(entity, to string)
	CartItemAdded()
	PlumberRequestCreated()
	EventPublishFailed(routingKey string)
}

// Metrics owns a private registry with HTTP and domain collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	ordersCreated   *prometheus.CounterVec
	ordersReplayed  prometheus.Counter
	statusChanges   *prometheus.CounterVec
	cartItemsAdded  prometheus.Counter
	plumberRequests prometheus.Counter
	publishFailures *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"method", "route"}),
		ordersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders committed, by source (cart or direct).",
		}, []string{"source"}),
		ordersReplayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_idempotent_replays_total",
			Help:      "Order requests answered from a previous idempotency key.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Status transitions applied, by entity and target status.",
		}, []string{"entity", "status"}),
		cartItemsAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_items_added_total",
			Help:      "Add-to-cart operations.",
		}),
		plumberRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plumber_requests_created_total",
			Help:      "Service requests submitted.",
		}),
		publishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Domain events that could not be published.",
		}, []string{"routing_key"}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.requests, m.latency,
		m.ordersCreated, m.ordersReplayed, m.statusChanges,
		m.cartItemsAdded, m.plumberRequests, m.publishFailures,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.latency.WithLabelValues(r.Method, route).Observe(float64(time.Since(start).Milliseconds()))
	})
}

func (m *Metrics) OrderCreated(source string) { m.ordersCreated.WithLabelValues(source).Inc() }

func (m *Metrics) OrderReplayed() { m.ordersReplayed.Inc() }

func (m *Metrics) StatusChanged(entity, to string) { m.statusChanges.WithLabelValues(entity, to).Inc() }

func (m *Metrics) CartItemAdded() { m.cartItemsAdded.Inc() }

func (m *Metrics) PlumberRequestCreated() { m.plumberRequests.Inc() }

func (m *Metrics) EventPublishFailed(routingKey string) {
	m.publishFailures.WithLabelValues(routingKey).Inc()
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) OrderCreated(string)          {}
func (Nop) OrderReplayed()               {}
func (Nop) StatusChanged(string, string) {}
func (Nop) CartItemAdded()               {}
func (Nop) PlumberRequestCreated()       {}
func (Nop) EventPublishFailed(string)    {}
