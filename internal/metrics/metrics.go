// Package metrics exposes Prometheus collectors for the simulator.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flight_sim"

// Metrics holds every collector. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ToolCalls         *prometheus.CounterVec
	ToolDuration      *prometheus.HistogramVec
	BookingsCreated   *prometheus.CounterVec
	BookingsCancelled prometheus.Counter
	SeatsSold         *prometheus.CounterVec
	SeatsReleased     *prometheus.CounterVec
	SearchCache       *prometheus.CounterVec
	StatusChanges     *prometheus.CounterVec
	Payments          *prometheus.CounterVec
	PriceAlerts       *prometheus.CounterVec
	RateLimited       prometheus.Counter
	FlightsLoaded     prometheus.Gauge
}

// New creates the collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome",
		}, []string{"tool", "outcome"}),

		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool handler latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"tool"}),

		BookingsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created by seat class",
		}, []string{"seat_class"}),

		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "Bookings cancelled",
		}),

		SeatsSold: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_sold_total",
			Help:      "Seats taken from inventory by seat class",
		}, []string{"seat_class"}),

		SeatsReleased: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seats_released_total",
			Help:      "Seats returned to inventory by seat class",
		}, []string{"seat_class"}),

		SearchCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_requests_total",
			Help:      "Search cache lookups by result",
		}, []string{"result"}),

		StatusChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_status_changes_total",
			Help:      "Flight status transitions by new status",
		}, []string{"status"}),

		Payments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_total",
			Help:      "Payment authorizations by status",
		}, []string{"status"}),

		PriceAlerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_alerts_total",
			Help:      "Price alert events by kind",
		}, []string{"event"}),

		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "HTTP requests rejected by the rate limiter",
		}),

		FlightsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flights_loaded",
			Help:      "Flights held in the catalog",
		}),
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTool records one tool invocation
func (m *Metrics) ObserveTool(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, outcome).Inc()
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// BookingCreated records a new booking and the seats it took
func (m *Metrics) BookingCreated(seatClass string, seats int) {
	if m == nil {
		return
	}
	m.BookingsCreated.WithLabelValues(seatClass).Inc()
	m.SeatsSold.WithLabelValues(seatClass).Add(float64(seats))
}

// BookingCancelled records a cancellation and the seats it returned
func (m *Metrics) BookingCancelled(seatClass string, released int) {
	if m == nil {
		return
	}
	m.BookingsCancelled.Inc()
	if released > 0 {
		m.SeatsReleased.WithLabelValues(seatClass).Add(float64(released))
	}
}

// SeatsMoved records seats taken from one class and returned to another
func (m *Metrics) SeatsMoved(fromClass, toClass string, seats int) {
	if m == nil || seats <= 0 {
		return
	}
	m.SeatsSold.WithLabelValues(toClass).Add(float64(seats))
	m.SeatsReleased.WithLabelValues(fromClass).Add(float64(seats))
}

// CacheResult records a search cache lookup: hit, miss or error
func (m *Metrics) CacheResult(result string) {
	if m == nil {
		return
	}
	m.SearchCache.WithLabelValues(result).Inc()
}

// StatusChanged records a flight status transition
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.StatusChanges.WithLabelValues(status).Inc()
}

// Payment records a payment outcome
func (m *Metrics) Payment(status string) {
	if m == nil {
		return
	}
	m.Payments.WithLabelValues(status).Inc()
}

// PriceAlert records an alert event: created or triggered
func (m *Metrics) PriceAlert(event string) {
	if m == nil {
		return
	}
	m.PriceAlerts.WithLabelValues(event).Inc()
}

// RateLimitHit records a rejected HTTP request
func (m *Metrics) RateLimitHit() {
	if m == nil {
		return
	}
	m.RateLimited.Inc()
}

// SetFlights sets the catalog size
func (m *Metrics) SetFlights(n int) {
	if m == nil {
		return
	}
	m.FlightsLoaded.Set(float64(n))
}
