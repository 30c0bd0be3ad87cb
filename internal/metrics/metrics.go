package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the API
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// WebhookNotifications counts inbound notifications by outcome
	WebhookNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_notifications_total", Help: "Inbound payment notifications by outcome."},
		[]string{"outcome"},
	)
	// OrderTransitions counts applied status changes by target status
	OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_transitions_total", Help: "Order status transitions by target status."},
		[]string{"status"},
	)
	// OrdersCreated counts orders created by package
	OrdersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_created_total", Help: "Orders created by package id."},
		[]string{"package"},
	)
	// GatewayLatency tracks outbound order-creation latencies in milliseconds
	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "gateway_request_latency_ms", Help: "Processor order-creation latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"status"},
	)
)

// Notification outcomes used as WebhookNotifications labels.
const (
	OutcomeApplied      = "applied"
	OutcomeNoop         = "noop"
	OutcomeDuplicate    = "duplicate"
	OutcomeUnauthorized = "unauthorized"
	OutcomeNotFound     = "not_found"
	OutcomeMalformed    = "malformed"
	OutcomeFailed       = "failed"
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(WebhookNotifications)
		Registry.MustRegister(OrderTransitions)
		Registry.MustRegister(OrdersCreated)
		Registry.MustRegister(GatewayLatency)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
