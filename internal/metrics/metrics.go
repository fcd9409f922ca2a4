package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for Leadpop
type Metrics struct {
	// Popup delivery counters
	ImpressionsTotal *prometheus.CounterVec
	ConversionsTotal *prometheus.CounterVec
	LeadsTotal       *prometheus.CounterVec

	// Outbound delivery counters
	WebhooksTotal      *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ImpressionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_impressions_total",
				Help: "Total number of popup impressions recorded",
			},
			[]string{"popup_id"},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_conversions_total",
				Help: "Total number of popup conversions recorded",
			},
			[]string{"popup_id"},
		),
		LeadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_leads_total",
				Help: "Total number of leads accepted",
			},
			[]string{"popup_id"},
		),

		WebhooksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_webhooks_total",
				Help: "Total number of lead webhook deliveries",
			},
			[]string{"outcome"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_notifications_total",
				Help: "Total number of lead notification emails",
			},
			[]string{"outcome"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "leadpop_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "leadpop_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadpop_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "leadpop_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.ImpressionsTotal,
		m.ConversionsTotal,
		m.LeadsTotal,
		m.WebhooksTotal,
		m.NotificationsTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// LeadAccepted increments the lead counter for a popup
func (m *Metrics) LeadAccepted(popupID string) {
	m.LeadsTotal.WithLabelValues(popupID).Inc()
}

// EventRecorded increments the impression or conversion counter for a popup
func (m *Metrics) EventRecorded(popupID, kind string) {
	switch kind {
	case "impression":
		m.ImpressionsTotal.WithLabelValues(popupID).Inc()
	case "conversion":
		m.ConversionsTotal.WithLabelValues(popupID).Inc()
	}
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncWebhook increments the webhook delivery counter
func IncWebhook(outcome string) {
	m := Global()
	if m != nil {
		m.WebhooksTotal.WithLabelValues(outcome).Inc()
	}
}

// IncNotification increments the notification email counter
func IncNotification(outcome string) {
	m := Global()
	if m != nil {
		m.NotificationsTotal.WithLabelValues(outcome).Inc()
	}
}

// IncAPIErrors increments API error counter
func IncAPIErrors(errorType string) {
	m := Global()
	if m != nil {
		m.APIErrorsTotal.WithLabelValues(errorType).Inc()
	}
}
