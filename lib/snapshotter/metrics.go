package snapshotter

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the Prometheus collectors for checks and reports.
type Metrics struct {
	Registry           *prometheus.Registry
	ChecksTotal        *prometheus.CounterVec
	ReportsTotal       *prometheus.CounterVec
	ListingChanges     *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	checks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingwatch_checks_total",
			Help: "Update checks by outcome.",
		},
		[]string{"outcome"},
	)
	reports := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingwatch_reports_total",
			Help: "Change reports by outcome.",
		},
		[]string{"outcome"},
	)
	changes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingwatch_listing_changes_total",
			Help: "Listings found added, removed or updated between snapshots.",
		},
		[]string{"kind"},
	)
	notifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "listingwatch_notifications_total",
			Help: "Change messages handed to senders.",
		},
		[]string{"platform", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "listingwatch_outbound_request_duration_seconds",
			Help:    "Latency of outbound HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	registry.MustRegister(checks, reports, changes, notifications, requestDuration)

	return &Metrics{
		Registry:           registry,
		ChecksTotal:        checks,
		ReportsTotal:       reports,
		ListingChanges:     changes,
		NotificationsTotal: notifications,
		RequestDuration:    requestDuration,
	}
}

func (m *Metrics) IncCheck(outcome string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncReport(outcome string) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddChanges(kind string, n int) {
	if m == nil {
		return
	}
	m.ListingChanges.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) IncNotification(platform, status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(platform, status).Inc()
}

func (m *Metrics) ObserveRequest(host string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(host).Observe(d.Seconds())
}
