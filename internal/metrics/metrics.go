// Package metrics owns the Prometheus collectors for the sync fabric. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agency_sync"

type Metrics struct {
	Saves               *prometheus.CounterVec
	Notifications       *prometheus.CounterVec
	Aggregations        *prometheus.CounterVec
	AggregationDuration prometheus.Histogram
	CacheLookups        *prometheus.CounterVec
	WebSocketClients    prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Saves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "saves_total",
			Help:      "Full-document saves by result.",
		}, []string{"result"}),
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Remote notifications by outcome.",
		}, []string{"outcome"}),
		Aggregations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Rollup requests by outcome.",
		}, []string{"outcome"}),
		AggregationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregation_duration_seconds",
			Help:      "Time spent recomputing the rollup.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		WebSocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected dashboard websocket clients.",
		}),
	}
}

func (m *Metrics) SaveResult(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.Saves.WithLabelValues(result).Inc()
}

// Notification outcomes.
const (
	NotificationAdopted  = "adopted"
	NotificationIgnored  = "ignored"
	NotificationSeeded   = "seeded"
	NotificationFallback = "fallback"
	NotificationError    = "error"
)

func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}

// Aggregation outcomes.
const (
	AggregationRecomputed = "recomputed"
	AggregationThrottled  = "throttled"
	AggregationFailed     = "failed"
)

func (m *Metrics) Aggregation(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Aggregations.WithLabelValues(outcome).Inc()
	if outcome == AggregationRecomputed {
		m.AggregationDuration.Observe(took.Seconds())
	}
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ClientConnected(delta float64) {
	if m == nil {
		return
	}
	m.WebSocketClients.Add(delta)
}
