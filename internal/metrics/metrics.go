package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ShatskikhS/NotifyMe/internal/domain"
	"github.com/ShatskikhS/NotifyMe/internal/provider"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	StoreOps        *prometheus.CounterVec
	StoreOpDuration *prometheus.HistogramVec

	NotificationsSent   *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	DeliveryLatency     *prometheus.HistogramVec

	QueueDepthHigh   prometheus.Gauge
	QueueDepthMedium prometheus.Gauge
	QueueDepthLow    prometheus.Gauge

	StoredNotifications prometheus.Gauge
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Store operations by name and result.",
		}, []string{"op", "result"}),

		StoreOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "store_operation_seconds",
			Help:    "Store operation latency, including the file read and write.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Total number of successful channel deliveries.",
		}, []string{"channel"}),

		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of failed channel deliveries.",
		}, []string{"channel"}),

		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_delivery_seconds",
			Help:    "Per-channel send latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),

		QueueDepthHigh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_high",
			Help: "Current number of items in the high-priority queue.",
		}),
		QueueDepthMedium: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_medium",
			Help: "Current number of items in the medium-priority queue.",
		}),
		QueueDepthLow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "queue_depth_low",
			Help: "Current number of items in the low-priority queue.",
		}),

		StoredNotifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stored_notifications",
			Help: "Number of notifications currently in the store.",
		}),
	}

	reg.MustRegister(
		m.StoreOps,
		m.StoreOpDuration,
		m.NotificationsSent,
		m.NotificationsFailed,
		m.DeliveryLatency,
		m.QueueDepthHigh,
		m.QueueDepthMedium,
		m.QueueDepthLow,
		m.StoredNotifications,
	)

	return m
}

// DispatchHooks returns the callbacks expected by provider.NewDispatcher.
// Centralises the prometheus observation calls so the provider stays import-free.
func (m *Metrics) DispatchHooks() provider.Hooks {
	return provider.Hooks{
		OnSent: func(ch domain.Channel, latency time.Duration) {
			m.NotificationsSent.WithLabelValues(string(ch)).Inc()
			m.DeliveryLatency.WithLabelValues(string(ch)).Observe(latency.Seconds())
		},
		OnFailed: func(ch domain.Channel) {
			m.NotificationsFailed.WithLabelValues(string(ch)).Inc()
		},
	}
}

// ObserveStoreOp matches repository.OpObserver.
func (m *Metrics) ObserveStoreOp(op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Inc()
	m.StoreOpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetQueueDepths matches the scheduler's OnSample hook.
func (m *Metrics) SetQueueDepths(high, medium, low int) {
	m.QueueDepthHigh.Set(float64(high))
	m.QueueDepthMedium.Set(float64(medium))
	m.QueueDepthLow.Set(float64(low))
}

// SetStored records the current record count.
func (m *Metrics) SetStored(n int) {
	m.StoredNotifications.Set(float64(n))
}
