// Package metrics provides the Prometheus collectors for the monitor.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Delivery status label values
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusRejected = "rejected" // short-circuited by the breaker or rate limiter
)

// NotificationMetrics tracks deliveries to the chat and paging sinks
type NotificationMetrics struct {
	DeliveriesTotal     *prometheus.CounterVec   // by sink, operation, status
	DeliveryDuration    *prometheus.HistogramVec // by sink, operation
	DeliveryErrors      *prometheus.CounterVec   // by sink, error_category
	CircuitBreakerState *prometheus.GaugeVec     // 0=closed, 1=half-open, 2=open
	ConsecutiveFailures *prometheus.GaugeVec
	LastSuccessTime     *prometheus.GaugeVec
}

// NewNotificationMetrics creates and registers the notification collectors.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monadwatch_sink_deliveries_total",
			Help: "Delivery attempts by sink, operation (notify, trigger, resolve) and status",
		},
		[]string{"sink", "operation", "status"},
	)
	m.DeliveryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monadwatch_sink_delivery_duration_seconds",
			Help:    "Time taken by sink deliveries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"sink", "operation"},
	)
	m.DeliveryErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monadwatch_sink_delivery_errors_total",
			Help: "Delivery errors by sink and error category",
		},
		[]string{"sink", "error_category"},
	)
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monadwatch_sink_circuit_breaker_state",
			Help: "Circuit breaker state per sink (0=closed, 1=half-open, 2=open)",
		},
		[]string{"sink"},
	)
	m.ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monadwatch_sink_consecutive_failures",
			Help: "Consecutive delivery failures per sink",
		},
		[]string{"sink"},
	)
	m.LastSuccessTime = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "monadwatch_sink_last_success_timestamp_seconds",
			Help: "Unix time of the last successful delivery per sink",
		},
		[]string{"sink"},
	)
}

// RecordDelivery records one delivery attempt
func (m *NotificationMetrics) RecordDelivery(sink, operation, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(sink, operation, status).Inc()
	m.DeliveryDuration.WithLabelValues(sink, operation).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.LastSuccessTime.WithLabelValues(sink).SetToCurrentTime()
		m.ConsecutiveFailures.WithLabelValues(sink).Set(0)
	}
}

// RecordDeliveryError counts a failed delivery by error category
func (m *NotificationMetrics) RecordDeliveryError(sink, errorCategory string) {
	m.DeliveryErrors.WithLabelValues(sink, errorCategory).Inc()
}

// UpdateCircuitBreakerState sets the breaker gauge for sink
func (m *NotificationMetrics) UpdateCircuitBreakerState(sink string, state int) {
	m.CircuitBreakerState.WithLabelValues(sink).Set(float64(state))
}

// IncrementConsecutiveFailures bumps the failure streak for sink
func (m *NotificationMetrics) IncrementConsecutiveFailures(sink string) {
	m.ConsecutiveFailures.WithLabelValues(sink).Inc()
}

// StartDeliveryTimer starts timing a delivery
func (m *NotificationMetrics) StartDeliveryTimer() *DeliveryTimer {
	return &DeliveryTimer{start: time.Now(), metrics: m}
}

// DeliveryTimer measures one delivery
type DeliveryTimer struct {
	start   time.Time
	metrics *NotificationMetrics
}

// ObserveDuration records the delivery with its outcome
func (dt *DeliveryTimer) ObserveDuration(sink, operation, status string) {
	dt.metrics.RecordDelivery(sink, operation, status, time.Since(dt.start))
}

// Collect implements prometheus.Collector
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	m.DeliveryDuration.Collect(ch)
	m.DeliveryErrors.Collect(ch)
	m.CircuitBreakerState.Collect(ch)
	m.ConsecutiveFailures.Collect(ch)
	m.LastSuccessTime.Collect(ch)
}

// Describe implements prometheus.Collector
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	m.DeliveryDuration.Describe(ch)
	m.DeliveryErrors.Describe(ch)
	m.CircuitBreakerState.Describe(ch)
	m.ConsecutiveFailures.Describe(ch)
	m.LastSuccessTime.Describe(ch)
}
