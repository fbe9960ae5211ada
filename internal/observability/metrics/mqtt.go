package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the alert mirror publisher
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	MessagesDelivered prometheus.Counter
	Errors            prometheus.Counter
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT collectors.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "monadwatch_mqtt_connection_status",
			Help: "MQTT broker connection status (1 connected, 0 disconnected)",
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monadwatch_mqtt_messages_delivered_total",
			Help: "Messages published to the broker",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monadwatch_mqtt_errors_total",
			Help: "Connection and publish errors",
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monadwatch_mqtt_publish_latency_seconds",
			Help:    "Time to publish a message",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// UpdateConnectionStatus sets the connection gauge
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if connected {
		m.ConnectionStatus.Set(1)
		return
	}
	m.ConnectionStatus.Set(0)
}

// ObservePublish records one publish outcome and its latency
func (m *MQTTMetrics) ObservePublish(start time.Time, err error) {
	m.PublishLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		m.Errors.Inc()
		return
	}
	m.MessagesDelivered.Inc()
}

// Collect implements prometheus.Collector
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ConnectionStatus.Collect(ch)
	m.MessagesDelivered.Collect(ch)
	m.Errors.Collect(ch)
	m.PublishLatency.Collect(ch)
}

// Describe implements prometheus.Collector
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ConnectionStatus.Describe(ch)
	m.MessagesDelivered.Describe(ch)
	m.Errors.Describe(ch)
	m.PublishLatency.Describe(ch)
}
