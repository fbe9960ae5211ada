package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/notification"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// Publisher mirrors dispatcher alerts to <topic>/alerts and
// <topic>/incidents. It implements notification.Mirror.
type Publisher struct {
	client Client
	topic  string
	retain bool
}

// NewPublisher creates a publisher on client under the topic prefix.
func NewPublisher(client Client, topic string, retain bool) *Publisher {
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	return &Publisher{client: client, topic: topic, retain: retain}
}

// PublishAlert publishes alert as JSON.
func (p *Publisher) PublishAlert(ctx context.Context, alert *notification.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return p.client.Publish(ctx, p.topicFor(alert), payload, p.retain)
}

func (p *Publisher) topicFor(alert *notification.Alert) string {
	if alert.Type == "incident" {
		return p.topic + "/" + topicIncidents
	}
	return p.topic + "/" + topicAlerts
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	p.client.Disconnect()
}

// NewPublisherFromSettings connects a publisher when MQTT is enabled. It
// returns nil, nil when it is not. m may be nil.
func NewPublisherFromSettings(ctx context.Context, settings *conf.Settings, m *metrics.MQTTMetrics) (*Publisher, error) {
	if !settings.MQTT.Enabled {
		return nil, nil
	}
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.Retain = settings.MQTT.Retain
	if settings.MQTT.ClientID != "" {
		cfg.ClientID = settings.MQTT.ClientID
	}
	if settings.MQTT.Topic != "" {
		cfg.Topic = settings.MQTT.Topic
	}

	client, err := NewClient(cfg, m)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return NewPublisher(client, cfg.Topic, cfg.Retain), nil
}
