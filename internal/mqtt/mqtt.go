// Package mqtt mirrors alerts and incident transitions to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/monadwatch/internal/logger"
)

// Client defines the MQTT operations the publisher needs.
type Client interface {
	// Connect attempts to connect to the broker.
	Connect(ctx context.Context) error
	// Publish sends payload to topic.
	Publish(ctx context.Context, topic string, payload []byte, retain bool) error
	// IsConnected returns true if the client is currently connected.
	IsConnected() bool
	// Disconnect publishes the offline status and closes the connection.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // topic prefix
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with default timeouts.
func DefaultConfig() Config {
	return Config{
		Topic:             "monadwatch",
		ClientID:          "monadwatch",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// Topic suffixes under the configured prefix
const (
	topicAlerts    = "alerts"
	topicIncidents = "incidents"
	topicStatus    = "status"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"
)

func getLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
