package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// client implements Client on paho. Reconnection is left to paho.
type client struct {
	config  Config
	metrics *metrics.MQTTMetrics

	mu             sync.Mutex
	internalClient paho.Client
}

// NewClient creates a client for cfg. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics) (Client, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker is required").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	def := DefaultConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = def.ClientID
	}
	if cfg.Topic == "" {
		cfg.Topic = def.Topic
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = def.DisconnectTimeout
	}
	return &client{config: cfg, metrics: m}, nil
}

// Connect starts the connection. A broker that is down is not an error:
// paho keeps retrying in the background and publishes fail until it is up.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	statusTopic := c.config.Topic + "/" + topicStatus
	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetWill(statusTopic, statusOffline, 1, true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = paho.NewClient(opts)
	token := c.internalClient.Connect()

	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		if errors.Is(err, errTokenTimeout) {
			getLogger().Warn("mqtt broker not reachable yet, retrying in background",
				logger.String("broker", logger.RedactSensitiveData(c.config.Broker)))
			return nil
		}
		if c.metrics != nil {
			c.metrics.Errors.Inc()
		}
		return errors.New(fmt.Errorf("mqtt connect: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTConnect).
			Context("broker", logger.RedactSensitiveData(c.config.Broker)).
			Build()
	}
	return nil
}

// Publish sends payload with QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	c.mu.Lock()
	internal := c.internalClient
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	err := waitToken(ctx, internal.Publish(topic, 0, retain, payload), c.config.PublishTimeout)
	if c.metrics != nil {
		c.metrics.ObservePublish(start, err)
	}
	if err != nil {
		return errors.New(fmt.Errorf("mqtt publish: %w", err)).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	return nil
}

// IsConnected returns true if the client is currently connected.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect publishes offline status and closes the connection.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internalClient == nil {
		return
	}
	if c.internalClient.IsConnected() {
		token := c.internalClient.Publish(c.config.Topic+"/"+topicStatus, 1, true, statusOffline)
		token.WaitTimeout(c.config.DisconnectTimeout)
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internalClient = nil
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
}

func (c *client) onConnect(pc paho.Client) {
	getLogger().Info("connected to MQTT broker", logger.String("broker", logger.RedactSensitiveData(c.config.Broker)))
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
	pc.Publish(c.config.Topic+"/"+topicStatus, 1, true, statusOnline)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	getLogger().Warn("connection to MQTT broker lost",
		logger.String("broker", logger.RedactSensitiveData(c.config.Broker)),
		logger.Error(err))
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
		c.metrics.Errors.Inc()
	}
}

var errTokenTimeout = errors.NewStd("timed out")

// waitToken waits for token, ctx or the timeout, whichever comes first.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTokenTimeout
	}
}
