package notification

import (
	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/httpclient"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// NewFromSettings builds the dispatcher described by settings. The paging sink
// exists only when a routing key is configured. m and mirror may be nil.
func NewFromSettings(settings *conf.Settings, m *metrics.NotificationMetrics, mirror Mirror) (*Dispatcher, error) {
	log := getLogger()
	opts := Options{
		Mirror:        mirror,
		Metrics:       m,
		ChatTimeout:   settings.Chat.Timeout,
		PagingTimeout: settings.Paging.Timeout,
		Breaker: CircuitBreakerConfig{
			MaxFailures: settings.Paging.BreakerThreshold,
			Cooldown:    settings.Paging.BreakerCooldown,
		},
	}

	if urls := settings.Chat.ServiceURLs(); len(urls) > 0 {
		chat, err := NewShoutrrrSender(ShoutrrrConfig{
			URLs:      urls,
			Timeout:   settings.Chat.Timeout,
			RateLimit: settings.Chat.RateLimit,
			RateBurst: settings.Chat.RateBurst,
		})
		if err != nil {
			return nil, err
		}
		opts.Chat = chat
	} else {
		log.Warn("no chat sink configured, chat alerts will be dropped")
	}

	if settings.PagingEnabled() {
		client := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Paging.Timeout})
		opts.Paging = NewPagingClient(client, settings.Paging.EventsURL, settings.Paging.RoutingKey, settings.Paging.Source)
		log.Info("paging enabled",
			logger.String("events_url", logger.RedactSensitiveData(settings.Paging.EventsURL)),
			logger.String("source", settings.Paging.Source))
	} else {
		log.Info("paging disabled, no routing key configured")
	}

	return NewDispatcher(opts), nil
}
