package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Defaults shared with the trackers' constructors
const (
	DefaultTimeoutThreshold  = 5
	DefaultLogSilenceChatSec = 60
	DefaultLogSilencePageSec = 300
	DefaultDedupeTTLMs       = 120000
	DefaultDedupeHighWater   = 4000
	DefaultWatchdogInterval  = 30 * time.Second
	DefaultJournalUnit       = "monad-ledger-tail"
	DefaultPagingSource      = "monad-validator"
	DefaultSinkTimeout       = 10 * time.Second
	DefaultMetricsListen     = "127.0.0.1:9464"
	DefaultMQTTTopic         = "monadwatch"
	DefaultBreakerThreshold  = 3
	DefaultBreakerCooldown   = time.Minute
	DefaultChatRateLimit     = 1.0
	DefaultChatRateBurst     = 5
)

// setDefaultConfig registers default values for every configuration key
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("validator.key", "")

	viper.SetDefault("timeout.threshold", DefaultTimeoutThreshold)

	viper.SetDefault("silence.log.chat_after", DefaultLogSilenceChatSec)
	viper.SetDefault("silence.log.page_after", DefaultLogSilencePageSec)
	viper.SetDefault("silence.chain.after", 0)
	viper.SetDefault("silence.interval", DefaultWatchdogInterval)

	viper.SetDefault("dedupe.ttl_ms", DefaultDedupeTTLMs)
	viper.SetDefault("dedupe.high_water", DefaultDedupeHighWater)

	viper.SetDefault("source.type", SourceJournal)
	viper.SetDefault("source.unit", DefaultJournalUnit)
	viper.SetDefault("source.path", "")

	viper.SetDefault("chat.telegram.token", "")
	viper.SetDefault("chat.telegram.chat_id", "")
	viper.SetDefault("chat.urls", []string{})
	viper.SetDefault("chat.timeout", DefaultSinkTimeout)
	viper.SetDefault("chat.rate_limit", DefaultChatRateLimit)
	viper.SetDefault("chat.rate_burst", DefaultChatRateBurst)

	viper.SetDefault("paging.routing_key", "")
	viper.SetDefault("paging.events_url", "")
	viper.SetDefault("paging.source", DefaultPagingSource)
	viper.SetDefault("paging.timeout", DefaultSinkTimeout)
	viper.SetDefault("paging.breaker_threshold", DefaultBreakerThreshold)
	viper.SetDefault("paging.breaker_cooldown", DefaultBreakerCooldown)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "")
	viper.SetDefault("mqtt.topic", DefaultMQTTTopic)
	viper.SetDefault("mqtt.client_id", "monadwatch")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", DefaultMetricsListen)

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.file", "")
}
