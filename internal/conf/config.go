// Package conf loads and validates monitor settings from defaults, an
// optional YAML file and environment variables.
package conf

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/secrets"
)

// Settings holds all monitor configuration
type Settings struct {
	Debug bool `mapstructure:"debug" yaml:"debug"`

	Validator ValidatorSettings `mapstructure:"validator" yaml:"validator"`
	Timeout   TimeoutSettings   `mapstructure:"timeout" yaml:"timeout"`
	Silence   SilenceSettings   `mapstructure:"silence" yaml:"silence"`
	Dedupe    DedupeSettings    `mapstructure:"dedupe" yaml:"dedupe"`
	Source    SourceSettings    `mapstructure:"source" yaml:"source"`
	Chat      ChatSettings      `mapstructure:"chat" yaml:"chat"`
	Paging    PagingSettings    `mapstructure:"paging" yaml:"paging"`
	MQTT      MQTTSettings      `mapstructure:"mqtt" yaml:"mqtt"`
	Metrics   MetricsSettings   `mapstructure:"metrics" yaml:"metrics"`
	Sentry    SentrySettings    `mapstructure:"sentry" yaml:"sentry"`

	Logging logger.LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ValidatorSettings identifies the locally operated validator
type ValidatorSettings struct {
	Key string `mapstructure:"key" yaml:"key"` // author key as it appears in consensus logs
}

// TimeoutSettings configures the timeout streak tracker
type TimeoutSettings struct {
	Threshold int `mapstructure:"threshold" yaml:"threshold"` // streak length that opens a paging incident
}

// SilenceSettings configures the log and chain silence trackers
type SilenceSettings struct {
	Log      LogSilenceSettings   `mapstructure:"log" yaml:"log"`
	Chain    ChainSilenceSettings `mapstructure:"chain" yaml:"chain"`
	Interval time.Duration        `mapstructure:"interval" yaml:"interval"` // watchdog tick
}

// LogSilenceSettings thresholds are in seconds
type LogSilenceSettings struct {
	ChatAfter int `mapstructure:"chat_after" yaml:"chat_after"`
	PageAfter int `mapstructure:"page_after" yaml:"page_after"`
}

// ChainSilenceSettings threshold is in seconds, 0 disables the tracker
type ChainSilenceSettings struct {
	After int `mapstructure:"after" yaml:"after"`
}

// DedupeSettings configures the event dedupe cache
type DedupeSettings struct {
	TTLMs     int `mapstructure:"ttl_ms" yaml:"ttl_ms"`
	HighWater int `mapstructure:"high_water" yaml:"high_water"` // entry count that triggers an expired sweep
}

// Source types
const (
	SourceJournal = "journal"
	SourceStdin   = "stdin"
	SourceFile    = "file"
)

// SourceSettings selects where log lines come from
type SourceSettings struct {
	Type string `mapstructure:"type" yaml:"type"`
	Unit string `mapstructure:"unit" yaml:"unit"` // systemd unit, also used as the display name
	Path string `mapstructure:"path" yaml:"path"` // file source only
}

// ChatSettings configures the chat sink
type ChatSettings struct {
	Telegram  TelegramSettings `mapstructure:"telegram" yaml:"telegram"`
	URLs      []string         `mapstructure:"urls" yaml:"urls"` // additional shoutrrr service URLs
	Timeout   time.Duration    `mapstructure:"timeout" yaml:"timeout"`
	RateLimit float64          `mapstructure:"rate_limit" yaml:"rate_limit"` // messages per second
	RateBurst int              `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// TelegramSettings holds bot credentials
type TelegramSettings struct {
	Token     string `mapstructure:"token" yaml:"token"`
	TokenFile string `mapstructure:"token_file" yaml:"token_file"` // read the token from a file instead
	ChatID    string `mapstructure:"chat_id" yaml:"chat_id"`
}

// PagingSettings configures the Events v2 paging sink
type PagingSettings struct {
	RoutingKey       string        `mapstructure:"routing_key" yaml:"routing_key"`
	RoutingKeyFile   string        `mapstructure:"routing_key_file" yaml:"routing_key_file"`
	EventsURL        string        `mapstructure:"events_url" yaml:"events_url"`
	Source           string        `mapstructure:"source" yaml:"source"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
	BreakerThreshold int           `mapstructure:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `mapstructure:"breaker_cooldown" yaml:"breaker_cooldown"`
}

// MQTTSettings configures the optional alert mirror
type MQTTSettings struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker       string `mapstructure:"broker" yaml:"broker"`
	Topic        string `mapstructure:"topic" yaml:"topic"`
	Username     string `mapstructure:"username" yaml:"username"`
	Password     string `mapstructure:"password" yaml:"password"`
	PasswordFile string `mapstructure:"password_file" yaml:"password_file"`
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	Retain       bool   `mapstructure:"retain" yaml:"retain"`
}

// MetricsSettings configures the Prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	DSN         string `mapstructure:"dsn" yaml:"dsn"`
	Environment string `mapstructure:"environment" yaml:"environment"`
}

var (
	settingsMu       sync.RWMutex
	settingsInstance *Settings
)

// Load reads configuration into a new Settings and validates it. configFile
// overrides the search path when non-empty.
func Load(configFile string) (*Settings, error) {
	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings, err := fromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	settingsMu.Lock()
	settingsInstance = settings
	settingsMu.Unlock()
	return settings, nil
}

// Setting returns the most recently loaded settings, or nil before Load.
func Setting() *Settings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsInstance
}

// fromViper unmarshals and validates settings from v
func fromViper(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := settings.resolveSecrets(); err != nil {
		return nil, err
	}
	settings.normalize()

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// initViper registers defaults and env bindings and reads the config file if present
func initViper(configFile string) error {
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, path := range DefaultConfigPaths() {
			viper.AddConfigPath(path)
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			// defaults plus environment are a complete configuration
			return nil
		}
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "read-config").
			Build()
	}
	return nil
}

// DefaultConfigPaths lists the directories searched for config.yaml, in order
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "monadwatch"))
	}
	return append(paths, "/etc/monadwatch")
}

// resolveSecrets replaces credentials that have a *_file counterpart
func (s *Settings) resolveSecrets() error {
	for _, ref := range []struct {
		file  string
		value *string
	}{
		{s.Chat.Telegram.TokenFile, &s.Chat.Telegram.Token},
		{s.Paging.RoutingKeyFile, &s.Paging.RoutingKey},
		{s.MQTT.PasswordFile, &s.MQTT.Password},
	} {
		v, err := secrets.Resolve(ref.file, *ref.value)
		if err != nil {
			return err
		}
		*ref.value = v
	}
	return nil
}

// normalize trims values that come from hand-edited env files
func (s *Settings) normalize() {
	s.Validator.Key = strings.TrimSpace(s.Validator.Key)
	s.Source.Unit = strings.TrimSpace(s.Source.Unit)
	s.Source.Type = strings.ToLower(strings.TrimSpace(s.Source.Type))
	s.Paging.RoutingKey = strings.TrimSpace(s.Paging.RoutingKey)
	s.Paging.EventsURL = strings.TrimSpace(s.Paging.EventsURL)
	s.Chat.Telegram.Token = strings.TrimSpace(s.Chat.Telegram.Token)
	s.Chat.Telegram.ChatID = strings.TrimSpace(s.Chat.Telegram.ChatID)
	if s.Debug {
		s.Logging.Level = string(logger.LogLevelDebug)
	}
}

// DedupeTTL returns the dedupe window as a duration
func (s *Settings) DedupeTTL() time.Duration {
	return time.Duration(s.Dedupe.TTLMs) * time.Millisecond
}

// PagingEnabled reports whether paging credentials are configured
func (s *Settings) PagingEnabled() bool {
	return s.Paging.RoutingKey != ""
}

// ServiceURLs returns the shoutrrr URLs for all configured chat services.
// Telegram messages are sent with HTML parse mode.
func (c *ChatSettings) ServiceURLs() []string {
	var urls []string
	if c.Telegram.Token != "" && c.Telegram.ChatID != "" {
		q := url.Values{}
		q.Set("chats", c.Telegram.ChatID)
		q.Set("parsemode", "HTML")
		q.Set("preview", "No")
		urls = append(urls, fmt.Sprintf("telegram://%s@telegram?%s", c.Telegram.Token, q.Encode()))
	}
	for _, u := range c.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
