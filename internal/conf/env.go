package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding maps a config key to the environment variable that overrides it
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings keeps the variable names used by existing deployments
func getEnvBindings() []envBinding {
	return []envBinding{
		{"validator.key", "MY_VALIDATOR_KEY", nil},
		{"timeout.threshold", "TIMEOUT_THRESHOLD", validateEnvPositiveInt},
		{"silence.log.chat_after", "LOG_SILENCE_TG_SEC", validateEnvPositiveInt},
		{"silence.log.page_after", "LOG_SILENCE_PD_SEC", validateEnvPositiveInt},
		{"silence.chain.after", "CHAIN_SILENCE_SEC", validateEnvNonNegativeInt},
		{"silence.interval", "WATCHDOG_INTERVAL", nil},
		{"dedupe.ttl_ms", "DEDUPE_TTL_MS", validateEnvPositiveInt},
		{"source.type", "SOURCE_TYPE", validateEnvSourceType},
		{"source.unit", "JOURNAL_UNIT", nil},
		{"source.path", "SOURCE_PATH", nil},
		{"chat.telegram.token", "TELEGRAM_BOT_TOKEN", nil},
		{"chat.telegram.token_file", "TELEGRAM_BOT_TOKEN_FILE", nil},
		{"chat.telegram.chat_id", "TELEGRAM_CHAT_ID", nil},
		{"paging.routing_key", "PAGERDUTY_ROUTING_KEY", nil},
		{"paging.routing_key_file", "PAGERDUTY_ROUTING_KEY_FILE", nil},
		{"paging.events_url", "PAGERDUTY_EVENTS_URL", nil},
		{"paging.source", "PD_SOURCE", nil},
		{"mqtt.enabled", "MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "MQTT_BROKER", nil},
		{"mqtt.topic", "MQTT_TOPIC", nil},
		{"mqtt.username", "MQTT_USERNAME", nil},
		{"mqtt.password", "MQTT_PASSWORD", nil},
		{"mqtt.password_file", "MQTT_PASSWORD_FILE", nil},
		{"metrics.enabled", "METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "METRICS_LISTEN", nil},
		{"sentry.dsn", "SENTRY_DSN", nil},
		{"logging.level", "LOG_LEVEL", nil},
		{"logging.file", "LOG_FILE", nil},
	}
}

// bindEnvVars binds every environment variable and validates the ones that are set
func bindEnvVars() error {
	var problems []string

	for _, b := range getEnvBindings() {
		if err := viper.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			problems = append(problems, fmt.Sprintf("failed to bind %s: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if value := os.Getenv(b.EnvVar); value != "" {
			if err := b.Validate(value); err != nil {
				problems = append(problems, fmt.Sprintf("invalid %s value %q: %v", b.EnvVar, value, err))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 0 {
		return fmt.Errorf("must be zero or a positive integer")
	}
	return nil
}

func validateEnvSourceType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case SourceJournal, SourceStdin, SourceFile:
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", SourceJournal, SourceStdin, SourceFile)
}
