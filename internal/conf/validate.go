package conf

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/tphakala/monadwatch/internal/errors"
)

// ValidationError collects every configuration problem found in one pass
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("configuration errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks settings that would otherwise fail at runtime.
// The returned error wraps a ValidationError.
func ValidateSettings(s *Settings) error {
	ve := ValidationError{}
	add := func(format string, args ...any) {
		ve.Errors = append(ve.Errors, fmt.Sprintf(format, args...))
	}

	if s.Validator.Key == "" {
		add("validator key is required (MY_VALIDATOR_KEY)")
	}
	if s.Timeout.Threshold < 1 {
		add("timeout threshold must be at least 1, got %d", s.Timeout.Threshold)
	}
	if s.Silence.Log.ChatAfter < 1 {
		add("log silence chat threshold must be at least 1 second, got %d", s.Silence.Log.ChatAfter)
	}
	if s.Silence.Log.PageAfter < 1 {
		add("log silence paging threshold must be at least 1 second, got %d", s.Silence.Log.PageAfter)
	}
	if s.Silence.Chain.After < 0 {
		add("chain silence threshold cannot be negative, got %d", s.Silence.Chain.After)
	}
	if s.Silence.Interval <= 0 {
		add("watchdog interval must be positive")
	}
	if s.Dedupe.TTLMs < 1 {
		add("dedupe TTL must be positive, got %d ms", s.Dedupe.TTLMs)
	}
	if s.Dedupe.HighWater < 1 {
		add("dedupe high water mark must be positive")
	}

	switch s.Source.Type {
	case SourceJournal:
		if s.Source.Unit == "" {
			add("journal source requires a unit name")
		}
	case SourceFile:
		if s.Source.Path == "" {
			add("file source requires source.path")
		}
	case SourceStdin:
	default:
		add("unknown source type %q", s.Source.Type)
	}

	if s.PagingEnabled() {
		if s.Paging.EventsURL == "" {
			add("PAGERDUTY_EVENTS_URL is required when paging is enabled")
		} else if u, err := url.Parse(s.Paging.EventsURL); err != nil || u.Scheme == "" || u.Host == "" {
			add("paging events URL %q is not an absolute URL", s.Paging.EventsURL)
		}
	}
	if s.Chat.Timeout <= 0 || s.Paging.Timeout <= 0 {
		add("sink timeouts must be positive")
	}

	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		add("mqtt broker is required when mqtt is enabled")
	}
	if s.Metrics.Enabled && s.Metrics.Listen == "" {
		add("metrics listen address is required when metrics are enabled")
	}

	if len(ve.Errors) == 0 {
		return nil
	}
	return errors.New(ve).
		Component("conf").
		Category(errors.CategoryValidation).
		Context("error_count", len(ve.Errors)).
		Build()
}
