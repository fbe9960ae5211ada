package errors

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every built EnhancedError while enabled
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

var (
	reporterMu       sync.RWMutex
	telemetryReport  TelemetryReporter
	privacyScrubber  func(string) string
	queryStringRegex = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
)

// SetTelemetryReporter installs the global reporter. Passing nil disables reporting.
func SetTelemetryReporter(reporter TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	telemetryReport = reporter
	hasActiveReporting.Store(reporter != nil && reporter.IsEnabled())
}

// SetPrivacyScrubber installs the function applied to messages and string
// context values before they leave the process.
func SetPrivacyScrubber(scrub func(string) string) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	privacyScrubber = scrub
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	reporter := telemetryReport
	reporterMu.RUnlock()

	if reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}

func scrub(message string) string {
	reporterMu.RLock()
	fn := privacyScrubber
	reporterMu.RUnlock()

	if fn != nil {
		return fn(message)
	}
	return queryStringRegex.ReplaceAllString(message, "$1?[REDACTED]")
}

// SentryReporter sends enhanced errors to Sentry
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a Sentry reporter. sentry.Init must have been called.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError captures ee once, with scrubbed message and context
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrub(fmt.Sprintf("[%s] %s", ee.Category, ee.Err.Error()))

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrub(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}
		level := levelFor(ee.Category)
		scope.SetLevel(level)
		scope.SetFingerprint([]string{ee.Component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{
			Type:  fmt.Sprintf("%s %s", ee.Component, ee.Category),
			Value: message,
		}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// levelFor maps categories to Sentry levels. Sink and stream failures are
// usually transient.
func levelFor(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryNotification, CategoryMQTTConnect, CategoryMQTTPublish, CategoryTimeout:
		return sentry.LevelWarning
	case CategoryParsing:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}
