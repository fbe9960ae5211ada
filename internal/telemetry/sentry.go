// Package telemetry wires error reporting to Sentry. Nothing is sent unless
// a DSN is configured.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/monadwatch/internal/buildinfo"
	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
)

// flushTimeout bounds the final flush on shutdown
const flushTimeout = 2 * time.Second

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init initializes the Sentry SDK and installs the enhanced error reporter.
// It reports whether telemetry is enabled.
func Init(settings *conf.Settings, build *buildinfo.Context) (bool, error) {
	if settings.Sentry.DSN == "" {
		return false, nil
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "", // keep the hostname out of events
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, fmt.Errorf("sentry initialization failed: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("source", settings.Source.Type)
		scope.SetContext("application", map[string]any{
			"name":    "monadwatch",
			"version": build.GetVersion(),
		})
	})

	errors.SetPrivacyScrubber(logger.RedactSensitiveData)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	getLogger().Info("error telemetry enabled",
		logger.String("environment", environment),
		logger.String("release", build.Release()))
	return true, nil
}

// Flush waits for buffered events to be sent.
func Flush() {
	if !sentry.Flush(flushTimeout) {
		getLogger().Warn("sentry flush timed out", logger.Duration("timeout", flushTimeout))
	}
}

// applyPrivacyFilters strips host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = logger.RedactSensitiveData(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactSensitiveData(event.Exception[i].Value)
	}

	return event
}
