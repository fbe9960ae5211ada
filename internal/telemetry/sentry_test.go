package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/monadwatch/internal/buildinfo"
	"github.com/tphakala/monadwatch/internal/conf"
)

func TestInitDisabledWithoutDSN(t *testing.T) {
	t.Parallel()

	enabled, err := Init(&conf.Settings{}, buildinfo.NewContext("v1", ""))
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestApplyPrivacyFilters(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "validator-01",
		User:       sentry.User{ID: "root", IPAddress: "10.0.0.5"},
		Contexts: map[string]sentry.Context{
			"device":      {"arch": "amd64"},
			"os":          {"name": "linux"},
			"runtime":     {"name": "go"},
			"application": {"name": "monadwatch"},
		},
		Extra: map[string]any{
			"component":  "notification",
			"error_type": "network",
			"hostname":   "validator-01",
		},
		Tags: map[string]string{
			"server_name": "validator-01",
			"hostname":    "validator-01",
			"category":    "notification",
		},
		Message: "post https://api.telegram.org/bot123456:ABCdefGHIjklMNOpqrSTUvwxYZ/sendMessage failed",
	}

	filtered := applyPrivacyFilters(event)

	assert.Empty(t, filtered.ServerName)
	assert.True(t, filtered.User.IsEmpty())
	assert.Len(t, filtered.Contexts, 1)
	assert.Contains(t, filtered.Contexts, "application")
	assert.Equal(t, map[string]any{"component": "notification", "error_type": "network"}, filtered.Extra)
	assert.Equal(t, map[string]string{"category": "notification"}, filtered.Tags)
	assert.NotContains(t, filtered.Message, "ABCdefGHIjklMNOpqrSTUvwxYZ")
}
