package notification

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/monadwatch/internal/errors"
)

// webhookRecorder is an HTTP endpoint for shoutrrr's generic service.
type webhookRecorder struct {
	server *httptest.Server
	status int

	mu     sync.Mutex
	bodies []string
}

func newWebhookRecorder(t *testing.T, status int) *webhookRecorder {
	t.Helper()
	w := &webhookRecorder{status: status}
	w.server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.mu.Lock()
		w.bodies = append(w.bodies, string(body))
		w.mu.Unlock()
		rw.WriteHeader(w.status)
	}))
	t.Cleanup(w.server.Close)
	return w
}

// shoutrrrURL returns a generic:// URL that posts to the recorder over plain HTTP.
func (w *webhookRecorder) shoutrrrURL() string {
	return "generic://" + strings.TrimPrefix(w.server.URL, "http://") + "/hook?disabletls=yes"
}

func (w *webhookRecorder) Bodies() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.bodies...)
}

func TestNewShoutrrrSenderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		urls []string
	}{
		{"no urls", nil},
		{"unknown service", []string{"nosuchservice://token@host"}},
		{"malformed", []string{"::not a url"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewShoutrrrSender(ShoutrrrConfig{URLs: tt.urls})
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
		})
	}
}

func TestShoutrrrSenderDelivers(t *testing.T) {
	t.Parallel()

	rec := newWebhookRecorder(t, http.StatusOK)
	sender, err := NewShoutrrrSender(ShoutrrrConfig{URLs: []string{rec.shoutrrrURL()}, Timeout: 2 * time.Second})
	require.NoError(t, err)

	require.NoError(t, sender.Send(t.Context(), "<b>Logs resumed</b>"))
	bodies := rec.Bodies()
	require.Len(t, bodies, 1)
	assert.Contains(t, bodies[0], "Logs resumed")
}

func TestShoutrrrSenderReportsServiceError(t *testing.T) {
	t.Parallel()

	rec := newWebhookRecorder(t, http.StatusInternalServerError)
	sender, err := NewShoutrrrSender(ShoutrrrConfig{URLs: []string{rec.shoutrrrURL()}, Timeout: 2 * time.Second})
	require.NoError(t, err)

	err = sender.Send(t.Context(), "hello")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
}

func TestShoutrrrSenderRateLimit(t *testing.T) {
	t.Parallel()

	rec := newWebhookRecorder(t, http.StatusOK)
	sender, err := NewShoutrrrSender(ShoutrrrConfig{
		URLs:      []string{rec.shoutrrrURL()},
		Timeout:   2 * time.Second,
		RateLimit: 0.001,
		RateBurst: 1,
	})
	require.NoError(t, err)

	require.NoError(t, sender.Send(t.Context(), "first"))

	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()
	err = sender.Send(ctx, "second")
	require.Error(t, err)
	assert.Len(t, rec.Bodies(), 1, "throttled message must not reach the service")
}
