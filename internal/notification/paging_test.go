package notification

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/httpclient"
)

const testEventsURL = "https://events.example.test/v2/enqueue"

// newMockPagingClient returns a PagingClient whose transport is a fresh mock.
func newMockPagingClient(t *testing.T) (*PagingClient, *httpmock.MockTransport) {
	t.Helper()
	mt := httpmock.NewMockTransport()
	client := httpclient.New(&httpclient.Config{Transport: mt})
	t.Cleanup(client.Close)
	return NewPagingClient(client, testEventsURL, "rk-123", "monad-validator"), mt
}

// captureEvents registers a responder recording every posted event.
func captureEvents(t *testing.T, mt *httpmock.MockTransport, status int) *[]PagingEvent {
	t.Helper()
	var got []PagingEvent
	mt.RegisterResponder(http.MethodPost, testEventsURL, func(req *http.Request) (*http.Response, error) {
		var ev PagingEvent
		if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
			return httpmock.NewStringResponse(http.StatusBadRequest, err.Error()), nil
		}
		got = append(got, ev)
		return httpmock.NewStringResponse(status, `{"status":"success","dedup_key":"`+ev.DedupKey+`"}`), nil
	})
	return &got
}

func TestPagingClientTrigger(t *testing.T) {
	t.Parallel()

	p, mt := newMockPagingClient(t)
	got := captureEvents(t, mt, http.StatusAccepted)

	err := p.Trigger(t.Context(), "timeout-streak-abc", "Timeout streak ≥ 3 for validator abc…", SeverityCritical,
		map[string]any{"count": 3, "round": 3})
	require.NoError(t, err)
	require.Len(t, *got, 1)

	ev := (*got)[0]
	assert.Equal(t, "rk-123", ev.RoutingKey)
	assert.Equal(t, "trigger", ev.EventAction)
	assert.Equal(t, "timeout-streak-abc", ev.DedupKey)
	require.NotNil(t, ev.Payload)
	assert.Equal(t, SeverityCritical, ev.Payload.Severity)
	assert.Equal(t, "monad-validator", ev.Payload.Source)
	assert.Equal(t, "validator", ev.Payload.Component)
	assert.Equal(t, "monad", ev.Payload.Group)
	assert.Equal(t, "monitor", ev.Payload.Class)
	assert.InDelta(t, 3, ev.Payload.CustomDetails["count"], 0)
}

func TestPagingClientResolve(t *testing.T) {
	t.Parallel()

	p, mt := newMockPagingClient(t)
	got := captureEvents(t, mt, http.StatusAccepted)

	require.NoError(t, p.Resolve(t.Context(), "chain-silence-monad-validator", "Blocks resumed"))
	require.Len(t, *got, 1)
	assert.Equal(t, "resolve", (*got)[0].EventAction)
	assert.Equal(t, "chain-silence-monad-validator", (*got)[0].DedupKey)
	assert.Equal(t, SeverityInfo, (*got)[0].Payload.Severity)
}

func TestPagingClientFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		responder httpmock.Responder
		category  errors.ErrorCategory
	}{
		{"rejected", httpmock.NewStringResponder(http.StatusBadRequest, `{"status":"invalid event"}`), errors.CategoryNotification},
		{"server error", httpmock.NewStringResponder(http.StatusInternalServerError, "oops"), errors.CategoryNotification},
		{"transport error", httpmock.NewErrorResponder(assert.AnError), errors.CategoryNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, mt := newMockPagingClient(t)
			mt.RegisterResponder(http.MethodPost, testEventsURL, tt.responder)

			err := p.Trigger(t.Context(), "k", "s", SeverityWarning, nil)
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category), "got %v", err)
			assert.NotContains(t, err.Error(), "rk-123")

			var ee *errors.EnhancedError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, "paging_trigger", ee.Context["operation"])
			assert.Contains(t, ee.Context, "duration_ms")
		})
	}
}
