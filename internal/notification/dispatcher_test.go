package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

type fakeChat struct {
	mu   sync.Mutex
	err  error
	sent []string
}

func (f *fakeChat) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, text)
	return nil
}

type pagingCall struct {
	action   string
	key      string
	summary  string
	severity Severity
	details  map[string]any
}

type fakePaging struct {
	mu    sync.Mutex
	err   error
	calls []pagingCall
}

func (f *fakePaging) Trigger(_ context.Context, key, summary string, severity Severity, details map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pagingCall{"trigger", key, summary, severity, details})
	return f.err
}

func (f *fakePaging) Resolve(_ context.Context, key, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pagingCall{action: "resolve", key: key, summary: summary})
	return f.err
}

type fakeMirror struct {
	mu     sync.Mutex
	alerts []*Alert
}

func (f *fakeMirror) PublishAlert(_ context.Context, a *Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	return nil
}

func TestDispatcherNotify(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{}
	mirror := &fakeMirror{}
	d := NewDispatcher(Options{Chat: chat, Mirror: mirror})
	d.newID = func() string { return "id-1" }

	assert.True(t, d.Notify(t.Context(), "🚨 <b>No ledger-tail logs</b>\n• Silent for: <b>61s</b>"))
	require.Len(t, chat.sent, 1)
	assert.Contains(t, chat.sent[0], "<b>No ledger-tail logs</b>", "chat receives the HTML body")

	require.Len(t, mirror.alerts, 1)
	a := mirror.alerts[0]
	assert.Equal(t, "id-1", a.ID)
	assert.Equal(t, OpNotify, a.Action)
	assert.True(t, a.Delivered)
	assert.NotContains(t, a.Text, "<b>", "mirror receives plain text")
	assert.Contains(t, a.Text, "No ledger-tail logs")
}

func TestDispatcherWithoutSinks(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(Options{})
	assert.False(t, d.ChatEnabled())
	assert.False(t, d.PagingEnabled())
	assert.False(t, d.Notify(t.Context(), "hello"))
	assert.False(t, d.PageTrigger(t.Context(), "k", "s", SeverityCritical, nil))
	assert.False(t, d.PageResolve(t.Context(), "k", "s"))
}

func TestDispatcherFailuresAreSwallowed(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errors.New("401 unauthorized")}
	paging := &fakePaging{err: errors.New("dial tcp: connection refused")}
	d := NewDispatcher(Options{Chat: chat, Paging: paging})

	assert.False(t, d.Notify(t.Context(), "hello"))
	assert.False(t, d.PageTrigger(t.Context(), "k", "s", SeverityCritical, nil))
	assert.False(t, d.PageResolve(t.Context(), "k", "s"))
}

func TestDispatcherPaging(t *testing.T) {
	t.Parallel()

	paging := &fakePaging{}
	d := NewDispatcher(Options{Paging: paging})
	require.True(t, d.PagingEnabled())

	details := map[string]any{"count": 3, "round": int64(3)}
	assert.True(t, d.PageTrigger(t.Context(), "timeout-streak-val1", "Timeout streak", SeverityCritical, details))
	assert.True(t, d.PageResolve(t.Context(), "timeout-streak-val1", "recovered"))

	require.Len(t, paging.calls, 2)
	assert.Equal(t, pagingCall{"trigger", "timeout-streak-val1", "Timeout streak", SeverityCritical, details}, paging.calls[0])
	assert.Equal(t, "resolve", paging.calls[1].action)
}

func TestDispatcherBreakerShortCircuits(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := metrics.NewNotificationMetrics(reg)
	require.NoError(t, err)

	paging := &fakePaging{err: errors.New("503")}
	d := NewDispatcher(Options{
		Paging:  paging,
		Metrics: m,
		Breaker: CircuitBreakerConfig{MaxFailures: 2, Cooldown: time.Hour},
	})

	for range 5 {
		assert.False(t, d.PageTrigger(t.Context(), "k", "s", SeverityCritical, nil))
	}

	assert.Len(t, paging.calls, 2, "breaker stops calling the sink once open")
	assert.InDelta(t, 2, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(SinkPaging, OpTrigger, metrics.StatusError)), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.DeliveriesTotal.WithLabelValues(SinkPaging, OpTrigger, metrics.StatusRejected)), 0)
	assert.InDelta(t, float64(StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues(SinkPaging)), 0)
}

func TestDispatcherAppliesSinkTimeout(t *testing.T) {
	t.Parallel()

	blocking := chatFunc(func(ctx context.Context, _ string) error {
		<-ctx.Done()
		return ctx.Err()
	})
	d := NewDispatcher(Options{Chat: blocking, ChatTimeout: 20 * time.Millisecond})

	start := time.Now()
	assert.False(t, d.Notify(t.Context(), "hello"))
	assert.Less(t, time.Since(start), time.Second)
}

type chatFunc func(ctx context.Context, text string) error

func (f chatFunc) Send(ctx context.Context, text string) error { return f(ctx, text) }
