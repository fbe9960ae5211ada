package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/notification"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type call struct {
	op   string
	key  string
	text string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []call
}

func (r *recordingNotifier) Notify(_ context.Context, text string) bool {
	r.record(call{op: "notify", text: text})
	return true
}

func (r *recordingNotifier) PageTrigger(_ context.Context, key, summary string, _ notification.Severity, _ map[string]any) bool {
	r.record(call{op: "trigger", key: key, text: summary})
	return true
}

func (r *recordingNotifier) PageResolve(_ context.Context, key, summary string) bool {
	r.record(call{op: "resolve", key: key, text: summary})
	return true
}

func (r *recordingNotifier) record(c call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

func (r *recordingNotifier) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// ops returns the op sequence, e.g. "notify,trigger".
func (r *recordingNotifier) ops() string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.op
	}
	return strings.Join(ops, ",")
}

// hasText reports whether any chat message contains s.
func (r *recordingNotifier) hasText(s string) bool {
	for _, c := range r.Calls() {
		if c.op == "notify" && strings.Contains(c.text, s) {
			return true
		}
	}
	return false
}

func logLine(kind string, round int64, author string) []byte {
	return fmt.Appendf(nil, `{"timestamp":"2026-03-01T12:00:00Z","fields":{"message":%q,"round":%d,"author":%q}}`, kind, round, author)
}

func testConfig(clock *fakeClock) Config {
	return Config{
		Identity:         "val1",
		TimeoutThreshold: 3,
		LogChatAfter:     60,
		LogPageAfter:     300,
		Unit:             "monad-ledger-tail",
		PagingSource:     "monad-validator",
		PagingEnabled:    true,
		Now:              clock.Now,
	}
}
