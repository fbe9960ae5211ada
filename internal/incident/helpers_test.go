package incident

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/events"
	"github.com/tphakala/monadwatch/internal/notification"
)

// fakeClock is a manually advanced clock.
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
	op       string // notify, trigger or resolve
	key      string
	text     string // chat text or paging summary
	severity notification.Severity
	details  map[string]any
}

// recordingNotifier records every sink call in order.
type recordingNotifier struct {
	mu     sync.Mutex
	calls  []call
	result bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{result: true}
}

func (r *recordingNotifier) Notify(_ context.Context, text string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "notify", text: text})
	return r.result
}

func (r *recordingNotifier) PageTrigger(_ context.Context, key, summary string, severity notification.Severity, details map[string]any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "trigger", key: key, text: summary, severity: severity, details: details})
	return r.result
}

func (r *recordingNotifier) PageResolve(_ context.Context, key, summary string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "resolve", key: key, text: summary})
	return r.result
}

func (r *recordingNotifier) Calls() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func (r *recordingNotifier) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.op == op {
			n++
		}
	}
	return n
}

func (r *recordingNotifier) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func timeoutEvent(author string, round int64) *events.Event {
	return &events.Event{
		Kind:             events.KindTimeout,
		Round:            round,
		Author:           author,
		AuthorNormalized: events.NormalizeIdentity(author),
	}
}

func finalizedEvent(author string, round int64) *events.Event {
	return &events.Event{
		Kind:             events.KindFinalizedBlock,
		Round:            round,
		Author:           author,
		AuthorNormalized: events.NormalizeIdentity(author),
	}
}
