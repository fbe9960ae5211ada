// Package incident holds the three incident state machines: the timeout
// streak of the local validator, log silence and chain silence.
//
// Each tracker serializes its own mutations with a mutex held across the
// whole check, flip and sink call sequence, so the event pump and the
// watchdog never race on a flag. Trackers are independent of each other.
package incident

import (
	"context"
	"time"

	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/notification"
)

// Notifier is the subset of the dispatcher the trackers use.
type Notifier interface {
	Notify(ctx context.Context, text string) bool
	PageTrigger(ctx context.Context, key, summary string, severity notification.Severity, details map[string]any) bool
	PageResolve(ctx context.Context, key, summary string) bool
}

// Tracker names used in logs and metrics
const (
	TrackerTimeout      = "timeout-streak"
	TrackerLogSilence   = "log-silence"
	TrackerChainSilence = "chain-silence"
)

// Transition names
const (
	TransitionChatOpened   = "chat_opened"
	TransitionChatClosed   = "chat_closed"
	TransitionPageOpened   = "page_opened"
	TransitionPageResolved = "page_resolved"
)

func getLogger() logger.Logger {
	return logger.Global().Module("incident")
}

func nowOr(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}
