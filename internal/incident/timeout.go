package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/events"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/notification"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// TimeoutResolveSummary is sent when the streak ends.
const TimeoutResolveSummary = "Timeout streak recovered (finalized observed)."

// TimeoutConfig configures a TimeoutTracker.
type TimeoutConfig struct {
	// Identity is the local validator key as configured.
	Identity      string
	Threshold     int
	PagingEnabled bool
	Now           func() time.Time
	Metrics       *metrics.MonitorMetrics
}

// TimeoutState is a point-in-time copy of the tracker state.
type TimeoutState struct {
	Consecutive int
	LastRound   int64
	PagingOpen  bool
}

// TimeoutTracker counts consecutive timeouts of the local validator and
// pages once the streak reaches the threshold. A finalized block authored
// by the same validator ends the streak.
type TimeoutTracker struct {
	mu sync.Mutex

	notifier      Notifier
	self          string
	threshold     int
	pagingEnabled bool
	key           string
	now           func() time.Time
	metrics       *metrics.MonitorMetrics

	consecutive int
	lastRound   int64
	pagingOpen  bool
}

// NewTimeoutTracker creates a tracker with an empty streak.
func NewTimeoutTracker(cfg TimeoutConfig, n Notifier) *TimeoutTracker {
	self := events.NormalizeIdentity(cfg.Identity)
	keyID := self
	if keyID == "" {
		keyID = "unknown"
	}
	return &TimeoutTracker{
		notifier:      n,
		self:          self,
		threshold:     max(cfg.Threshold, 1),
		pagingEnabled: cfg.PagingEnabled,
		key:           "timeout-streak-" + keyID,
		now:           nowOr(cfg.Now),
		metrics:       cfg.Metrics,
		lastRound:     events.NoRound,
	}
}

// IncidentKey returns the paging dedup key of this tracker.
func (t *TimeoutTracker) IncidentKey() string { return t.key }

// Observe applies one deduplicated event. Events authored by other
// validators and block proposals are ignored.
func (t *TimeoutTracker) Observe(ctx context.Context, ev *events.Event) {
	if !events.SameIdentity(ev.AuthorNormalized, t.self) {
		return
	}
	if ts, ok := ev.Timestamp(); ok {
		getLogger().Debug("local validator event",
			logger.String("kind", string(ev.Kind)),
			logger.Int64("round", ev.Round),
			logger.Time("source_time", ts))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Kind {
	case events.KindTimeout:
		t.onTimeout(ctx, ev)
	case events.KindFinalizedBlock:
		t.onFinalized(ctx, ev)
	case events.KindProposedBlock:
	}
}

func (t *TimeoutTracker) onTimeout(ctx context.Context, ev *events.Event) {
	if ev.Round == t.lastRound {
		getLogger().Debug("timeout round already counted", logger.Int64("round", ev.Round))
		return
	}
	t.lastRound = ev.Round
	t.consecutive++
	t.recordStreak()

	log := getLogger().With(logger.String("tracker", TrackerTimeout))
	log.Warn("local validator timeout",
		logger.Int("count", t.consecutive),
		logger.Int("threshold", t.threshold),
		logger.Int64("round", ev.Round))

	t.notifier.Notify(ctx, TimeoutMessage(t.consecutive, t.threshold, ev.Round, ev.Author, t.now()))

	if !t.pagingEnabled || t.pagingOpen || t.consecutive < t.threshold {
		return
	}

	summary := fmt.Sprintf("Timeout streak ≥ %d for validator %s…", t.threshold, truncate(ev.Author, 12))
	details := map[string]any{
		"count":     t.consecutive,
		"round":     ev.Round,
		"validator": ev.Author,
		"address":   ev.AuthorAddress,
	}
	// Open even if delivery failed; resolve is idempotent at the sink.
	if !t.notifier.PageTrigger(ctx, t.key, summary, notification.SeverityCritical, details) {
		log.Warn("timeout streak trigger not delivered", logger.String("incident_key", t.key))
	}
	t.pagingOpen = true
	t.recordTransition(TransitionPageOpened)
}

func (t *TimeoutTracker) onFinalized(ctx context.Context, ev *events.Event) {
	if t.consecutive > 0 {
		getLogger().Info("timeout streak recovered",
			logger.String("tracker", TrackerTimeout),
			logger.Int("streak", t.consecutive),
			logger.Int64("round", ev.Round))
		t.notifier.Notify(ctx, TimeoutRecoveredMessage(ev.Round, t.consecutive))
		t.consecutive = 0
		t.recordStreak()
	}
	if t.pagingEnabled && t.pagingOpen {
		t.notifier.PageResolve(ctx, t.key, TimeoutResolveSummary)
		t.pagingOpen = false
		t.recordTransition(TransitionPageResolved)
	}
}

// Snapshot returns a copy of the current state.
func (t *TimeoutTracker) Snapshot() TimeoutState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TimeoutState{
		Consecutive: t.consecutive,
		LastRound:   t.lastRound,
		PagingOpen:  t.pagingOpen,
	}
}

func (t *TimeoutTracker) recordStreak() {
	if t.metrics != nil {
		t.metrics.TimeoutStreak.Set(float64(t.consecutive))
	}
}

func (t *TimeoutTracker) recordTransition(transition string) {
	if t.metrics == nil {
		return
	}
	t.metrics.RecordTransition(TrackerTimeout, transition)
	t.metrics.SetIncidentOpen(TrackerTimeout, metrics.TierPage, t.pagingOpen)
}
