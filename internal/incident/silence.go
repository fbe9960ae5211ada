package incident

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/notification"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// SilenceConfig configures a SilenceTracker. Thresholds are whole seconds
// of elapsed time since the last activity.
type SilenceConfig struct {
	Name      string
	ChatAfter int64
	PageAfter int64
	// Inclusive escalates at exactly the threshold instead of past it.
	Inclusive     bool
	PagingEnabled bool
	IncidentKey   string
	Severity      notification.Severity

	WarnMessage     func(seconds int64) string
	ResolvedMessage func() string
	PageSummary     func(seconds int64) string
	ResolveSummary  string

	Now     func() time.Time
	Metrics *metrics.MonitorMetrics
}

// SilenceState is a point-in-time copy of the tracker state.
type SilenceState struct {
	LastActivity time.Time
	ChatOpen     bool
	PagingOpen   bool
}

// SilenceTracker raises a chat alert and a paging incident when no activity
// has been marked for longer than the configured thresholds. Escalation only
// happens in Evaluate; recovery happens in MarkActivity.
type SilenceTracker struct {
	mu  sync.Mutex
	cfg SilenceConfig

	notifier Notifier
	now      func() time.Time

	lastActivity time.Time
	chatOpen     bool
	pagingOpen   bool
}

// NewSilenceTracker creates a tracker whose silence starts now.
func NewSilenceTracker(cfg SilenceConfig, n Notifier) *SilenceTracker {
	now := nowOr(cfg.Now)
	return &SilenceTracker{
		cfg:          cfg,
		notifier:     n,
		now:          now,
		lastActivity: now(),
	}
}

// LogSilenceConfig is the log-silence instance: any recognized event counts
// as activity; chat and paging have separate thresholds.
type LogSilenceConfig struct {
	Unit          string
	PagingSource  string
	ChatAfter     int
	PageAfter     int
	PagingEnabled bool
	Now           func() time.Time
	Metrics       *metrics.MonitorMetrics
}

// NewLogSilenceTracker creates the log-silence tracker.
func NewLogSilenceTracker(cfg LogSilenceConfig, n Notifier) *SilenceTracker {
	return NewSilenceTracker(SilenceConfig{
		Name:          TrackerLogSilence,
		ChatAfter:     int64(cfg.ChatAfter),
		PageAfter:     int64(cfg.PageAfter),
		PagingEnabled: cfg.PagingEnabled,
		IncidentKey:   "ledger-tail-silence-" + cfg.PagingSource,
		Severity:      notification.SeverityCritical,
		WarnMessage: func(seconds int64) string {
			return LogSilenceWarnMessage(seconds, cfg.Unit)
		},
		ResolvedMessage: LogSilenceResolvedMessage,
		PageSummary: func(seconds int64) string {
			return fmt.Sprintf("No logs from %s for %ds", cfg.Unit, seconds)
		},
		ResolveSummary: "log activity restored",
		Now:            cfg.Now,
		Metrics:        cfg.Metrics,
	}, n)
}

// ChainSilenceConfig is the chain-silence instance: only block events count
// as activity and one threshold gates both tiers.
type ChainSilenceConfig struct {
	PagingSource  string
	After         int
	PagingEnabled bool
	Now           func() time.Time
	Metrics       *metrics.MonitorMetrics
}

// NewChainSilenceTracker creates the chain-silence tracker.
func NewChainSilenceTracker(cfg ChainSilenceConfig, n Notifier) *SilenceTracker {
	return NewSilenceTracker(SilenceConfig{
		Name:            TrackerChainSilence,
		ChatAfter:       int64(cfg.After),
		PageAfter:       int64(cfg.After),
		Inclusive:       true,
		PagingEnabled:   cfg.PagingEnabled,
		IncidentKey:     "chain-silence-" + cfg.PagingSource,
		Severity:        notification.SeverityWarning,
		WarnMessage:     ChainSilentWarnMessage,
		ResolvedMessage: ChainSilentResolvedMessage,
		PageSummary: func(seconds int64) string {
			return fmt.Sprintf("Chain has no new blocks for ~%d min", approxMinutes(seconds))
		},
		ResolveSummary: "Chain activity resumed",
		Now:            cfg.Now,
		Metrics:        cfg.Metrics,
	}, n)
}

// Name returns the tracker name.
func (s *SilenceTracker) Name() string { return s.cfg.Name }

// IncidentKey returns the paging dedup key of this tracker.
func (s *SilenceTracker) IncidentKey() string { return s.cfg.IncidentKey }

// MarkActivity records activity now and closes whatever is open: the chat
// alert first, then the paging incident.
func (s *SilenceTracker) MarkActivity(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = s.now()

	if s.chatOpen {
		getLogger().Info("silence ended", logger.String("tracker", s.cfg.Name))
		s.notifier.Notify(ctx, s.cfg.ResolvedMessage())
		s.chatOpen = false
		s.recordTransition(TransitionChatClosed, metrics.TierChat, false)
	}
	if s.pagingOpen {
		s.notifier.PageResolve(ctx, s.cfg.IncidentKey, s.cfg.ResolveSummary)
		s.pagingOpen = false
		s.recordTransition(TransitionPageResolved, metrics.TierPage, false)
	}
}

// Evaluate escalates if the silence crossed a threshold that is not already
// alerted. It returns the elapsed silence in whole seconds.
func (s *SilenceTracker) Evaluate(ctx context.Context) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsedSeconds()
	log := getLogger().With(logger.String("tracker", s.cfg.Name), logger.Int64("silence_seconds", elapsed))

	if s.exceeds(elapsed, s.cfg.ChatAfter) && !s.chatOpen {
		log.Warn("silence threshold crossed")
		s.chatOpen = true
		s.notifier.Notify(ctx, s.cfg.WarnMessage(elapsed))
		s.recordTransition(TransitionChatOpened, metrics.TierChat, true)
	}

	if s.cfg.PagingEnabled && s.exceeds(elapsed, s.cfg.PageAfter) && !s.pagingOpen {
		log.Warn("silence paging threshold crossed", logger.String("incident_key", s.cfg.IncidentKey))
		s.pagingOpen = true
		s.notifier.PageTrigger(ctx, s.cfg.IncidentKey, s.cfg.PageSummary(elapsed), s.cfg.Severity,
			map[string]any{"silence_seconds": elapsed})
		s.recordTransition(TransitionPageOpened, metrics.TierPage, true)
	}

	return elapsed
}

// Silent reports whether the chat alert is open or the chat threshold is
// currently exceeded.
func (s *SilenceTracker) Silent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatOpen || s.exceeds(s.elapsedSeconds(), s.cfg.ChatAfter)
}

// Snapshot returns a copy of the current state.
func (s *SilenceTracker) Snapshot() SilenceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SilenceState{
		LastActivity: s.lastActivity,
		ChatOpen:     s.chatOpen,
		PagingOpen:   s.pagingOpen,
	}
}

// elapsedSeconds must be called with mu held.
func (s *SilenceTracker) elapsedSeconds() int64 {
	return int64(s.now().Sub(s.lastActivity) / time.Second)
}

func (s *SilenceTracker) exceeds(elapsed, threshold int64) bool {
	if s.cfg.Inclusive {
		return elapsed >= threshold
	}
	return elapsed > threshold
}

func (s *SilenceTracker) recordTransition(transition, tier string, open bool) {
	if s.cfg.Metrics == nil {
		return
	}
	s.cfg.Metrics.RecordTransition(s.cfg.Name, transition)
	s.cfg.Metrics.SetIncidentOpen(s.cfg.Name, tier, open)
}
