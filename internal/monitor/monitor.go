// Package monitor wires the log stream to the incident trackers: every line
// is normalized, deduplicated and fed to the trackers in arrival order, and
// a watchdog re-evaluates the silence trackers on a fixed tick.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/events"
	"github.com/tphakala/monadwatch/internal/incident"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// DefaultInterval is the watchdog tick when none is configured.
const DefaultInterval = 30 * time.Second

func getLogger() logger.Logger {
	return logger.Global().Module("monitor")
}

// Config holds the monitor settings.
type Config struct {
	Identity         string
	TimeoutThreshold int

	// Silence thresholds in seconds. ChainAfter 0 disables chain silence.
	LogChatAfter int
	LogPageAfter int
	ChainAfter   int
	Interval     time.Duration

	Dedupe events.DeduplicationConfig

	// Unit labels the log source in chat messages.
	Unit          string
	PagingSource  string
	PagingEnabled bool

	// StopOnSourceEnd makes Run return when the source ends. By default the
	// watchdog keeps running so the silence trackers report the outage.
	StopOnSourceEnd bool

	Now     func() time.Time
	Metrics *metrics.MonitorMetrics
}

// ConfigFromSettings maps loaded settings onto a Config.
func ConfigFromSettings(s *conf.Settings) Config {
	return Config{
		Identity:         s.Validator.Key,
		TimeoutThreshold: s.Timeout.Threshold,
		LogChatAfter:     s.Silence.Log.ChatAfter,
		LogPageAfter:     s.Silence.Log.PageAfter,
		ChainAfter:       s.Silence.Chain.After,
		Interval:         s.Silence.Interval,
		Dedupe: events.DeduplicationConfig{
			TTL:       s.DedupeTTL(),
			HighWater: s.Dedupe.HighWater,
		},
		Unit:          s.Source.Unit,
		PagingSource:  s.Paging.Source,
		PagingEnabled: s.PagingEnabled(),
	}
}

// Monitor owns the dedupe cache and the three trackers.
type Monitor struct {
	cfg      Config
	notifier incident.Notifier
	metrics  *metrics.MonitorMetrics
	now      func() time.Time

	dedupe       *events.Deduplicator
	timeout      *incident.TimeoutTracker
	logSilence   *incident.SilenceTracker
	chainSilence *incident.SilenceTracker // nil when disabled

	mu        sync.Mutex
	sourceErr error
}

// New creates a monitor delivering through n. Silence is measured from now.
func New(cfg Config, n incident.Notifier) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	m := &Monitor{
		cfg:      cfg,
		notifier: n,
		metrics:  cfg.Metrics,
		now:      now,
		dedupe:   events.NewDeduplicator(cfg.Dedupe),
		timeout: incident.NewTimeoutTracker(incident.TimeoutConfig{
			Identity:      cfg.Identity,
			Threshold:     cfg.TimeoutThreshold,
			PagingEnabled: cfg.PagingEnabled,
			Now:           cfg.Now,
			Metrics:       cfg.Metrics,
		}, n),
		logSilence: incident.NewLogSilenceTracker(incident.LogSilenceConfig{
			Unit:          cfg.Unit,
			PagingSource:  cfg.PagingSource,
			ChatAfter:     cfg.LogChatAfter,
			PageAfter:     cfg.LogPageAfter,
			PagingEnabled: cfg.PagingEnabled,
			Now:           cfg.Now,
			Metrics:       cfg.Metrics,
		}, n),
	}
	if cfg.ChainAfter > 0 {
		m.chainSilence = incident.NewChainSilenceTracker(incident.ChainSilenceConfig{
			PagingSource:  cfg.PagingSource,
			After:         cfg.ChainAfter,
			PagingEnabled: cfg.PagingEnabled,
			Now:           cfg.Now,
			Metrics:       cfg.Metrics,
		}, n)
	}
	if m.metrics != nil {
		for _, k := range events.Kinds {
			m.metrics.EventsTotal.WithLabelValues(string(k))
		}
	}
	return m
}

// HandleLine processes one complete line. Lines without a recognized event
// are discarded silently.
func (m *Monitor) HandleLine(ctx context.Context, line []byte) {
	if m.metrics != nil {
		m.metrics.LinesTotal.Inc()
	}
	ev, ok := events.Normalize(line)
	if !ok {
		if m.metrics != nil {
			m.metrics.LinesDiscarded.Inc()
		}
		return
	}
	m.HandleEvent(ctx, &ev)
}

// HandleEvent feeds a recognized event to the trackers unless it is a
// duplicate within the dedupe window. Duplicates change no tracker state.
func (m *Monitor) HandleEvent(ctx context.Context, ev *events.Event) {
	if m.metrics != nil {
		m.metrics.RecordEvent(string(ev.Kind))
	}
	if !m.dedupe.ShouldProcess(ev) {
		if m.metrics != nil {
			m.metrics.DedupeSuppressed.Inc()
		}
		getLogger().Debug("duplicate event suppressed",
			logger.String("kind", string(ev.Kind)),
			logger.Int64("round", ev.Round))
		return
	}

	m.logSilence.MarkActivity(ctx)
	if m.chainSilence != nil && ev.Kind.IsBlock() {
		m.chainSilence.MarkActivity(ctx)
	}
	m.timeout.Observe(ctx, ev)
}

// Tick runs one watchdog evaluation. Chain silence is skipped while the log
// source itself is silent.
func (m *Monitor) Tick(ctx context.Context) {
	if m.metrics != nil {
		m.metrics.WatchdogTicks.Inc()
	}
	m.logSilence.Evaluate(ctx)
	if m.chainSilence != nil && !m.logSilence.Silent() {
		m.chainSilence.Evaluate(ctx)
	}
}

// RunWatchdog calls Tick every interval until ctx is done.
func (m *Monitor) RunWatchdog(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Tick(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// DedupeStats returns the dedupe cache counters.
func (m *Monitor) DedupeStats() events.DeduplicationStats {
	return m.dedupe.GetStats()
}

// TimeoutState returns a copy of the timeout tracker state.
func (m *Monitor) TimeoutState() incident.TimeoutState {
	return m.timeout.Snapshot()
}

// LogSilenceState returns a copy of the log-silence tracker state.
func (m *Monitor) LogSilenceState() incident.SilenceState {
	return m.logSilence.Snapshot()
}

// ChainSilenceState returns a copy of the chain-silence tracker state; ok
// is false when chain silence is disabled.
func (m *Monitor) ChainSilenceState() (state incident.SilenceState, ok bool) {
	if m.chainSilence == nil {
		return incident.SilenceState{}, false
	}
	return m.chainSilence.Snapshot(), true
}
