package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Incident tiers
const (
	TierChat = "chat"
	TierPage = "page"
)

// MonitorMetrics tracks the ingest pipeline and tracker state
type MonitorMetrics struct {
	LinesTotal       prometheus.Counter
	LinesDiscarded   prometheus.Counter
	EventsTotal      *prometheus.CounterVec // by kind
	DedupeSuppressed prometheus.Counter
	WatchdogTicks    prometheus.Counter
	TimeoutStreak    prometheus.Gauge
	IncidentOpen     *prometheus.GaugeVec   // by tracker, tier
	Transitions      *prometheus.CounterVec // by tracker, transition
	LastEventTime    prometheus.Gauge
}

// NewMonitorMetrics creates and registers the monitor collectors.
func NewMonitorMetrics(registry *prometheus.Registry) (*MonitorMetrics, error) {
	m := &MonitorMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register monitor metrics: %w", err)
	}
	return m, nil
}

func (m *MonitorMetrics) initMetrics() {
	m.LinesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monadwatch_lines_total",
		Help: "Complete log lines read from the source",
	})
	m.LinesDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monadwatch_lines_discarded_total",
		Help: "Lines that did not contain a recognized event",
	})
	m.EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monadwatch_events_total",
		Help: "Recognized events by kind, before deduplication",
	}, []string{"kind"})
	m.DedupeSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monadwatch_dedupe_suppressed_total",
		Help: "Events dropped as duplicates within the dedupe window",
	})
	m.WatchdogTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "monadwatch_watchdog_ticks_total",
		Help: "Silence evaluations run by the watchdog",
	})
	m.TimeoutStreak = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monadwatch_timeout_streak",
		Help: "Current consecutive timeout count of the local validator",
	})
	m.IncidentOpen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "monadwatch_incident_open",
		Help: "Whether a tracker's chat alert or paging incident is open (1) or closed (0)",
	}, []string{"tracker", "tier"})
	m.Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monadwatch_incident_transitions_total",
		Help: "Tracker state transitions",
	}, []string{"tracker", "transition"})
	m.LastEventTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monadwatch_last_event_timestamp_seconds",
		Help: "Arrival time of the last recognized event",
	})
}

// SetIncidentOpen records the open state of one tracker tier
func (m *MonitorMetrics) SetIncidentOpen(tracker, tier string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.IncidentOpen.WithLabelValues(tracker, tier).Set(v)
}

// RecordTransition counts one tracker transition
func (m *MonitorMetrics) RecordTransition(tracker, transition string) {
	m.Transitions.WithLabelValues(tracker, transition).Inc()
}

// RecordEvent counts a recognized event and stamps its arrival
func (m *MonitorMetrics) RecordEvent(kind string) {
	m.EventsTotal.WithLabelValues(kind).Inc()
	m.LastEventTime.SetToCurrentTime()
}

// Collect implements prometheus.Collector
func (m *MonitorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.LinesTotal.Collect(ch)
	m.LinesDiscarded.Collect(ch)
	m.EventsTotal.Collect(ch)
	m.DedupeSuppressed.Collect(ch)
	m.WatchdogTicks.Collect(ch)
	m.TimeoutStreak.Collect(ch)
	m.IncidentOpen.Collect(ch)
	m.Transitions.Collect(ch)
	m.LastEventTime.Collect(ch)
}

// Describe implements prometheus.Collector
func (m *MonitorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.LinesTotal.Describe(ch)
	m.LinesDiscarded.Describe(ch)
	m.EventsTotal.Describe(ch)
	m.DedupeSuppressed.Describe(ch)
	m.WatchdogTicks.Describe(ch)
	m.TimeoutStreak.Describe(ch)
	m.IncidentOpen.Describe(ch)
	m.Transitions.Describe(ch)
	m.LastEventTime.Describe(ch)
}
