// Package notification delivers alerts to the chat and paging sinks.
//
// Delivery is best effort: every failure is logged, counted and reported to
// the caller as a false outcome. Nothing here retries.
package notification

import (
	"time"
)

// Severity of a paging incident
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Sink names used in logs and metrics
const (
	SinkChat   = "chat"
	SinkPaging = "paging"
)

// Operations
const (
	OpNotify  = "notify"
	OpTrigger = "trigger"
	OpResolve = "resolve"
)

// Alert is the mirrored form of one delivery attempt.
type Alert struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`   // chat or incident
	Action      string         `json:"action"` // notify, trigger or resolve
	IncidentKey string         `json:"incident_key,omitempty"`
	Severity    Severity       `json:"severity,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	Text        string         `json:"text,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	Delivered   bool           `json:"delivered"`
	At          time.Time      `json:"at"`
}
