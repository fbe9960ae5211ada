// Package events turns raw consensus log lines into canonical events and
// filters duplicate deliveries of the same event.
package events

import (
	"strconv"
	"strings"
	"time"
)

// Kind identifies a recognized consensus log event
type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindProposedBlock  Kind = "proposed_block"
	KindFinalizedBlock Kind = "finalized_block"
)

// Kinds lists every recognized kind
var Kinds = []Kind{KindTimeout, KindProposedBlock, KindFinalizedBlock}

// Recognized reports whether k is one of the three event kinds the monitor acts on
func (k Kind) Recognized() bool {
	switch k {
	case KindTimeout, KindProposedBlock, KindFinalizedBlock:
		return true
	}
	return false
}

// IsBlock reports whether k counts as chain activity
func (k Kind) IsBlock() bool {
	return k == KindProposedBlock || k == KindFinalizedBlock
}

// NoRound is used when a record carries no parseable round
const NoRound int64 = -1

// Event is one recognized log record
type Event struct {
	Kind             Kind
	Round            int64
	Author           string
	AuthorAddress    string
	AuthorNormalized string
	// RawTimestamp is the source-reported time as it appeared in the record.
	// Arrival time, not this value, drives silence detection.
	RawTimestamp string
}

// Key returns the dedupe key for the event
func (e *Event) Key() string {
	return string(e.Kind) + ":" + strconv.FormatInt(e.Round, 10)
}

// Timestamp parses RawTimestamp, accepting RFC 3339 and journald's
// microseconds since the epoch. ok is false when neither matches.
func (e *Event) Timestamp() (t time.Time, ok bool) {
	raw := strings.TrimSpace(e.RawTimestamp)
	if raw == "" {
		return time.Time{}, false
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed, true
	}
	if micros, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMicro(micros), true
	}
	return time.Time{}, false
}

// NormalizeIdentity lower-cases a validator identity and strips an optional
// 0x prefix so hex keys compare equal regardless of formatting.
func NormalizeIdentity(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	return strings.TrimPrefix(id, "0x")
}

// SameIdentity reports whether the normalized author matches the normalized
// local identity. An empty identity never matches.
func SameIdentity(authorNormalized, selfNormalized string) bool {
	return selfNormalized != "" && authorNormalized == selfNormalized
}
