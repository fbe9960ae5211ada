package events

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/antonholmquist/jason"
)

// Field aliases in priority order. Emitters differ in which names they use,
// so every alias is tried before a value counts as absent.
var (
	roundAliases   = []string{"round", "height", "round_number"}
	authorAliases  = []string{"author", "validator"}
	addressAliases = []string{"author_address", "author_dns"}
)

// journalMessageKey holds the original payload when a forwarder wraps the
// record as a string.
const journalMessageKey = "MESSAGE"

// extraction holds the values probed from one level of a record. Nil values
// are absent, so the nested level can fill them.
type extraction struct {
	kind      string
	round     *jason.Value
	author    *jason.Value
	address   *jason.Value
	timestamp string
}

// Normalize parses one log line into an Event. ok is false for blank lines,
// malformed JSON and records whose kind is not recognized at either level.
func Normalize(line []byte) (ev Event, ok bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] != '{' {
		return Event{}, false
	}

	record, err := jason.NewObjectFromBytes(line)
	if err != nil {
		return Event{}, false
	}

	ex := extractOuter(record)
	if !Kind(ex.kind).Recognized() {
		if inner, found := nestedRecord(record); found {
			ex.mergeInner(inner)
		}
	}

	kind := Kind(ex.kind)
	if !kind.Recognized() {
		return Event{}, false
	}

	author := valueText(ex.author)
	return Event{
		Kind:             kind,
		Round:            parseRound(ex.round),
		Author:           author,
		AuthorAddress:    valueText(ex.address),
		AuthorNormalized: NormalizeIdentity(author),
		RawTimestamp:     ex.timestamp,
	}, true
}

// extractOuter reads the top-level record and its fields object
func extractOuter(record *jason.Object) extraction {
	fields, _ := record.GetObject("fields")

	ex := extraction{
		kind:    stringAt(fields, "message"),
		round:   firstPresent(fields, roundAliases...),
		author:  firstPresent(fields, authorAliases...),
		address: firstPresent(fields, addressAliases...),
	}
	ex.timestamp = firstNonEmpty(
		stringAt(record, "timestamp"),
		stringAt(fields, "timestamp"),
		stringAt(record, "__REALTIME_TIMESTAMP"),
	)
	return ex
}

// nestedRecord parses the string payload a log forwarder left in MESSAGE
func nestedRecord(record *jason.Object) (*jason.Object, bool) {
	message := strings.TrimSpace(stringAt(record, journalMessageKey))
	if !strings.HasPrefix(message, "{") {
		return nil, false
	}
	inner, err := jason.NewObjectFromBytes([]byte(message))
	if err != nil {
		return nil, false
	}
	return inner, true
}

// mergeInner applies the nested record. Its kind replaces the outer kind;
// every other value only fills what the outer level left absent.
func (ex *extraction) mergeInner(inner *jason.Object) {
	fields, _ := inner.GetObject("fields")

	if kind := firstNonEmpty(stringAt(fields, "message"), stringAt(inner, "message")); kind != "" {
		ex.kind = kind
	}
	if ex.round == nil {
		ex.round = firstPresent(fields, roundAliases...)
		if ex.round == nil {
			ex.round = firstPresent(inner, "round")
		}
	}
	if valueText(ex.author) == "" {
		ex.author = firstTruthy(firstPresent(fields, authorAliases...), firstPresent(inner, "author"))
	}
	if valueText(ex.address) == "" {
		ex.address = firstTruthy(firstPresent(fields, "author_address"), firstPresent(inner, "author_address"))
	}
	if ex.timestamp == "" {
		ex.timestamp = stringAt(inner, "timestamp")
	}
}

// firstPresent returns the first alias whose value exists and is not null
func firstPresent(obj *jason.Object, keys ...string) *jason.Value {
	if obj == nil {
		return nil
	}
	for _, key := range keys {
		v, err := obj.GetValue(key)
		if err != nil || v.Null() == nil {
			continue
		}
		return v
	}
	return nil
}

func firstTruthy(values ...*jason.Value) *jason.Value {
	for _, v := range values {
		if valueText(v) != "" {
			return v
		}
	}
	return nil
}

func stringAt(obj *jason.Object, key string) string {
	if obj == nil {
		return ""
	}
	s, err := obj.GetString(key)
	if err != nil {
		return ""
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// valueText renders strings as-is and numbers in their JSON form
func valueText(v *jason.Value) string {
	if v == nil {
		return ""
	}
	if s, err := v.String(); err == nil {
		return s
	}
	if n, err := v.Number(); err == nil {
		return n.String()
	}
	return ""
}

// parseRound accepts numeric and string rounds. Fractions truncate;
// anything else is NoRound.
func parseRound(v *jason.Value) int64 {
	if v == nil {
		return NoRound
	}

	var text string
	if n, err := v.Number(); err == nil {
		text = n.String()
	} else if s, err := v.String(); err == nil {
		text = strings.TrimSpace(s)
	} else {
		return NoRound
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i
	}
	if f, err := json.Number(text).Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) &&
		f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return NoRound
}
