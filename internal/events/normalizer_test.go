package events

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeRecognizedRecords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want Event
	}{
		{
			name: "fields record with round",
			line: `{"timestamp":"2025-06-01T10:00:00Z","fields":{"message":"timeout","round":"1042","author":"0xABCDEF12"}}`,
			want: Event{Kind: KindTimeout, Round: 1042, Author: "0xABCDEF12", AuthorNormalized: "abcdef12", RawTimestamp: "2025-06-01T10:00:00Z"},
		},
		{
			name: "numeric round and height alias",
			line: `{"fields":{"message":"finalized_block","height":77,"validator":"Val1"}}`,
			want: Event{Kind: KindFinalizedBlock, Round: 77, Author: "Val1", AuthorNormalized: "val1"},
		},
		{
			name: "null round falls through to round_number",
			line: `{"fields":{"message":"proposed_block","round":null,"round_number":9,"author":"a","author_dns":"node.example"}}`,
			want: Event{Kind: KindProposedBlock, Round: 9, Author: "a", AuthorNormalized: "a", AuthorAddress: "node.example"},
		},
		{
			name: "missing round defaults",
			line: `{"fields":{"message":"proposed_block"}}`,
			want: Event{Kind: KindProposedBlock, Round: NoRound},
		},
		{
			name: "unparseable round defaults",
			line: `{"fields":{"message":"timeout","round":"abc","author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: NoRound, Author: "x", AuthorNormalized: "x"},
		},
		{
			name: "fractional round truncates",
			line: `{"fields":{"message":"timeout","round":12.0,"author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: 12, Author: "x", AuthorNormalized: "x"},
		},
		{
			name: "round at 2^63 overflows and defaults",
			line: `{"fields":{"message":"timeout","round":9223372036854775808,"author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: NoRound, Author: "x", AuthorNormalized: "x"},
		},
		{
			name: "quoted round at 2^63 defaults",
			line: `{"fields":{"message":"timeout","round":"9223372036854775808","author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: NoRound, Author: "x", AuthorNormalized: "x"},
		},
		{
			name: "largest int64 round kept",
			line: `{"fields":{"message":"timeout","round":9223372036854775807,"author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: math.MaxInt64, Author: "x", AuthorNormalized: "x"},
		},
		{
			name: "journald timestamp used when no other",
			line: `{"__REALTIME_TIMESTAMP":"1717236000000000","fields":{"message":"timeout","round":1,"author":"x"}}`,
			want: Event{Kind: KindTimeout, Round: 1, Author: "x", AuthorNormalized: "x", RawTimestamp: "1717236000000000"},
		},
		{
			name: "nested MESSAGE payload",
			line: `{"__REALTIME_TIMESTAMP":"1717236000000000","MESSAGE":"{\"timestamp\":\"2025-06-01T10:00:00Z\",\"fields\":{\"message\":\"timeout\",\"round\":55,\"author\":\"0xVAL\",\"author_address\":\"10.0.0.1\"}}"}`,
			want: Event{Kind: KindTimeout, Round: 55, Author: "0xVAL", AuthorNormalized: "val", AuthorAddress: "10.0.0.1", RawTimestamp: "1717236000000000"},
		},
		{
			name: "nested top-level message and round",
			line: `{"MESSAGE":"  {\"message\":\"finalized_block\",\"round\":\"8\",\"author\":\"v\"}"}`,
			want: Event{Kind: KindFinalizedBlock, Round: 8, Author: "v", AuthorNormalized: "v"},
		},
		{
			name: "outer unrecognized kind falls back to nested",
			line: `{"fields":{"message":"vote","round":3},"MESSAGE":"{\"fields\":{\"message\":\"proposed_block\",\"round\":4}}"}`,
			want: Event{Kind: KindProposedBlock, Round: 3},
		},
		{
			name: "numeric author rendered as text",
			line: `{"fields":{"message":"timeout","round":2,"author":12345}}`,
			want: Event{Kind: KindTimeout, Round: 2, Author: "12345", AuthorNormalized: "12345"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize([]byte(tt.line))
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeDiscardsNoise(t *testing.T) {
	t.Parallel()

	lines := []string{
		"",
		"   ",
		"plain text log line",
		`{"fields":`,
		`[1,2,3]`,
		`{"fields":{"message":"vote","round":1}}`,
		`{"fields":{"round":1}}`,
		`{"MESSAGE":"not json"}`,
		`{"MESSAGE":"{broken"}`,
		`{"MESSAGE":"{\"fields\":{\"message\":\"vote\"}}"}`,
		`{"fields":"not an object","MESSAGE":42}`,
	}

	for _, line := range lines {
		_, ok := Normalize([]byte(line))
		assert.False(t, ok, "line %q", line)
	}
}

func TestNormalizeIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, NormalizeIdentity("0xABC123"), NormalizeIdentity("abc123"))
	assert.Equal(t, "abc123", NormalizeIdentity("  0XAbc123 "))
	assert.True(t, SameIdentity(NormalizeIdentity("0xABC123"), NormalizeIdentity("abc123")))
	assert.False(t, SameIdentity("", NormalizeIdentity("abc123")))
	assert.False(t, SameIdentity("", ""))
}

func TestEventTimestamp(t *testing.T) {
	t.Parallel()

	ev := Event{RawTimestamp: "2025-06-01T10:00:00.5Z"}
	ts, ok := ev.Timestamp()
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Nanosecond()))

	ev.RawTimestamp = "1717236000000000"
	ts, ok = ev.Timestamp()
	require.True(t, ok)
	assert.Equal(t, int64(1717236000), ts.Unix())

	ev.RawTimestamp = "yesterday"
	_, ok = ev.Timestamp()
	assert.False(t, ok)
}

func TestNormalizeProperties(t *testing.T) {
	t.Parallel()

	t.Run("arbitrary input yields only recognized kinds", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			line := rapid.String().Draw(t, "line")
			if ev, ok := Normalize([]byte(line)); ok {
				assert.True(t, ev.Kind.Recognized())
			}
		})
	})

	t.Run("generated records round trip", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			kind := rapid.SampledFrom(Kinds).Draw(t, "kind")
			round := rapid.Int64Range(0, 1<<40).Draw(t, "round")
			author := rapid.StringMatching(`(0x)?[0-9a-fA-F]{4,40}`).Draw(t, "author")
			alias := rapid.SampledFrom(roundAliases).Draw(t, "alias")
			nested := rapid.Bool().Draw(t, "nested")

			record := fmt.Sprintf(`{"fields":{"message":%q,%q:%d,"author":%q}}`, kind, alias, round, author)
			if nested {
				record = fmt.Sprintf(`{"MESSAGE":%q}`, record)
			}

			ev, ok := Normalize([]byte(record))
			if !ok {
				t.Fatalf("record not recognized: %s", record)
			}
			if ev.Kind != kind || ev.Round != round {
				t.Fatalf("got %s/%d, want %s/%d", ev.Kind, ev.Round, kind, round)
			}
			if ev.AuthorNormalized != strings.TrimPrefix(strings.ToLower(author), "0x") {
				t.Fatalf("author %q normalized to %q", author, ev.AuthorNormalized)
			}
		})
	})
}
