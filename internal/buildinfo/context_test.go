package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ctx         *Context
		wantVersion string
		wantDate    string
	}{
		{name: "nil context", ctx: nil, wantVersion: UnknownValue, wantDate: UnknownValue},
		{name: "empty values", ctx: NewContext("", ""), wantVersion: UnknownValue, wantDate: UnknownValue},
		{name: "valid values", ctx: NewContext("v1.0.0", "2026-01-01"), wantVersion: "v1.0.0", wantDate: "2026-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantVersion, tt.ctx.GetVersion())
			assert.Equal(t, tt.wantDate, tt.ctx.GetBuildDate())
		})
	}
}

func TestContextFormatting(t *testing.T) {
	t.Parallel()

	ctx := NewContext("v1.2.0", "2026-02-03")
	assert.Equal(t, "monadwatch@v1.2.0", ctx.Release())
	assert.Equal(t, "v1.2.0 (built 2026-02-03)", ctx.String())
	assert.Equal(t, "monadwatch@unknown", Current().Release(), "tests are not built with ldflags")
}
