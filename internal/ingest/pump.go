package ingest

import (
	"context"

	"github.com/tphakala/monadwatch/internal/logger"
)

// Pump runs src and hands every complete line to handle, in arrival order,
// on a single goroutine. A final unterminated line is delivered when the
// stream ends.
func Pump(ctx context.Context, src Source, handle LineHandler) error {
	splitter := NewLineSplitter(handle, 0)
	err := src.Run(ctx, splitter)
	if ctx.Err() == nil {
		splitter.Flush()
	}
	if n := splitter.Dropped(); n > 0 {
		getLogger().Warn("stream pump dropped oversized lines", logger.Int("count", n))
	}
	return err
}
