// Package ingest turns a raw log byte stream into complete lines.
package ingest

import (
	"bytes"
	"sync"

	"github.com/tphakala/monadwatch/internal/logger"
)

// DefaultMaxLineBytes caps a single buffered line.
const DefaultMaxLineBytes = 1 << 20

// LineHandler receives one complete line without its terminator. The slice
// is only valid for the duration of the call.
type LineHandler func(line []byte)

// LineSplitter is an io.Writer that reassembles lines from arbitrarily
// chunked writes. Blank lines are skipped and a trailing \r is trimmed.
// Lines longer than the cap are dropped whole.
type LineSplitter struct {
	mu       sync.Mutex
	buf      []byte
	handle   LineHandler
	maxLine  int
	skipping bool // inside an oversized line, waiting for its terminator
	dropped  int
}

// NewLineSplitter returns a splitter calling handle for every line.
func NewLineSplitter(handle LineHandler, maxLine int) *LineSplitter {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &LineSplitter{handle: handle, maxLine: maxLine}
}

// Write implements io.Writer. It never fails.
func (s *LineSplitter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			s.buffer(p)
			break
		}
		s.buffer(p[:i])
		if s.skipping {
			s.skipping = false
		} else {
			s.emit(s.buf)
		}
		s.buf = s.buf[:0]
		p = p[i+1:]
	}
	return n, nil
}

// Flush emits a buffered unterminated line, used when the stream ends.
func (s *LineSplitter) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.skipping {
		s.emit(s.buf)
	}
	s.buf = s.buf[:0]
	s.skipping = false
}

// Dropped returns how many oversized lines were discarded.
func (s *LineSplitter) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *LineSplitter) buffer(p []byte) {
	if s.skipping {
		return
	}
	if len(s.buf)+len(p) > s.maxLine {
		s.dropped++
		s.skipping = true
		s.buf = s.buf[:0]
		getLogger().Warn("oversized log line dropped", logger.Int("max_bytes", s.maxLine))
		return
	}
	s.buf = append(s.buf, p...)
}

func (s *LineSplitter) emit(line []byte) {
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	s.handle(line)
}

func getLogger() logger.Logger {
	return logger.Global().Module("ingest")
}
