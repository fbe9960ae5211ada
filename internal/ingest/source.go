package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
)

// closeGrace bounds the wait for a reader to return after it was closed.
const closeGrace = 2 * time.Second

// Source produces the raw log stream.
type Source interface {
	// Name identifies the source in logs and chat messages.
	Name() string
	// Run streams bytes into w until the source ends or ctx is cancelled.
	// It returns ctx.Err() on cancellation, a *StartError if the stream
	// could not be opened and an *EndedError when it finished on its own.
	Run(ctx context.Context, w io.Writer) error
}

// StartError reports a source that never produced a stream.
type StartError struct {
	Source string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("cannot start %s: %v", e.Source, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// EndedError reports a stream that terminated by itself.
type EndedError struct {
	Source string
	// Code is the process exit status; 0 for readers reaching EOF.
	Code int
	Err  error
}

func (e *EndedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s exited with code %d: %v", e.Source, e.Code, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d", e.Source, e.Code)
}

func (e *EndedError) Unwrap() error { return e.Err }

// ReaderSource streams an io.Reader, such as stdin or a pipe.
type ReaderSource struct {
	name string
	r    io.Reader
}

// NewReaderSource wraps r. If r is an io.Closer it is closed on cancellation.
// Pipes and terminals given as *os.File are read through a non-blocking
// duplicate so cancellation interrupts an idle read.
func NewReaderSource(name string, r io.Reader) *ReaderSource {
	return &ReaderSource{name: name, r: r}
}

// Name implements Source.
func (s *ReaderSource) Name() string { return s.name }

// Run implements Source.
func (s *ReaderSource) Run(ctx context.Context, w io.Writer) error {
	r := s.r
	if f, ok := r.(*os.File); ok {
		if dup, restore, ok := pollableFile(f); ok {
			defer restore()
			defer func() { _ = dup.Close() }()
			r = dup
		}
	}
	return copyUntilDone(ctx, s.name, r, w)
}

// FileSource replays a file from the start and ends at EOF.
type FileSource struct {
	path string
}

// NewFileSource creates a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return s.path }

// Run implements Source.
func (s *FileSource) Run(ctx context.Context, w io.Writer) error {
	f, err := os.Open(s.path)
	if err != nil {
		return &StartError{Source: s.path, Err: err}
	}
	defer func() { _ = f.Close() }()
	return copyUntilDone(ctx, s.path, f, w)
}

func copyUntilDone(ctx context.Context, name string, r io.Reader, w io.Writer) error {
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(w, r)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return &EndedError{Source: name, Code: 1, Err: errors.New(err).
				Component("ingest").
				Category(errors.CategoryStream).
				Context("source", name).
				Build()}
		}
		return &EndedError{Source: name}
	case <-ctx.Done():
		if c, ok := r.(io.Closer); ok {
			_ = c.Close()
			select {
			case <-done:
			case <-time.After(closeGrace):
				getLogger().Warn("reader did not return after close, abandoning it",
					logger.String("source", name))
			}
		}
		return ctx.Err()
	}
}
