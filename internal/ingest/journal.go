package ingest

import (
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
)

const (
	defaultJournalCommand = "journalctl"
	journalWaitDelay      = 2 * time.Second
)

// JournalSource follows a systemd unit through journalctl in JSON output mode.
// It does not restart the process when it exits.
type JournalSource struct {
	unit    string
	command string
	args    func(unit string) []string
}

// NewJournalSource creates a source following unit.
func NewJournalSource(unit string) *JournalSource {
	return &JournalSource{
		unit:    unit,
		command: defaultJournalCommand,
		args:    JournalArgs,
	}
}

// JournalArgs returns the journalctl arguments used to follow unit.
func JournalArgs(unit string) []string {
	return []string{"-u", unit, "--no-pager", "-o", "json", "--since", "now", "--follow"}
}

// Name implements Source.
func (s *JournalSource) Name() string { return s.command }

// Unit returns the followed unit.
func (s *JournalSource) Unit() string { return s.unit }

// Run implements Source. Process stdout is copied to w; stderr lines are logged.
func (s *JournalSource) Run(ctx context.Context, w io.Writer) error {
	log := getLogger().With(logger.String("unit", s.unit))

	cmd := exec.CommandContext(ctx, s.command, s.args(s.unit)...) //nolint:gosec // G204: command is fixed, unit comes from validated settings
	cmd.Stdout = w
	stderr := NewLineSplitter(func(line []byte) {
		log.Warn("journalctl stderr", logger.String("line", string(line)))
	}, 0)
	cmd.Stderr = stderr
	cmd.WaitDelay = journalWaitDelay

	if err := cmd.Start(); err != nil {
		return &StartError{
			Source: s.command,
			Err: errors.New(err).
				Component("ingest").
				Category(errors.CategorySystem).
				Context("operation", "start_process").
				Context("unit", s.unit).
				Build(),
		}
	}
	log.Info("journal source started", logger.Int("pid", cmd.Process.Pid))

	err := cmd.Wait()
	stderr.Flush()
	if ctx.Err() != nil {
		return ctx.Err()
	}

	code := 0
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	default:
		code = -1
	}
	log.Warn("journal source exited", logger.Int("exit_code", code))
	return &EndedError{Source: s.command, Code: code, Err: err}
}
