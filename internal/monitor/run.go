package monitor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/incident"
	"github.com/tphakala/monadwatch/internal/ingest"
	"github.com/tphakala/monadwatch/internal/logger"
)

// Health component errors
var (
	ErrLogSilent     = errors.NewStd("log source is silent")
	ErrChainSilent   = errors.NewStd("chain has no new blocks")
	ErrTimeoutStreak = errors.NewStd("timeout streak incident open")
)

// Run announces the start, then pumps src into the trackers while the
// watchdog ticks. It returns nil when ctx is cancelled, after a best-effort
// stop message, and the source error when the source cannot be started.
func (m *Monitor) Run(ctx context.Context, src ingest.Source) error {
	log := getLogger().With(logger.String("source", src.Name()))
	m.announceStart(ctx)
	log.Info("monitor started",
		logger.Duration("interval", m.cfg.Interval),
		logger.Bool("chain_silence", m.chainSilence != nil),
		logger.Bool("paging", m.cfg.PagingEnabled))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.RunWatchdog(gctx)
	})
	g.Go(func() error {
		return m.pump(gctx, src)
	})
	err := g.Wait()

	if ctx.Err() != nil {
		log.Info("monitor stopping")
		m.notifier.Notify(context.WithoutCancel(ctx), incident.StoppedMessage())
		return nil
	}
	return err
}

func (m *Monitor) pump(ctx context.Context, src ingest.Source) error {
	err := ingest.Pump(ctx, src, func(line []byte) {
		m.HandleLine(ctx, line)
	})
	if ctx.Err() != nil {
		return nil
	}

	var startErr *ingest.StartError
	if errors.As(err, &startErr) {
		m.setSourceErr(err)
		getLogger().Error("log source failed to start",
			logger.String("source", startErr.Source),
			logger.Error(startErr.Err))
		m.notifier.Notify(ctx, incident.SourceFailedMessage(startErr.Source, startErr.Err))
		return err
	}

	ended := &ingest.EndedError{Source: src.Name()}
	if err != nil && !errors.As(err, &ended) {
		ended = &ingest.EndedError{Source: src.Name(), Code: -1, Err: err}
	}
	m.setSourceErr(ended)
	getLogger().Warn("log source ended", logger.String("source", ended.Source), logger.Int("exit_code", ended.Code))
	m.notifier.Notify(ctx, incident.SourceExitedMessage(ended.Source, ended.Code))

	if m.cfg.StopOnSourceEnd {
		return ended
	}
	// The watchdog keeps running and reports the silence.
	return nil
}

func (m *Monitor) announceStart(ctx context.Context) {
	m.notifier.Notify(ctx, incident.StartedMessage(incident.StartInfo{
		Unit:             m.cfg.Unit,
		Validator:        m.cfg.Identity,
		LogChatAfter:     m.cfg.LogChatAfter,
		LogPageAfter:     m.cfg.LogPageAfter,
		ChainAfter:       m.cfg.ChainAfter,
		TimeoutThreshold: m.cfg.TimeoutThreshold,
		PagingEnabled:    m.cfg.PagingEnabled,
		At:               m.now(),
	}))
}

func (m *Monitor) setSourceErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sourceErr = err
}

// SourceErr returns why the source stopped, or nil while it is running.
func (m *Monitor) SourceErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceErr
}

// Health reports the source and every open incident. It has the shape of
// observability.HealthFunc.
func (m *Monitor) Health() map[string]error {
	health := map[string]error{
		"source":                   m.SourceErr(),
		incident.TrackerLogSilence: nil,
		incident.TrackerTimeout:    nil,
	}
	if m.logSilence.Silent() {
		health[incident.TrackerLogSilence] = ErrLogSilent
	}
	if m.timeout.Snapshot().PagingOpen {
		health[incident.TrackerTimeout] = ErrTimeoutStreak
	}
	if m.chainSilence != nil {
		health[incident.TrackerChainSilence] = nil
		if m.chainSilence.Silent() {
			health[incident.TrackerChainSilence] = ErrChainSilent
		}
	}
	return health
}
