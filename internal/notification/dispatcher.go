package notification

import (
	"context"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// DefaultSinkTimeout bounds a single delivery when none is configured.
const DefaultSinkTimeout = 10 * time.Second

// Mirror receives a copy of every delivery attempt, e.g. for MQTT.
type Mirror interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}

// Options configures a Dispatcher. Nil sinks disable that capability.
type Options struct {
	Chat          ChatSender
	Paging        PagingSender
	Mirror        Mirror
	Metrics       *metrics.NotificationMetrics
	Breaker       CircuitBreakerConfig
	ChatTimeout   time.Duration
	PagingTimeout time.Duration
}

// Dispatcher fronts the chat and paging sinks. Every call returns whether the
// delivery landed; failures never propagate further.
type Dispatcher struct {
	chat          ChatSender
	paging        PagingSender
	mirror        Mirror
	metrics       *metrics.NotificationMetrics
	chatBreaker   *CircuitBreaker
	pagingBreaker *CircuitBreaker
	chatTimeout   time.Duration
	pagingTimeout time.Duration
	newID         func() string
}

// NewDispatcher creates a dispatcher from opts.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Breaker.MaxFailures == 0 {
		opts.Breaker = DefaultCircuitBreakerConfig()
	}
	d := &Dispatcher{
		chat:          opts.Chat,
		paging:        opts.Paging,
		mirror:        opts.Mirror,
		metrics:       opts.Metrics,
		chatTimeout:   orDefault(opts.ChatTimeout, DefaultSinkTimeout),
		pagingTimeout: orDefault(opts.PagingTimeout, DefaultSinkTimeout),
		newID:         uuid.NewString,
	}
	if d.chat != nil {
		d.chatBreaker = NewCircuitBreaker(opts.Breaker, SinkChat, opts.Metrics)
	}
	if d.paging != nil {
		d.pagingBreaker = NewCircuitBreaker(opts.Breaker, SinkPaging, opts.Metrics)
	}
	return d
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

// ChatEnabled reports whether a chat sink is configured.
func (d *Dispatcher) ChatEnabled() bool { return d.chat != nil }

// PagingEnabled reports whether a paging sink is configured.
func (d *Dispatcher) PagingEnabled() bool { return d.paging != nil }

// Notify sends text to the chat sink once.
func (d *Dispatcher) Notify(ctx context.Context, text string) bool {
	alert := &Alert{
		ID:     d.newID(),
		Type:   "chat",
		Action: OpNotify,
		Text:   html2text.HTML2Text(text),
	}
	log := getLogger().With(logger.String("delivery_id", alert.ID))
	log.Debug("chat message", logger.String("text", strings.ReplaceAll(alert.Text, "\n", " | ")))

	if d.chat == nil {
		log.Debug("chat sink not configured, message dropped")
		return d.finish(ctx, alert, false)
	}

	ok := d.deliver(ctx, SinkChat, OpNotify, d.chatBreaker, d.chatTimeout, log, func(ctx context.Context) error {
		return d.chat.Send(ctx, text)
	})
	return d.finish(ctx, alert, ok)
}

// PageTrigger opens the incident identified by key. Returns false when paging
// is disabled or the delivery fails.
func (d *Dispatcher) PageTrigger(ctx context.Context, key, summary string, severity Severity, details map[string]any) bool {
	alert := &Alert{
		ID:          d.newID(),
		Type:        "incident",
		Action:      OpTrigger,
		IncidentKey: key,
		Severity:    severity,
		Summary:     summary,
		Details:     maps.Clone(details),
	}
	log := getLogger().With(logger.String("delivery_id", alert.ID), logger.String("incident_key", key))

	if d.paging == nil {
		log.Debug("paging disabled, trigger skipped")
		return false
	}

	ok := d.deliver(ctx, SinkPaging, OpTrigger, d.pagingBreaker, d.pagingTimeout, log, func(ctx context.Context) error {
		return d.paging.Trigger(ctx, key, summary, severity, details)
	})
	if ok {
		log.Info("paging incident triggered",
			logger.String("summary", summary),
			logger.String("severity", string(severity)),
			logger.Any("details", details))
	}
	return d.finish(ctx, alert, ok)
}

// PageResolve closes the incident identified by key.
func (d *Dispatcher) PageResolve(ctx context.Context, key, summary string) bool {
	alert := &Alert{
		ID:          d.newID(),
		Type:        "incident",
		Action:      OpResolve,
		IncidentKey: key,
		Summary:     summary,
	}
	log := getLogger().With(logger.String("delivery_id", alert.ID), logger.String("incident_key", key))

	if d.paging == nil {
		log.Debug("paging disabled, resolve skipped")
		return false
	}

	ok := d.deliver(ctx, SinkPaging, OpResolve, d.pagingBreaker, d.pagingTimeout, log, func(ctx context.Context) error {
		return d.paging.Resolve(ctx, key, summary)
	})
	if ok {
		log.Info("paging incident resolved", logger.String("summary", summary))
	}
	return d.finish(ctx, alert, ok)
}

func (d *Dispatcher) deliver(ctx context.Context, sink, op string, cb *CircuitBreaker, timeout time.Duration, log logger.Logger, fn func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var timer *metrics.DeliveryTimer
	if d.metrics != nil {
		timer = d.metrics.StartDeliveryTimer()
	}

	start := time.Now()
	err := cb.Call(ctx, fn)

	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, ErrCircuitOpen), errors.Is(err, ErrProbeInFlight):
		status = metrics.StatusRejected
	default:
		status = metrics.StatusError
	}
	if timer != nil {
		timer.ObserveDuration(sink, op, status)
		if err != nil {
			d.metrics.RecordDeliveryError(sink, errorCategory(err))
		}
	}

	if err != nil {
		log.Warn("delivery failed",
			logger.String("sink", sink),
			logger.String("operation", op),
			logger.String("status", status),
			logger.Float64("elapsed_ms", float64(time.Since(start).Microseconds())/1000),
			logger.Error(err))
		return false
	}
	return true
}

// finish mirrors the attempt and passes ok through.
func (d *Dispatcher) finish(ctx context.Context, alert *Alert, ok bool) bool {
	if d.mirror == nil {
		return ok
	}
	alert.Delivered = ok
	alert.At = time.Now()
	if err := d.mirror.PublishAlert(ctx, alert); err != nil {
		getLogger().Debug("alert mirror publish failed",
			logger.String("delivery_id", alert.ID),
			logger.Error(err))
	}
	return ok
}

func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return string(ee.Category)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(errors.CategoryTimeout)
	}
	return string(errors.CategoryGeneric)
}
