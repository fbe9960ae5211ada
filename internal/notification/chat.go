package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"golang.org/x/time/rate"

	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/logger"
)

// ChatSender delivers one formatted chat message.
type ChatSender interface {
	Send(ctx context.Context, text string) error
}

// ShoutrrrSender sends chat messages through shoutrrr service URLs,
// throttled by a token bucket.
type ShoutrrrSender struct {
	urls    []string
	sender  *router.ServiceRouter
	limiter *rate.Limiter
}

// ShoutrrrConfig configures a ShoutrrrSender.
type ShoutrrrConfig struct {
	URLs      []string
	Timeout   time.Duration
	RateLimit float64 // messages per second; 0 disables throttling
	RateBurst int
}

// NewShoutrrrSender builds a sender for cfg.URLs, validating every URL.
func NewShoutrrrSender(cfg ShoutrrrConfig) (*ShoutrrrSender, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.Newf("at least one chat URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid chat URL: %s", logger.RedactSensitiveData(err.Error()))).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(cfg.URLs)).
			Build()
	}
	if cfg.Timeout > 0 {
		sender.Timeout = cfg.Timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := max(cfg.RateBurst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &ShoutrrrSender{
		urls:    slices.Clone(cfg.URLs),
		sender:  sender,
		limiter: limiter,
	}, nil
}

// Send waits for a rate token, then delivers text to every configured
// service. The first service error is returned with secrets redacted.
func (s *ShoutrrrSender) Send(ctx context.Context, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return errors.New(err).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("reason", "rate_limited").
			Build()
	}

	// The router enforces its own timeout.
	errs := s.sender.Send(text, &stypes.Params{})
	for _, e := range errs {
		if e != nil {
			return errors.New(fmt.Errorf("chat delivery failed: %s", logger.RedactSensitiveData(e.Error()))).
				Component("notification").
				Category(errors.CategoryNetwork).
				Build()
		}
	}
	return nil
}
