// Package watch implements the watch command, the long-running monitor.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/ingest"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/monitor"
	"github.com/tphakala/monadwatch/internal/mqtt"
	"github.com/tphakala/monadwatch/internal/notification"
	"github.com/tphakala/monadwatch/internal/observability"
	"github.com/tphakala/monadwatch/internal/observability/metrics"
)

// Command creates the watch command.
func Command(settings *conf.Settings) *cobra.Command {
	var exitOnEnd bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the validator log and raise incidents",
		Long: `Follow the validator's consensus log and alert on timeout streaks,
log silence and chain stalls.

Examples:
  # Follow the default systemd unit through journalctl
  monadwatch watch

  # Replay a captured journal export and exit at the end
  monadwatch watch --source file --path ./ledger.json --exit-on-end`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), settings, exitOnEnd)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	cmd.Flags().BoolVar(&exitOnEnd, "exit-on-end", false, "Exit when the log source ends instead of reporting silence")

	return cmd
}

// setupFlags configures flags specific to the watch command and binds them
// to their settings keys.
func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("source", "", "Log source: journal, stdin or file")
	cmd.Flags().String("unit", "", "Systemd unit to follow, also used as the display name")
	cmd.Flags().String("path", "", "Log file for the file source")
	cmd.Flags().Bool("metrics", false, "Serve Prometheus metrics and /healthz")
	cmd.Flags().String("listen", "", "Listen address of the metrics endpoint")

	for key, flag := range map[string]string{
		"source.type":     "source",
		"source.unit":     "unit",
		"source.path":     "path",
		"metrics.enabled": "metrics",
		"metrics.listen":  "listen",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Run builds the monitor from settings and runs it until ctx is cancelled
// or the source fails.
func Run(ctx context.Context, settings *conf.Settings, exitOnEnd bool) error {
	log := logger.Global().Module("watch")

	var (
		obs                 *observability.Metrics
		monitorMetrics      *metrics.MonitorMetrics
		notificationMetrics *metrics.NotificationMetrics
		mqttMetrics         *metrics.MQTTMetrics
		err                 error
	)
	if settings.Metrics.Enabled {
		obs, err = observability.NewMetrics()
		if err != nil {
			return err
		}
		monitorMetrics, notificationMetrics, mqttMetrics = obs.Monitor, obs.Notification, obs.MQTT
	}

	var mirror notification.Mirror
	publisher, err := mqtt.NewPublisherFromSettings(ctx, settings, mqttMetrics)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
		mirror = publisher
	}

	dispatcher, err := notification.NewFromSettings(settings, notificationMetrics, mirror)
	if err != nil {
		return err
	}

	src, err := NewSource(settings, os.Stdin)
	if err != nil {
		return err
	}

	cfg := monitor.ConfigFromSettings(settings)
	cfg.StopOnSourceEnd = exitOnEnd
	cfg.Metrics = monitorMetrics
	mon := monitor.New(cfg, dispatcher)

	log.Info("starting monitor",
		logger.String("source", src.Name()),
		logger.String("unit", settings.Source.Unit),
		logger.Bool("chat", dispatcher.ChatEnabled()),
		logger.Bool("paging", dispatcher.PagingEnabled()),
		logger.Bool("mqtt", publisher != nil),
		logger.Bool("metrics", obs != nil))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)
	if obs != nil {
		endpoint := observability.NewEndpoint(settings.Metrics.Listen, obs, mon.Health)
		g.Go(func() error {
			return endpoint.Run(gctx)
		})
	}
	g.Go(func() error {
		// The endpoint lives only as long as the monitor.
		defer cancel()
		return mon.Run(gctx, src)
	})

	err = g.Wait()
	var ended *ingest.EndedError
	if errors.As(err, &ended) && ended.Code == 0 {
		return nil
	}
	return err
}

// NewSource returns the log source selected by settings. stdin backs the
// stdin source.
func NewSource(settings *conf.Settings, stdin io.Reader) (ingest.Source, error) {
	switch settings.Source.Type {
	case conf.SourceJournal:
		return ingest.NewJournalSource(settings.Source.Unit), nil
	case conf.SourceStdin:
		return ingest.NewReaderSource("stdin", stdin), nil
	case conf.SourceFile:
		return ingest.NewFileSource(settings.Source.Path), nil
	default:
		return nil, errors.Newf("unknown source type %q", settings.Source.Type).
			Component("watch").
			Category(errors.CategoryConfiguration).
			Build()
	}
}
