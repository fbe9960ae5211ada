// Package notify implements the notify command, a delivery check for the
// configured chat and paging sinks.
package notify

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/errors"
	"github.com/tphakala/monadwatch/internal/notification"
)

const defaultMessage = "🧪 <b>monadwatch test</b>\n• Chat delivery works"

// sinks is the part of the dispatcher the command drives
type sinks interface {
	Notify(ctx context.Context, text string) bool
	PageTrigger(ctx context.Context, key, summary string, severity notification.Severity, details map[string]any) bool
	PageResolve(ctx context.Context, key, summary string) bool
	ChatEnabled() bool
	PagingEnabled() bool
}

// Command returns a cobra command that sends a test message and, with
// --page, a test incident.
func Command(settings *conf.Settings) *cobra.Command {
	var (
		message string
		page    bool
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test chat message and optional test page",
		Long: `Send a test message through the configured chat sink.

Examples:
  # Chat only
  monadwatch notify

  # Also trigger and resolve a test incident on the paging sink
  monadwatch notify --page`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := notification.NewFromSettings(settings, nil, nil)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), d, settings.Paging.Source, message, page)
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", defaultMessage, "Chat message to send (HTML)")
	cmd.Flags().BoolVar(&page, "page", false, "Also trigger and resolve a test paging incident")

	return cmd
}

// TestIncidentKey is the incident key of the test page for source
func TestIncidentKey(source string) string {
	return "monadwatch-test-" + source
}

func run(ctx context.Context, out io.Writer, d sinks, source, message string, page bool) error {
	if !d.ChatEnabled() {
		return notifyError("no chat sink configured")
	}
	if !d.Notify(ctx, message) {
		return notifyError("chat delivery failed")
	}
	fmt.Fprintln(out, "Chat message sent")

	if !page {
		return nil
	}
	if !d.PagingEnabled() {
		return notifyError("paging is not configured (PAGERDUTY_ROUTING_KEY)")
	}

	key := TestIncidentKey(source)
	if !d.PageTrigger(ctx, key, "monadwatch test incident", notification.SeverityInfo,
		map[string]any{"test": true}) {
		return notifyError("test page trigger failed")
	}
	fmt.Fprintf(out, "Test incident triggered: %s\n", key)

	if !d.PageResolve(ctx, key, "monadwatch test incident resolved") {
		return notifyError("test page resolve failed")
	}
	fmt.Fprintf(out, "Test incident resolved: %s\n", key)
	return nil
}

func notifyError(msg string) error {
	return errors.Newf("%s", msg).
		Component("notify").
		Category(errors.CategoryNotification).
		Build()
}
