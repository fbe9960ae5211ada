// Package showconfig implements the config command.
package showconfig

import (
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/logger"
)

const mask = "********"

// Command returns the config command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Write(cmd.OutOrStdout(), settings)
		},
	}
}

// Write encodes settings as YAML with credentials masked.
func Write(w io.Writer, settings *conf.Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Masked(settings)); err != nil {
		return err
	}
	return enc.Close()
}

// Masked returns a copy of settings safe to print.
func Masked(settings *conf.Settings) *conf.Settings {
	out := *settings
	out.Chat.Telegram.Token = maskValue(out.Chat.Telegram.Token)
	out.Paging.RoutingKey = maskValue(out.Paging.RoutingKey)
	out.MQTT.Password = maskValue(out.MQTT.Password)
	out.Sentry.DSN = maskValue(out.Sentry.DSN)

	out.Chat.URLs = slices.Clone(settings.Chat.URLs)
	for i, u := range out.Chat.URLs {
		out.Chat.URLs[i] = logger.RedactSensitiveData(u)
	}
	out.MQTT.Broker = logger.RedactSensitiveData(out.MQTT.Broker)
	return &out
}

func maskValue(s string) string {
	if s == "" {
		return ""
	}
	return mask
}
