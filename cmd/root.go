// Package cmd builds the monadwatch command tree.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/monadwatch/cmd/notify"
	"github.com/tphakala/monadwatch/cmd/showconfig"
	"github.com/tphakala/monadwatch/cmd/watch"
	"github.com/tphakala/monadwatch/internal/buildinfo"
	"github.com/tphakala/monadwatch/internal/conf"
	"github.com/tphakala/monadwatch/internal/logger"
	"github.com/tphakala/monadwatch/internal/telemetry"
)

// RootCommand creates and returns the root command. settings is filled in
// before any subcommand runs.
func RootCommand(settings *conf.Settings) *cobra.Command {
	var (
		configFile  string
		central     *logger.CentralLogger
		telemetryOn bool
	)

	build := buildinfo.Current()
	rootCmd := &cobra.Command{
		Use:          "monadwatch",
		Short:        "Consensus validator log monitor",
		Long:         "Follows a validator's consensus log and raises chat alerts and paging incidents for timeout streaks, log silence and chain stalls.",
		Version:      build.String(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: ./config.yaml, ~/.config/monadwatch, /etc/monadwatch)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("error binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		watch.Command(settings),
		notify.Command(settings),
		showconfig.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		central, err = logger.NewCentralLogger(&settings.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		logger.SetGlobal(central)

		telemetryOn, err = telemetry.Init(settings, build)
		if err != nil {
			// Telemetry is optional; keep running without it.
			logger.Global().Module("main").Warn("error telemetry disabled", logger.Error(err))
		}
		return nil
	}

	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if telemetryOn {
			telemetry.Flush()
		}
		if central != nil {
			return central.Close()
		}
		return nil
	}

	return rootCmd
}
