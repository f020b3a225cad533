package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "quakealert",
	Short: "Earthquake alert dispatcher",
	Long: `quakealert polls the AFAD, Kandilli and EMSC earthquake feeds and sends
push alerts to subscribers who are near an event or when an event is strong
enough to matter everywhere. Each subscriber is alerted at most once per event.

Configuration is read from the environment; see config/config.go.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("log-level") {
			cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
		}
		if cmd.Flags().Changed("log-format") {
			cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
		}
		logger.Init(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json or text")
}
