package main

import (
	"github.com/spf13/cobra"

	"camsort/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var runNow bool
	var logLevel string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the camsort scheduler in the foreground",
		Long: "Run the scheduler until SIGINT or SIGTERM. The configuration file is watched\n" +
			"and re-read on change or on SIGHUP; SIGUSR1 starts a run immediately.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				ConfigPath: ctx.configPath,
				LogLevel:   logLevel,
				RunNow:     runNow,
			})
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Start a run as soon as the daemon is up")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	return cmd
}
