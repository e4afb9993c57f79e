package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"camsort/internal/daemonctl"
	"camsort/internal/history"
)

func newDaemonControlCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStatusCommand(ctx),
		newReloadCommand(ctx),
		newStopCommand(ctx),
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and last run status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			running, pid, infoErr := daemonctl.ProcessInfo(cfg)
			switch {
			case running && pid > 0:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", pid), colorize))
			case running:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("running, pid unknown: %v", infoErr), colorize))
			case infoErr != nil:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusError, infoErr.Error(), colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("Daemon", statusInfo, "not running", colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Schedule", statusInfo, fmt.Sprintf("daily at %s, %d day(s) back", cfg.Schedule, cfg.LookbackDays), colorize))
			if running {
				next := cfg.Schedule.Next(time.Now())
				fmt.Fprintln(out, renderStatusLine("Next run", statusInfo, next.Format("2006-01-02 15:04:05"), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Sources", statusInfo, fmt.Sprintf("%d", len(cfg.Sources)), colorize))

			store, err := history.Open(cfg)
			if err != nil {
				fmt.Fprintln(out, renderStatusLine("Last run", statusWarn, err.Error(), colorize))
				return nil
			}
			defer store.Close()
			runs, err := store.Recent(cmd.Context(), 1)
			switch {
			case err != nil:
				fmt.Fprintln(out, renderStatusLine("Last run", statusWarn, err.Error(), colorize))
			case len(runs) == 0:
				fmt.Fprintln(out, renderStatusLine("Last run", statusInfo, "none recorded", colorize))
			default:
				run := runs[0]
				fmt.Fprintln(out, renderStatusLine("Last run", runStatusKind(run.Status),
					fmt.Sprintf("%s %s (%s)", run.Status, run.StartedAt.Local().Format("2006-01-02 15:04:05"), run.Trigger), colorize))
			}
			return nil
		},
	}
}

func newReloadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Ask the running daemon to re-read its configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			pid, err := daemonctl.Reload(cfg)
			if err != nil {
				return daemonError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reload requested (pid %d)\n", pid)
			return nil
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		Long:  "Send SIGTERM and wait for the daemon to finish its current source. A daemon\nstill running after the grace period is killed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			result, err := daemonctl.StopAndTerminate(cfg, grace)
			if err != nil {
				return daemonError(err)
			}
			out := cmd.OutOrStdout()
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon (pid %d) did not stop within %s and was killed\n", result.PID, grace)
				return nil
			}
			fmt.Fprintf(out, "Daemon stopped (pid %d)\n", result.PID)
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", time.Minute, "How long to wait for a clean shutdown")
	return cmd
}

func daemonError(err error) error {
	if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
		return fmt.Errorf("%w; start it with `camsort daemon`", err)
	}
	return err
}

func runStatusKind(status history.Status) statusKind {
	switch status {
	case history.StatusCompleted:
		return statusOK
	case history.StatusFailed:
		return statusError
	case history.StatusAborted:
		return statusWarn
	default:
		return statusInfo
	}
}

