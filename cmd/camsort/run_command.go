package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"camsort/internal/daemonctl"
	"camsort/internal/history"
	"camsort/internal/logging"
	"camsort/internal/scheduler"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Assort the lookback window now",
		Long: "Run one transaction over every configured source. When a daemon is running\n" +
			"the run is handed to it instead, so two runs never overlap.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if running, _, _ := daemonctl.ProcessInfo(cfg); running {
				pid, err := daemonctl.RunNow(cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Run requested from daemon (pid %d); follow its log for progress\n", pid)
				return nil
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another camsort process holds %s", cfg.LockPath())
			}
			defer lock.Unlock()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			var opts []scheduler.ExecutorOption
			if store, err := history.Open(cfg); err == nil {
				defer store.Close()
				opts = append(opts, scheduler.WithRecorder(store))
			} else {
				logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "this run is not recorded"),
				)
			}

			snap, err := scheduler.BuildSnapshot(cfg)
			if err != nil {
				return err
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			summary, runErr := scheduler.NewExecutor(logger, opts...).Execute(runCtx, snap, history.TriggerManual)
			printSummary(out, summary)
			return runErr
		},
	}
}

func printSummary(out io.Writer, summary scheduler.Summary) {
	rows := make([][]string, 0, len(summary.Reports))
	for _, r := range summary.Reports {
		matched := strconv.Itoa(r.Matched())
		if r.Unavailable {
			matched = "unavailable"
		}
		rows = append(rows, []string{
			r.Source,
			r.Target,
			r.Kind.String(),
			strconv.Itoa(r.Enumerated),
			matched,
			humanize.IBytes(uint64(r.Bytes())),
			strconv.Itoa(len(r.Skipped)),
			strconv.Itoa(r.LinkFailures()),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Source", "Target", "Kind", "Files", "Matched", "Size", "Skipped dirs", "Link failures"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		[]string{"Total", "", "", "", strconv.Itoa(summary.Matched), humanize.IBytes(uint64(summary.Bytes)), strconv.Itoa(summary.Skipped), strconv.Itoa(summary.Failures)},
	))
	fmt.Fprintf(out, "Run %s\n", summary.RunID)
}
