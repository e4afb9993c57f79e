package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"camsort/internal/history"
)

const historyScanLimit = 500

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					sources, err := store.Sources(cmd.Context(), run.ID)
					if err != nil {
						return err
					}
					var matched int
					var size int64
					for _, s := range sources {
						matched += s.Matched
						size += s.Bytes
					}
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04:05"),
						string(run.Trigger),
						string(run.Status),
						formatDuration(run.Duration()),
						strconv.Itoa(len(sources)),
						strconv.Itoa(matched),
						humanize.IBytes(uint64(size)),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Trigger", "Status", "Duration", "Sources", "Matched", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
					nil,
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-source results of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := findRun(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				sources, err := store.Sources(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Run:      %s\n", run.ID)
				fmt.Fprintf(out, "Status:   %s (%s)\n", run.Status, run.Trigger)
				fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Lookback: %d day(s)\n", run.LookbackDays)
				if run.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
				}
				rows := make([][]string, 0, len(sources))
				for _, s := range sources {
					note := s.ErrorMessage
					if s.Unavailable {
						note = "source unavailable"
					}
					rows = append(rows, []string{
						s.Source, s.Target, s.Kind,
						strconv.Itoa(s.Enumerated),
						strconv.Itoa(s.Matched),
						humanize.IBytes(uint64(s.Bytes)),
						strconv.Itoa(s.SkippedDirs),
						strconv.Itoa(s.LinkFailures),
						note,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Source", "Target", "Kind", "Files", "Matched", "Size", "Skipped dirs", "Link failures", "Note"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
					nil,
				))
				return nil
			})
		},
	}
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than the given number of days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be at least 1")
			}
			return withHistory(ctx, func(store *history.Store) error {
				n, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -days))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 90, "Keep runs started within this many days")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// findRun resolves a full run id or a unique prefix of a recent one.
func findRun(ctx context.Context, store *history.Store, id string) (history.Run, error) {
	run, err := store.Get(ctx, id)
	if err == nil || !errors.Is(err, history.ErrNotFound) {
		return run, err
	}
	runs, err := store.Recent(ctx, historyScanLimit)
	if err != nil {
		return history.Run{}, err
	}
	var matches []history.Run
	for _, r := range runs {
		if strings.HasPrefix(r.ID, id) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return history.Run{}, fmt.Errorf("run %s: %w", id, history.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return history.Run{}, fmt.Errorf("run id prefix %q is ambiguous (%d matches)", id, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
