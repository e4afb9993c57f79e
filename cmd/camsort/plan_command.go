package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"camsort/internal/assort"
	"camsort/internal/logging"
	"camsort/internal/scheduler"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var listFiles bool
	var lookback int
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview how recordings would be assorted, without writing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snap, err := scheduler.BuildSnapshot(cfg)
			if err != nil {
				return err
			}
			depth := snap.Depth
			if lookback > 0 {
				depth = lookback
			}
			today := assort.Today(time.Now())
			out := cmd.OutOrStdout()

			var (
				rows       [][]string
				totalFiles int
				totalBytes int64
				listing    []string
			)
			for _, pair := range snap.Pairs {
				report, buckets, err := assort.Plan(pair.Source, pair.Target, snap.ManifestDir, today, depth, logging.NewNop())
				if err != nil {
					return fmt.Errorf("plan %s: %w", pair.Source.Label(), err)
				}
				if report.Unavailable {
					rows = append(rows, []string{report.Source, report.Target, "-", "unavailable", "-"})
					continue
				}
				for _, b := range report.Buckets {
					rows = append(rows, []string{
						report.Source,
						report.Target,
						assort.DayName(b.Date),
						strconv.Itoa(b.Files),
						humanize.IBytes(uint64(b.Bytes)),
					})
					totalFiles += b.Files
					totalBytes += b.Bytes
				}
				if listFiles {
					for _, b := range buckets {
						for _, f := range b.Files {
							listing = append(listing, fmt.Sprintf("%s  %s", assort.DayName(b.Date), f.Path))
						}
					}
				}
			}

			fmt.Fprintf(out, "Window: %d day(s) before %s\n", depth, assort.DayName(today))
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "Target", "Day", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
				[]string{"Total", "", "", strconv.Itoa(totalFiles), humanize.IBytes(uint64(totalBytes))},
			))
			for _, line := range listing {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&listFiles, "files", false, "List every matched file")
	cmd.Flags().IntVar(&lookback, "lookback", 0, "Override the configured lookback in days")
	return cmd
}
