package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/okian/aptrank/internal/adapters/export"
	"github.com/okian/aptrank/internal/adapters/tui"
	"github.com/okian/aptrank/internal/domain/model"
	"github.com/okian/aptrank/internal/domain/selector"
	"github.com/okian/aptrank/internal/domain/types"
	"github.com/okian/aptrank/internal/simulate"
	"github.com/okian/aptrank/pkg/logger"
	"github.com/spf13/cobra"
)

const logFilePermission = 0o600

func compareCmd(c *cli) *cobra.Command {
	var (
		logPath string
		logFile *os.File
	)

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare listings in the terminal",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
			if err != nil {
				return fmt.Errorf("failed to open log file: %w", err)
			}
			logFile, c.logOut = f, f
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer logFile.Close()

			ctx := cmd.Context()
			svc, err := c.startService(ctx, true)
			if err != nil {
				return err
			}
			defer svc.Stop()

			if err := tui.Run(ctx, svc); err != nil {
				return err
			}

			entries, err := svc.Rankings(ctx)
			if err != nil {
				return err
			}
			return writeRankings(cmd.OutOrStdout(), entries, 10)
		},
	}

	cmd.Flags().StringVar(&logPath, "log-file", "aptrank.log", "file receiving logs while the screen is open")
	return cmd
}

func rankingsCmd(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Print the current rankings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := c.startService(ctx, false)
			if err != nil {
				return err
			}
			defer svc.Stop()

			entries, err := svc.Rankings(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				if limit > 0 && limit < len(entries) {
					entries = entries[:limit]
				}
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return writeRankings(cmd.OutOrStdout(), entries, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of rows to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func historyCmd(c *cli) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded comparisons, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			snap, err := store.Load(ctx)
			if err != nil {
				return err
			}
			outcomes := snap.Outcomes
			if limit > 0 && limit < len(outcomes) {
				outcomes = outcomes[len(outcomes)-limit:]
			}

			if asJSON {
				matches := make([]types.Match, len(outcomes))
				for i, o := range outcomes {
					matches[i] = types.MatchOf(o)
				}
				return writeJSON(cmd.OutOrStdout(), matches)
			}
			return writeHistory(cmd.OutOrStdout(), outcomes, c.names(ctx))
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of comparisons to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func exportCmd(c *cli) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the rankings CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			path := out
			if path == "" {
				path = c.cfg.RankingsCSV
			}
			if path == "" {
				return fmt.Errorf("no output path: set --out or APTRANK_RANKINGS_CSV")
			}

			svc, err := c.startService(ctx, false)
			if err != nil {
				return err
			}
			defer svc.Stop()

			entries, err := svc.Rankings(ctx)
			if err != nil {
				return err
			}
			w := export.NewWriter(path)
			if err := w.Export(ctx, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rankings to %s\n", len(entries), w.Path())
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path (default from config)")
	return cmd
}

func simulateCmd(c *cli) *cobra.Command {
	sim := simulate.DefaultConfig()
	var (
		strategies []string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Compare pair-selection strategies against a synthetic judge",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range strategies {
				st, err := selector.ParseStrategy(name)
				if err != nil {
					return err
				}
				sim.Strategies = append(sim.Strategies, st)
			}
			sim.K = c.cfg.KFactor
			sim.Window = c.cfg.RecentWindow
			sim.Threshold = c.cfg.CoverageThreshold

			report, err := simulate.Run(cmd.Context(), sim)
			if err != nil {
				return err
			}
			if asJSON {
				return report.WriteJSON(cmd.OutOrStdout())
			}
			return report.WriteTable(cmd.OutOrStdout())
		},
	}

	cmd.Flags().IntVar(&sim.Items, "items", sim.Items, "number of synthetic listings")
	cmd.Flags().IntVar(&sim.Rounds, "rounds", sim.Rounds, "comparisons per strategy")
	cmd.Flags().Float64Var(&sim.Noise, "noise", sim.Noise, "judge noise; larger values make choices more random")
	cmd.Flags().Int64Var(&sim.Seed, "seed", sim.Seed, "random seed")
	cmd.Flags().StringSliceVar(&strategies, "strategy", nil, "strategies to run (default all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// names maps item keys to addresses when a sheet is configured. Failures are
// logged and leave keys unnamed.
func (c *cli) names(ctx context.Context) map[string]string {
	names := map[string]string{}
	src, err := c.loader()
	if err != nil {
		return names
	}
	items, err := src.Load(ctx)
	if err != nil {
		logger.Get().Warn(ctx, "could not load listings for names", logger.Error(err))
		return names
	}
	for _, it := range items {
		names[it.Key] = label(it.Address, it.Link)
	}
	return names
}

func label(address, link string) string {
	if strings.TrimSpace(address) != "" {
		return address
	}
	return link
}

func writeRankings(w io.Writer, entries []types.Entry, limit int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No listings yet.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tLISTING")
	for i, e := range entries {
		if limit > 0 && i == limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%.2f\t%s\n", e.Rank, e.Rating, label(e.Listing.Address, e.Listing.Link))
	}
	return tw.Flush()
}

func writeHistory(w io.Writer, outcomes []model.Outcome, names map[string]string) error {
	if len(outcomes) == 0 {
		_, err := fmt.Fprintln(w, "No comparisons recorded yet.")
		return err
	}
	name := func(key string) string {
		if n, ok := names[key]; ok {
			return n
		}
		if len(key) > 8 {
			return key[:8]
		}
		return key
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tWINNER\tLOSER\tWINNER ELO\tLOSER ELO")
	for _, o := range outcomes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f -> %.1f\t%.1f -> %.1f\n",
			o.At.Local().Format(export.TimeLayout),
			name(o.WinnerKey), name(o.LoserKey),
			o.WinnerBefore, o.WinnerAfter,
			o.LoserBefore, o.LoserAfter)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}
