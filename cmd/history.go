package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/derickschaefer/departures/internal/app"
	"github.com/derickschaefer/departures/internal/model"
	"github.com/derickschaefer/departures/internal/render"
	"github.com/derickschaefer/departures/internal/search"
	"github.com/derickschaefer/departures/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the local search history",
	Long: `Commands for inspecting and clearing the local bbolt database that
remembers the origin and destination codes you have searched.

History is kept until you explicitly clear it. Signing out does not
touch it.`,
}

// openHistory resolves config and opens the history store without
// building an API client or connecting to the cache.
func openHistory() (*app.Deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	deps := &app.Deps{Config: cfg}
	if err := deps.RequireStore(); err != nil {
		return nil, err
	}
	return deps, nil
}

// ─── history list ─────────────────────────────────────────────────────────────

var historyListCmd = &cobra.Command{
	Use:   "list [origin|destination]",
	Short: "List remembered airport codes",
	Example: `  departures history list
  departures history list origin
  departures history list dest --format csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields := []search.Field{search.FieldOrigin, search.FieldDestination}
		if len(args) == 1 {
			f, err := search.ParseField(args[0])
			if err != nil {
				return err
			}
			fields = []search.Field{f}
		}

		deps, err := openHistory()
		if err != nil {
			return err
		}
		defer deps.Close()

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		format := resolveFormat(deps.Config.Format)
		for i, f := range fields {
			var codes []string
			if f == search.FieldDestination {
				codes, err = deps.Store.DestinationHistory()
			} else {
				codes, err = deps.Store.OriginHistory()
			}
			if err != nil {
				return fmt.Errorf("reading %s history: %w", f, err)
			}
			if i > 0 && format == render.FormatTable {
				fmt.Fprintln(w)
			}
			result := buildHistoryResult(model.KindHistory, "history list "+f.String(),
				&model.HistoryList{Field: f.String(), Entries: codes})
			if err := render.Render(w, result, format); err != nil {
				return err
			}
		}
		return nil
	},
}

// ─── history stats ────────────────────────────────────────────────────────────

var historyStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  departures history stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openHistory()
		if err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		// Sort by bucket name for deterministic output
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── history clear ────────────────────────────────────────────────────────────

var (
	historyClearAll    bool
	historyClearBucket string
)

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete remembered codes from the local store",
	Long: `Delete entries from one or all buckets.

Note: bbolt does not shrink the database file automatically after clearing.
Free pages are reused internally on the next write. To reclaim disk space,
run 'departures history compact' after clearing.`,
	Example: `  departures history clear --all
  departures history clear --bucket origin_history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !historyClearAll && historyClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <n>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := openHistory()
		if err != nil {
			return err
		}
		defer deps.Close()

		if historyClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			fmt.Fprintln(cmd.OutOrStdout(), "  Run 'departures history compact' to reclaim disk space.")
			return nil
		}

		if err := deps.Store.ClearBucket(historyClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", historyClearBucket, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", historyClearBucket)
		fmt.Fprintln(cmd.OutOrStdout(), "  Run 'departures history compact' to reclaim disk space.")
		return nil
	},
}

// ─── history compact ──────────────────────────────────────────────────────────

var historyCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact rewrites the entire bbolt database to a new file, recovering space
freed by prior 'history clear' operations.

All live data is copied to a temporary file first, then the original is
replaced. The database remains fully usable after compaction completes.`,
	Example: `  departures history compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := openHistory()
		if err != nil {
			return err
		}
		// Compact reopens the underlying bolt.DB itself; the Store handle
		// stays valid and is closed normally.
		defer deps.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Compacting %s ...\n", deps.Store.Path())

		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		saved := before - after
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Compaction complete\n")
		fmt.Fprintf(cmd.OutOrStdout(), "  Before: %s\n", humanBytes(before))
		fmt.Fprintf(cmd.OutOrStdout(), "  After:  %s\n", humanBytes(after))
		if saved > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "  Saved:  %s\n", humanBytes(saved))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyStatsCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyCompactCmd)

	historyClearCmd.Flags().BoolVar(&historyClearAll, "all", false, "clear all buckets")
	historyClearCmd.Flags().StringVar(&historyClearBucket, "bucket", "",
		"clear a specific bucket: origin_history|destination_history|session")
}
