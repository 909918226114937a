package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pelosub/pelosub/pkg/logger"
	sqliteStorage "github.com/pelosub/pelosub/pkg/storage/sqlite"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect subscription history and past runs",
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent reconciliation runs",
	Run:   runHistoryRuns,
}

var historyIDsCmd = &cobra.Command{
	Use:   "ids",
	Short: "List tracked content ids",
	Run:   runHistoryIDs,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Forget content ids older than the staleness window",
	Long: `Prune removes tracked content ids whose first sighting is older than the
configured staleness window. A pruned class becomes eligible for queueing
again on the next sync.`,
	Run: runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyIDsCmd)
	historyCmd.AddCommand(historyPruneCmd)
	historyRunsCmd.Flags().Int("limit", 10, "how many runs to list")
}

func runHistoryRuns(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := logger.WithCtx(context.Background(), log)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	history, err := sqliteStorage.New(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open history database: %v", err)
	}
	defer history.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	snaps, err := history.Snapshots(ctx, limit)
	if err != nil {
		log.Fatalf("failed to list runs: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tWHEN\tEPISODES\tQUEUED\tADDED\tREMOVED\tREPAIRED\tCONVERGED")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%t\n",
			s.RunID, humanize.Time(s.RunAt), s.MediaEpisodes, s.Subscriptions,
			s.Added, s.Removed, s.Repaired, s.Converged)
	}
	w.Flush()
}

func runHistoryIDs(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := logger.WithCtx(context.Background(), log)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	history, err := sqliteStorage.New(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open history database: %v", err)
	}
	defer history.Close()

	tracked, err := history.TrackedIDs(ctx)
	if err != nil {
		log.Fatalf("failed to list content ids: %v", err)
	}

	ids := make([]string, 0, len(tracked))
	for id := range tracked {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if !tracked[ids[i]].Equal(tracked[ids[j]]) {
			return tracked[ids[i]].Before(tracked[ids[j]])
		}
		return ids[i] < ids[j]
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTENT ID\tFIRST SEEN")
	for _, id := range ids {
		fmt.Fprintf(w, "%s\t%s\n", id, humanize.Time(tracked[id]))
	}
	w.Flush()
}

func runHistoryPrune(cmd *cobra.Command, args []string) {
	log := logger.Get()
	ctx := logger.WithCtx(context.Background(), log)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.History.StaleAfter <= 0 {
		log.Fatal("history.staleAfterDays must be positive to prune")
	}

	history, err := sqliteStorage.New(cfg.History.Path)
	if err != nil {
		log.Fatalf("failed to open history database: %v", err)
	}
	defer history.Close()

	cutoff := time.Now().Add(-cfg.History.StaleAfterDuration())
	stale, err := history.StaleIDs(ctx, cutoff)
	if err != nil {
		log.Fatalf("failed to find stale ids: %v", err)
	}

	removed, err := history.RemoveContentIDs(ctx, stale)
	if err != nil {
		log.Fatalf("failed to prune: %v", err)
	}

	fmt.Fprintf(os.Stdout, "pruned %d of %d tracked ids older than %s\n",
		removed, len(stale), humanize.Time(cutoff))
}
