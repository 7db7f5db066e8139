package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petroflow/petroflow/internal/domain"
)

var (
	statsSymbol string
	statsStart  string
	statsEnd    string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show stored price statistics for a commodity",
	Long: `Aggregate stored rows for one canonical commodity symbol across all
sources, plus the latest stored observation per source.

Example usage:
  petroflow stats --symbol WTI_CRUDE
  petroflow stats --symbol BRENT_CRUDE --start 2026-01-01`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsSymbol, "symbol", domain.SymbolWTICrude, "Canonical commodity symbol")
	statsCmd.Flags().StringVar(&statsStart, "start", "", "Range start (YYYY-MM-DD)")
	statsCmd.Flags().StringVar(&statsEnd, "end", "", "Range end (YYYY-MM-DD)")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	repo, err := connectRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	start, err := parseDateFlag(statsStart)
	if err != nil {
		return err
	}
	end, err := parseDateFlag(statsEnd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := repo.Statistics(ctx, statsSymbol, start, end)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Symbol\t%s\n", statsSymbol)
	fmt.Fprintf(w, "Rows\t%d\n", stats.Count)
	if stats.Count > 0 {
		fmt.Fprintf(w, "Mean\t%.2f\n", stats.Mean)
		fmt.Fprintf(w, "Min\t%.2f\n", stats.Min)
		fmt.Fprintf(w, "Max\t%.2f\n", stats.Max)
		fmt.Fprintf(w, "Volume\t%.0f\n", stats.TotalVolume)
	}
	w.Flush()

	sources := cfg.EnabledSources()
	if len(sources) == 0 {
		return nil
	}
	fmt.Println("\nLatest per source:")
	lw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(lw, "Source\tTimestamp\tPrice")
	for _, source := range sources {
		point, err := repo.LatestFor(ctx, statsSymbol, source)
		if err != nil {
			return err
		}
		if point == nil {
			fmt.Fprintf(lw, "%s\t-\t-\n", source)
			continue
		}
		fmt.Fprintf(lw, "%s\t%s\t%.2f\n", source, point.Timestamp.Format("2006-01-02"), point.Price)
	}
	lw.Flush()
	return nil
}
