package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/petroflow/petroflow/internal/domain"
	"github.com/petroflow/petroflow/internal/pipeline"
)

var (
	ingestMode        string
	ingestStart       string
	ingestEnd         string
	ingestSources     []string
	ingestCommodities []string
	ingestThreshold   float64
	ingestFormat      string
	ingestTimeout     time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion pipeline pass",
	Long: `Fetch the configured series from every enabled source, validate each
batch, and store batches that clear the quality gate. Sources run in
parallel and fail independently; the exit code is non-zero only when the
whole run fails.

Example usage:
  petroflow ingest                               # incremental since last stored day
  petroflow ingest --mode full_refresh           # refetch the lookback window
  petroflow ingest --start 2026-01-01 --end 2026-03-31
  petroflow ingest --sources eia,fred --format json`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestMode, "mode", "", "Run mode: incremental, full_refresh, backfill (default from config)")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "Window start (YYYY-MM-DD), overrides mode-derived start")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "Window end (YYYY-MM-DD), defaults to today")
	ingestCmd.Flags().StringSliceVar(&ingestSources, "sources", nil, "Subset of sources to run (default all enabled)")
	ingestCmd.Flags().StringSliceVar(&ingestCommodities, "commodities", nil, "Subset of canonical symbols to fetch")
	ingestCmd.Flags().Float64Var(&ingestThreshold, "quality-threshold", -1, "Override the quality gate threshold")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "text", "Output format: text, json")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 10*time.Minute, "Overall run deadline")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provs, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	repo, err := connectRepo(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	opts := pipeline.Options{
		Mode:        ingestMode,
		Sources:     ingestSources,
		Commodities: ingestCommodities,
	}
	if opts.Start, err = parseDateFlag(ingestStart); err != nil {
		return err
	}
	if opts.End, err = parseDateFlag(ingestEnd); err != nil {
		return err
	}
	if ingestThreshold >= 0 {
		opts.QualityThreshold = &ingestThreshold
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	result := pipeline.New(cfg, provs, repo).Run(ctx, opts)

	switch ingestFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	default:
		fmt.Println(result.Summary)
	}

	if result.Status == domain.RunFailed {
		return fmt.Errorf("run %s failed", result.RunID)
	}
	return nil
}

func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, want YYYY-MM-DD: %w", value, err)
	}
	return &t, nil
}
