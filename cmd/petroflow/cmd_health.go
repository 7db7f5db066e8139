package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var healthTimeout time.Duration

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe every data source and the database",
	Long: `Issue a lightweight probe against each enabled source's base endpoint
and ping the database, reporting reachability and latency per dependency.`,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().DurationVar(&healthTimeout, "timeout", 15*time.Second, "Probe deadline")
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	provs, err := buildProviders(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Dependency\tStatus\tLatency\tDetail")

	degraded := false

	names := make([]string, 0, len(provs))
	for name := range provs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		probe := provs[name].Probe(ctx)
		if !probe.Healthy {
			degraded = true
			fmt.Fprintf(w, "%s\tDOWN\t%dms\t%s\n", name, probe.LatencyMS, probe.Error)
			continue
		}
		fmt.Fprintf(w, "%s\tUP\t%dms\t\n", name, probe.LatencyMS)
	}

	if cfg.Storage.DSN != "" {
		repo, err := connectRepo(cfg)
		if err != nil {
			degraded = true
			fmt.Fprintf(w, "postgres\tDOWN\t-\t%v\n", err)
		} else {
			defer repo.Close()
			dbStart := time.Now()
			if err := repo.Ping(ctx); err != nil {
				degraded = true
				fmt.Fprintf(w, "postgres\tDOWN\t-\t%v\n", err)
			} else {
				fmt.Fprintf(w, "postgres\tUP\t%s\t\n", time.Since(dbStart).Round(time.Millisecond))
			}
		}
	} else {
		fmt.Fprintf(w, "postgres\tSKIP\t-\tno DSN configured\n")
	}

	w.Flush()

	if degraded {
		return fmt.Errorf("one or more dependencies are unhealthy")
	}
	return nil
}
