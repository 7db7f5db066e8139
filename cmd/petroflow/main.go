// Command petroflow runs the energy price ingestion and quality-assurance
// pipeline.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/petroflow/petroflow/internal/config"
	"github.com/petroflow/petroflow/internal/persistence/postgres"
	"github.com/petroflow/petroflow/internal/providers"
)

var (
	configPath string
	logLevel   string
	logJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "petroflow",
	Short: "Energy commodity price ingestion and quality pipeline",
	Long: `petroflow fetches daily energy commodity prices (WTI, Brent, Henry Hub
natural gas) from multiple public sources, validates them against schema,
completeness, outlier, and cross-source checks, and stores passing batches
idempotently in Postgres.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/pipeline.yaml", "Path to pipeline configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON logs instead of console output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !logJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	return nil
}

// loadConfig reads the configuration file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildProviders constructs one adapter per enabled source.
func buildProviders(cfg *config.Config) (map[string]providers.Provider, error) {
	return providers.Build(cfg)
}

// connectRepo opens the Postgres repository from the configured DSN.
func connectRepo(cfg *config.Config) (*postgres.PriceRepo, error) {
	if cfg.Storage.DSN == "" {
		return nil, fmt.Errorf("no database DSN configured; set storage.dsn or %s", config.EnvDatabaseURL)
	}
	return postgres.Connect(cfg.Storage.DSN)
}
