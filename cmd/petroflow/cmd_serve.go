package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/petroflow/petroflow/internal/interfaces/ops"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operational HTTP endpoints",
	Long: `Start the read-only ops server exposing /health, /metrics (Prometheus),
and /v1/runs/last. Binds to localhost by default.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Listen host")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	serverCfg := ops.DefaultServerConfig()
	serverCfg.Host = serveHost
	serverCfg.Port = servePort

	server, err := ops.NewServer(serverCfg, provs, repo)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(ctx)
	}
}
