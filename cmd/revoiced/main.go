// Command revoiced is the revoice daemon: it watches the job queue and runs
// the translation pipeline for each submitted job.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"revoice/internal/config"
	"revoice/internal/daemon"
	"revoice/internal/jobs"
	"revoice/internal/logging"
	"revoice/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Provider API keys may live in a local .env during development.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Printf("falling back to default logger: %v", err)
		logger = logging.NewNop()
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	registry := newRegistry(cfg, logger)
	runner := pipeline.New(cfg, store, registry, logger)

	d, err := daemon.New(cfg, store, runner, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	<-ctx.Done()
	d.Stop()
	return nil
}
