// Command powerplat-update tracks the "what's new" articles published in
// the Microsoft Power Platform documentation repositories.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aktsmm/powerplat-update/internal/adapters/driven/config/file"
	"github.com/aktsmm/powerplat-update/internal/adapters/driven/github"
	"github.com/aktsmm/powerplat-update/internal/adapters/driven/storage/sqlite"
	"github.com/aktsmm/powerplat-update/internal/adapters/driving/cli"
	"github.com/aktsmm/powerplat-update/internal/core/services"
)

// version is stamped by the release build via -ldflags.
var version = "dev"

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "POWERPLAT_CONFIG"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := file.Load(os.Getenv(EnvConfigPath))
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("opening article cache: %w", err)
	}
	defer store.Close()

	client := github.NewClient(ctx, cfg.ResolveToken())
	source := github.NewSource(client)

	orchestrator := services.NewSyncOrchestrator(
		source,
		store.ArticleStore(),
		store.WatermarkStore(),
		store.CheckpointStore(),
		cfg.TrackedRepos(),
		services.OrchestratorConfig{
			MinSyncInterval:       cfg.MinSyncInterval(),
			FetchConcurrency:      cfg.Sync.FetchConcurrency,
			DefaultMaxFiles:       cfg.Sync.MaxFiles,
			ResolveFirstPublished: cfg.Sync.ResolveFirstPublished,
		},
	)
	query := services.NewQueryService(store.ArticleStore(), store.CheckpointStore())

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Query: query,
		Sync:  orchestrator,
	})
	cli.SetScheduler(services.NewScheduler(orchestrator, cfg.ScheduleInterval()))

	return cli.ExecuteContext(ctx)
}
