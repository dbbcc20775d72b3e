// Command resync rebuilds the local engagement store from the mirror.
//
// It reads every engagement snapshot the mirror holds, purges the local
// tables, and persists the snapshots back. Intended for disaster recovery
// and environment bootstrap; the running server offers the same operation
// per-uuid via PUT /api/v2/engagements/refresh.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/guildworks/engagements/internal/adapter/counts"
	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/adapter/postgres"
	categorypg "github.com/guildworks/engagements/internal/adapter/postgres/category"
	engagementpg "github.com/guildworks/engagements/internal/adapter/postgres/engagement"
	hookcfgpg "github.com/guildworks/engagements/internal/adapter/postgres/hookcfg"
	"github.com/guildworks/engagements/internal/adapter/runtimecfg"
	"github.com/guildworks/engagements/internal/app"
	"github.com/guildworks/engagements/internal/config"
	"github.com/guildworks/engagements/internal/event"
	"github.com/guildworks/engagements/internal/service/engagement"
	"github.com/guildworks/engagements/internal/service/hookconfig"
	"github.com/guildworks/engagements/internal/service/mirror"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	engagementRepo := engagementpg.New(pool)
	categoryRepo := categorypg.New(pool)
	hookRepo := hookcfgpg.New(pool)
	tx := postgres.NewTxManager(pool)

	// No consumers registered: a one-shot resync must not trigger mirror
	// writes, so every signal published along the way is dropped.
	bus := event.NewBus(logger)
	defer bus.Close()

	gitClient := gitlab.NewClient(cfg.Gitlab, logger)
	countsClient := counts.NewClient(cfg.Counts, logger)
	runtimeClient := runtimecfg.NewClient(cfg.Runtime, logger)

	hookSvc := hookconfig.NewService(logger, hookRepo, runtimeClient, tx, bus)
	mirrorSvc := mirror.NewService(logger, gitClient, engagementRepo, categoryRepo, hookSvc, cfg.Gitlab)
	svc := engagement.NewService(logger, engagementRepo, categoryRepo, countsClient, mirrorSvc, tx, bus)

	n, err := svc.Refresh(ctx, nil)
	if err != nil {
		pool.Close()
		logger.Error("resync failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("Restored %d engagements from the mirror.\n", n)
}
