package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/guildworks/engagements/internal/adapter/counts"
	"github.com/guildworks/engagements/internal/adapter/gitlab"
	"github.com/guildworks/engagements/internal/adapter/postgres"
	categorypg "github.com/guildworks/engagements/internal/adapter/postgres/category"
	engagementpg "github.com/guildworks/engagements/internal/adapter/postgres/engagement"
	hookcfgpg "github.com/guildworks/engagements/internal/adapter/postgres/hookcfg"
	"github.com/guildworks/engagements/internal/adapter/runtimecfg"
	"github.com/guildworks/engagements/internal/config"
	"github.com/guildworks/engagements/internal/event"
	"github.com/guildworks/engagements/internal/service/category"
	"github.com/guildworks/engagements/internal/service/engagement"
	"github.com/guildworks/engagements/internal/service/hookconfig"
	"github.com/guildworks/engagements/internal/service/mirror"
	"github.com/guildworks/engagements/internal/transport/middleware"
	"github.com/guildworks/engagements/internal/transport/rest"
	"github.com/guildworks/engagements/migrations"
)

// Run is the application entry point. It loads configuration, applies
// migrations, wires the adapters, services, and signal consumers together,
// and serves HTTP until the context is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
	)

	if err := migrate(ctx, cfg.Database.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	engagementRepo := engagementpg.New(pool)
	categoryRepo := categorypg.New(pool)
	hookRepo := hookcfgpg.New(pool)
	tx := postgres.NewTxManager(pool)

	bus := event.NewBus(logger)
	defer bus.Close()

	gitClient := gitlab.NewClient(cfg.Gitlab, logger)
	countsClient := counts.NewClient(cfg.Counts, logger)
	runtimeClient := runtimecfg.NewClient(cfg.Runtime, logger)

	hookSvc := hookconfig.NewService(logger, hookRepo, runtimeClient, tx, bus)
	mirrorSvc := mirror.NewService(logger, gitClient, engagementRepo, categoryRepo, hookSvc, cfg.Gitlab)
	mirrorSvc.Register(bus)

	engagementSvc := engagement.NewService(logger, engagementRepo, categoryRepo, countsClient, mirrorSvc, tx, bus)
	categorySvc := category.NewService(logger, categoryRepo, engagementSvc)

	if err := engagementSvc.EnsureSeeded(ctx); err != nil {
		logger.WarnContext(ctx, "seed check failed", slog.Any("error", err))
	}

	router := rest.NewRouter(
		rest.NewHealthHandler(pool, BuildVersion()),
		rest.NewEngagementHandler(engagementSvc),
		rest.NewCategoryHandler(categorySvc),
		rest.NewHookConfigHandler(hookSvc),
	)

	handler := middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(cfg.CORS),
	)(router)

	go runSweeps(ctx, cfg.Sweep, engagementSvc, logger)

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// runSweeps drives the periodic maintenance loops: the state sweep keeps
// derived lifecycle states (and their mirror tags) current, and the
// last-update backfill repairs rows imported without an activity stamp.
func runSweeps(ctx context.Context, cfg config.SweepConfig, svc *engagement.Service, logger *slog.Logger) {
	if cfg.FillMissingUpdates {
		if err := svc.BackfillLastUpdate(ctx); err != nil {
			logger.WarnContext(ctx, "last-update backfill failed", slog.Any("error", err))
		}
	}

	states := time.NewTicker(cfg.StateInterval)
	defer states.Stop()
	seeded := time.NewTicker(cfg.RefreshCheck)
	defer seeded.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-states.C:
			if err := svc.SweepStates(ctx); err != nil {
				logger.WarnContext(ctx, "state sweep failed", slog.Any("error", err))
			}
		case <-seeded.C:
			if err := svc.EnsureSeeded(ctx); err != nil {
				logger.WarnContext(ctx, "seed check failed", slog.Any("error", err))
			}
		}
	}
}

// migrate applies the embedded goose migrations. goose needs database/sql,
// so this opens a short-lived connection separate from the pgx pool.
func migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
