package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/admin-ops-service/internal/api/http"
	"github.com/spec-kit/admin-ops-service/internal/api/http/handlers"
	"github.com/spec-kit/admin-ops-service/internal/auth"
	"github.com/spec-kit/admin-ops-service/internal/clock"
	"github.com/spec-kit/admin-ops-service/internal/config"
	"github.com/spec-kit/admin-ops-service/internal/events"
	"github.com/spec-kit/admin-ops-service/internal/observability"
	"github.com/spec-kit/admin-ops-service/internal/persistence"
	"github.com/spec-kit/admin-ops-service/internal/repository"
	"github.com/spec-kit/admin-ops-service/internal/scheduler"
	"github.com/spec-kit/admin-ops-service/internal/service"
	"github.com/spec-kit/admin-ops-service/internal/sla"
	"github.com/spec-kit/admin-ops-service/internal/statemachine"
	"github.com/spec-kit/admin-ops-service/internal/worker"
)

const breachDedupTTL = 30 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	bounds, err := config.LoadBounds(cfg.Autotune.BoundsFile)
	if err != nil {
		logger.Fatal("failed to load autotune bounds", zap.Error(err), zap.String("path", cfg.Autotune.BoundsFile))
	}

	clk := clock.Real()
	timers := scheduler.New(clk, logger.Named("scheduler"))
	dispatcher := events.NewInMemoryDispatcher()

	var (
		backend  repository.Backend        = repository.NewMemoryBackend()
		auditLog repository.TransitionLog  = repository.NewMemoryTransitionLog()
		deduper  sla.Deduper               = sla.NewMemoryDeduper()
		balances service.BalanceStore      = service.NewMemoryBalanceStore(bounds)
		reviews  service.ManualReviewQueue = service.NewMemoryReviewQueue()
	)
	if pool := pg.PoolHandle(); pool != nil {
		backend = repository.NewPostgresBackend(pool)
		auditLog = repository.NewPostgresTransitionLog(pool)
	}
	if rdb != nil {
		deduper = sla.NewRedisDeduper(rdb.Client, rdb.Key("sla", "breach"), breachDedupTTL)
		redisBalances := service.NewRedisBalanceStore(rdb.Client, rdb.Key("autotune", "params"))
		if err := redisBalances.Seed(ctx, bounds); err != nil {
			logger.Fatal("failed to seed balance parameters", zap.Error(err))
		}
		balances = redisBalances
		reviews = service.NewRedisReviewQueue(rdb.Client, rdb.Key("autotune", "manual_review"))
		dispatcher.SubscribeAll(events.NewRedisPublisher(rdb.Client).Handle)
	}

	store := repository.NewStore(backend)
	deps := service.Dependencies{
		Store:       store,
		Audit:       auditLog,
		Engine:      statemachine.NewDefaultEngine(clk),
		Clock:       clk,
		Timers:      timers,
		Tracker:     sla.NewTracker(sla.PolicyFromConfig(cfg.SLA), clk, timers, deduper),
		Dispatcher:  dispatcher,
		Logger:      logger,
		MaxAttempts: cfg.Store.MaxAttempts,
	}

	svc := service.Services{
		Incidents:  service.NewIncidentService(deps),
		Moderation: service.NewModerationService(deps),
		Tickets:    service.NewTicketService(deps),
		Autotune: service.NewAutotuneService(deps, service.AutotuneDependencies{
			Balances: balances,
			Reviews:  reviews,
			Bounds:   bounds,
			Settings: cfg.Autotune,
		}),
	}
	service.RegisterTimerHandlers(timers, svc)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger.Named("notify"), cfg.Notify))

	stats, err := service.RecoverSchedules(ctx, svc, logger)
	if err != nil {
		logger.Fatal("failed to recover schedules", zap.Error(err))
	}
	logger.Info("timers recovered",
		zap.Int("breaches", stats.Breaches),
		zap.Int("expiries", stats.Expiries),
		zap.Int("rollbacks", stats.Rollbacks),
		zap.Int("unfinished_batches", stats.UnfinishedBatches))
	schedulerDone := worker.StartScheduler(ctx, timers, logger)

	staffService := service.NewStaffService(store, clk, cfg.Auth.BcryptCost)
	if created, err := staffService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPassword); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	} else if created {
		logger.Info("bootstrap admin created", zap.String("email", cfg.Auth.BootstrapAdminEmail))
	}
	authService := service.NewAuthService(staffService, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes, clk))
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), cfg.Auth.DetectorAPIKeyHash)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb, timers),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Incidents:      handlers.NewIncidentsHandler(svc.Incidents),
		Moderation:     handlers.NewModerationHandler(svc.Moderation),
		Autotune:       handlers.NewAutotuneHandler(svc.Autotune),
		Tickets:        handlers.NewTicketsHandler(svc.Tickets),
		Audit:          handlers.NewAuditHandler(service.NewAuditService(auditLog)),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-schedulerDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
