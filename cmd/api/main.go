package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/deskline/helpdesk/internal/api/http"
	"github.com/deskline/helpdesk/internal/api/http/handlers"
	"github.com/deskline/helpdesk/internal/auth"
	"github.com/deskline/helpdesk/internal/config"
	"github.com/deskline/helpdesk/internal/events"
	"github.com/deskline/helpdesk/internal/mail"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/persistence"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/internal/repository/memstore"
	"github.com/deskline/helpdesk/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	sentryEnabled := initSentry(cfg, logger)
	if sentryEnabled {
		defer sentry.Flush(2 * time.Second)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.Enabled() {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable; rate limiting and redis reset ledger disabled", zap.Error(err))
		rdb = &persistence.Redis{}
	}
	defer rdb.Close()

	stores := buildStores(pg, rdb, logger)

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger.Named("notifications"), metrics).RegisterHandlers()

	mailer, err := mail.New(cfg.Mail, logger.Named("mail"))
	if err != nil {
		logger.Fatal("failed to init mailer", zap.Error(err))
	}

	creds := auth.NewCredentialStore(cfg.Auth)
	guard := auth.NewGuard(creds)

	accountService := service.NewAccountService(*cfg, service.AccountDependencies{
		UserRepo:    stores.users,
		ResetLedger: stores.resets,
		Credentials: creds,
		Mailer:      mailer,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: stores.tickets,
		UserRepo:   stores.users,
		Guard:      guard,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  cfg.App.RequestTimeout(),
		WriteTimeout: cfg.App.RequestTimeout(),
	})
	httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
		Logger:      logger,
		Metrics:     metrics,
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
		Sentry:      sentryEnabled,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Users:          handlers.NewUsersHandler(accountService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(guard),
		RateLimit:      httptransport.NewTokenBucket(cfg.RateLimit, rdb.Client, logger),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

type storeSet struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	resets  repository.ResetTokenLedger
}

// buildStores picks Postgres when a pool is open and the in-memory stores
// otherwise. Reset nonces go to Redis when available.
func buildStores(pg *persistence.Postgres, rdb *persistence.Redis, logger *zap.Logger) storeSet {
	var s storeSet
	if pg.Enabled() {
		pool := pg.PoolHandle()
		s.users = repository.NewUserRepository(pool)
		s.tickets = repository.NewTicketRepository(pool)
		s.resets = repository.NewPasswordResetRepository(pool)
	} else {
		logger.Warn("running with in-memory stores; data is lost on restart")
		tickets := memstore.NewTickets()
		s.users = memstore.NewUsers(tickets)
		s.tickets = tickets
		s.resets = memstore.NewResetLedger()
	}
	if rdb.Enabled() {
		s.resets = repository.NewRedisResetLedger(rdb.Client, "reset")
	}
	return s
}

func initSentry(cfg *config.Config, logger *zap.Logger) bool {
	if cfg.Sentry.DSN == "" {
		return false
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		EnableTracing:    true,
		TracesSampleRate: cfg.Sentry.SampleRate,
		Environment:      cfg.App.Env,
		Release:          cfg.App.Version,
	}); err != nil {
		logger.Error("sentry init failed", zap.Error(err))
		return false
	}
	return true
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
