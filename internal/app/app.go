// Package app assembles the service graph shared by the API server and ticketctl.
package app

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/did4510/Nexon/internal/api/http"
	"github.com/did4510/Nexon/internal/api/http/handlers"
	"github.com/did4510/Nexon/internal/auth"
	"github.com/did4510/Nexon/internal/clock"
	"github.com/did4510/Nexon/internal/config"
	"github.com/did4510/Nexon/internal/events"
	"github.com/did4510/Nexon/internal/notify"
	"github.com/did4510/Nexon/internal/observability"
	"github.com/did4510/Nexon/internal/persistence"
	"github.com/did4510/Nexon/internal/repository"
	"github.com/did4510/Nexon/internal/service"
	"github.com/did4510/Nexon/internal/worker"
)

// App holds every long-lived component.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Clock    clock.Clock
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Repo     repository.Repository

	Tickets       *service.TicketService
	Staff         *service.StaffService
	Policies      *service.PolicyService
	Performance   *service.PerformanceService
	Workload      *service.WorkloadTracker
	Scheduler     *service.EscalationScheduler
	Notifications *service.NotificationService
	Tokens        *auth.TokenManager
}

// Options override collaborators, mainly for tests.
type Options struct {
	Clock clock.Clock
	Repo  repository.Repository
	// SkipMigrations leaves the schema alone even when POSTGRES_RUN_MIGRATIONS is set.
	SkipMigrations bool
}

// Build connects storage and wires the services. Storage is Postgres when
// POSTGRES_DSN is set and in-memory otherwise.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		Clock:   opts.Clock,
	}
	if a.Clock == nil {
		a.Clock = clock.System{}
	}

	a.Repo = opts.Repo
	if a.Repo == nil {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.Postgres = pg
		if pg.Enabled() {
			if cfg.Postgres.RunMigrations && !opts.SkipMigrations {
				if _, err := persistence.RunMigrations(ctx, pg.Pool, persistence.DefaultMigrationsDir, logger); err != nil {
					pg.Close()
					return nil, err
				}
			}
			a.Repo = repository.NewPostgresRepository(pg.Pool)
		} else {
			a.Repo = repository.NewMemory()
		}
	}
	a.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)

	dispatcher := events.NewInMemoryDispatcher()
	timeout := cfg.Repository.Timeout

	store := service.NewTicketStore(service.StoreDependencies{
		Repo:        a.Repo,
		Clock:       a.Clock,
		Dispatcher:  dispatcher,
		Logger:      logger.Named("tickets"),
		RepoTimeout: timeout,
	})
	a.Workload = service.NewWorkloadTracker(service.WorkloadDependencies{
		Repo:        a.Repo,
		Logger:      logger.Named("workload"),
		RepoTimeout: timeout,
	})
	a.Tickets = service.NewTicketService(service.TicketDependencies{
		Store:    store,
		Engine:   service.NewSLAEngine(cfg.SLA),
		Workload: a.Workload,
		Logger:   logger.Named("tickets"),
	})
	a.Staff = service.NewStaffService(service.StaffDependencies{
		Repo:        a.Repo,
		Clock:       a.Clock,
		Logger:      logger.Named("staff"),
		RepoTimeout: timeout,
	})
	a.Policies = service.NewPolicyService(a.Repo, a.Clock, logger.Named("policies"), timeout)
	a.Performance = service.NewPerformanceService(a.Repo, timeout)

	sinks := []notify.Sink{notify.NewLogSink(logger.Named("notify"))}
	escalations := notify.Escalations{notify.NewLogEscalation(logger.Named("escalation"))}
	if a.Redis.Enabled() {
		sinks = append(sinks, notify.NewRedisSink(a.Redis.Client, cfg.Redis.EscalationChannel))
		escalations = append(escalations, notify.NewChannelEscalation(a.Redis.Client, cfg.Redis.EscalationChannel, a.Clock.Now))
	}
	if cfg.SLA.AutoReassignOnBreach {
		escalations = append(escalations, service.NewAutoReassign(a.Tickets))
	}

	a.Notifications = service.NewNotificationService(dispatcher, logger.Named("notify"), sinks...)
	a.Notifications.RegisterHandlers()
	a.Scheduler = service.NewEscalationScheduler(service.EscalationDependencies{
		Store:      store,
		Sink:       a.Notifications,
		Escalation: escalations,
		Logger:     logger.Named("escalation"),
	})
	a.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLMinutes)
	return a, nil
}

// NewWorker returns the periodic SLA driver. The Redis lease is used when Redis is enabled.
func (a *App) NewWorker() *worker.SLAWorker {
	deps := worker.SLAWorkerDependencies{
		Scheduler: a.Scheduler,
		Workload:  a.Workload,
		Metrics:   a.Metrics,
		Config:    a.Config.SLA,
		Logger:    a.Logger.Named("worker"),
	}
	if a.Redis.Enabled() {
		deps.Lease = persistence.NewRedisLease(a.Redis.Client)
	}
	return worker.NewSLAWorker(deps)
}

// HTTP builds the Fiber application with every route registered.
func (a *App) HTTP() *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               a.Config.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, a.Logger.Named("http"), a.Metrics, a.Config.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(a.Config.App.Name, a.Config.App.Version, a.Repo, a.Redis),
		Tickets:        handlers.NewTicketsHandler(a.Tickets),
		Staff:          handlers.NewStaffHandler(a.Staff, a.Workload),
		Policies:       handlers.NewPolicyHandler(a.Policies, a.Performance),
		Admin:          handlers.NewAdminHandler(a.Scheduler, a.Workload, a.Metrics),
		AuthMiddleware: auth.NewAuthMiddleware(a.Tokens),
	})
	return server
}

// Close releases storage connections.
func (a *App) Close() {
	a.Redis.Close()
	a.Postgres.Close()
}
