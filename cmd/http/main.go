package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/hilthontt/civicreport/internal/application/assignment"
	"github.com/hilthontt/civicreport/internal/application/lifecycle"
	"github.com/hilthontt/civicreport/internal/application/projection"
	"github.com/hilthontt/civicreport/internal/application/submission"
	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/configs"
	"github.com/hilthontt/civicreport/internal/infrastructure/jobs"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
	"github.com/hilthontt/civicreport/internal/infrastructure/profanity"
	"github.com/hilthontt/civicreport/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/civicreport/internal/infrastructure/tracing"
	"github.com/hilthontt/civicreport/internal/infrastructure/ws"
	"github.com/hilthontt/civicreport/internal/presentation/api"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	activityHandler "github.com/hilthontt/civicreport/internal/presentation/handler/activity"
	departmentsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/departments"
	healthHandler "github.com/hilthontt/civicreport/internal/presentation/handler/health"
	notificationsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/notifications"
	reportsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/reports"
	"github.com/joho/godotenv"
)

const serviceName = "civicreport"

func main() {
	_ = godotenv.Load()

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Enabled:     cfg.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialise tracing", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer shutdownTracer(context.Background())

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Warn(logging.General, logging.Startup, "sentry disabled", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer sentry.Flush(2 * time.Second)
	}

	m := metrics.New()
	now := time.Now

	st, err := openStores(ctx, cfg, logger, now)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to open stores", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer st.close()

	cache := openCache(ctx, cfg, logger)
	defer cache.close()

	notifier := ws.NewNotificationCore(logger, api.CheckOrigin(cfg.HTTP.AllowedOrigins))
	go notifier.Run(ctx)

	bus, err := openEventBus(ctx, cfg, st.activity, notifier, m, logger)
	if err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to open event bus", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer bus.close()

	enrichers, err := openEnrichers(cfg)
	if err != nil {
		logger.Fatal(logging.Enrichment, logging.Startup, "failed to configure enrichment", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	defaultPriority, err := domain.ParsePriority(cfg.Submission.DefaultPriority)
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "invalid default priority", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	assignmentUseCase := assignment.NewUseCase(st.reports, st.users, st.departments, bus.publisher, m, logger, now)
	lifecycleUseCase := lifecycle.NewUseCase(st.reports, bus.publisher, m, logger, now)
	submissionUseCase := submission.NewUseCase(submission.Dependencies{
		Reports:    st.reports,
		Resolver:   assignmentUseCase,
		Locator:    enrichers.locator,
		Media:      enrichers.media,
		Classifier: enrichers.classifier,
		Quota:      ratelimiter.NewQuota(cache.store, "submissions:", cfg.Submission.DailyLimit, 24*time.Hour),
		Filter:     profanity.NewProfanityFilter(),
		Publisher:  bus.publisher,
		Metrics:    m,
		Logger:     logger,
		Now:        now,
	}, submission.Options{
		EnrichmentTimeout: cfg.Submission.EnrichmentTimeout,
		DefaultPriority:   defaultPriority,
	})

	hub := projection.NewHub(st.feed, m, logger, now)
	go func() {
		if err := hub.Run(ctx); err != nil {
			logger.Error(logging.Realtime, logging.ChangeStream, "projection hub stopped", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
	}()
	projectionUseCase := projection.NewUseCase(st.reports, hub, logger, now)

	scheduler := jobs.NewScheduler(logger)
	sweep := jobs.NewOverdueSweep(st.reports, bus.publisher, m, logger, cfg.Jobs.OverdueThreshold, now)
	if err := scheduler.Add(jobs.Job{
		Name:     "overdue-sweep",
		Schedule: cfg.Jobs.OverdueSchedule,
		Timeout:  time.Minute,
		Sub:      logging.Overdue,
		Run: func(ctx context.Context) error {
			_, err := sweep.Run(ctx)
			return err
		},
	}); err != nil {
		logger.Fatal(logging.Jobs, logging.Startup, "failed to schedule overdue sweep", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	if err := scheduler.Add(jobs.Job{
		Name:     "activity-retention",
		Schedule: "@daily",
		Timeout:  5 * time.Minute,
		Sub:      logging.Retention,
		Run:      jobs.PruneActivity(st.activity, now),
	}); err != nil {
		logger.Fatal(logging.Jobs, logging.Startup, "failed to schedule activity retention", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		scheduler.Stop(stopCtx)
	}()

	authenticator, err := auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, st.users, logger)
	if err != nil {
		logger.Fatal(logging.General, logging.Auth, "failed to configure authentication", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	if cfg.Environment == "development" {
		logDemoTokens(ctx, authenticator, st.users, logger)
	}

	checks := map[string]healthHandler.Check{}
	for name, check := range st.checks {
		checks[name] = check
	}
	for name, check := range cache.checks {
		checks[name] = check
	}
	for name, check := range bus.checks {
		checks[name] = check
	}

	handlers := api.Handlers{
		Reports: reportsHandler.NewHandler(
			submissionUseCase,
			projectionUseCase,
			lifecycleUseCase,
			assignmentUseCase,
			logger,
			cfg.HTTP.MaxUploadBytes,
			api.CheckOrigin(cfg.HTTP.AllowedOrigins),
		),
		Departments:   departmentsHandler.NewHandler(assignmentUseCase, logger),
		Activity:      activityHandler.NewHandler(st.activity, logger, now),
		Notifications: notificationsHandler.NewHandler(notifier, logger),
		Health:        healthHandler.NewHandler(checks),
	}

	limiter := ratelimiter.New(ratelimiter.Options{
		MaxRatePerSecond: cfg.RateLimiter.MaxRatePerSecond,
		MaxBurst:         cfg.RateLimiter.MaxBurst,
		Cache:            cache.store,
		CacheTTL:         cfg.RateLimiter.CacheTTL,
		SourceHeaderKey:  cfg.RateLimiter.SourceHeaderKey,
	})

	app := api.NewApplication(*cfg, handlers, logger, limiter, m, authenticator)

	mux := app.Mount()
	if err := app.Run(ctx, mux); err != nil && err != http.ErrServerClosed {
		logger.Error(logging.General, logging.Shutdown, "server stopped with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

func logDemoTokens(ctx context.Context, authenticator *auth.Authenticator, users domain.UserRepository, logger logging.Logger) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleSupervisor, domain.RoleWorker, domain.RoleCitizen} {
		list, err := users.ListByRole(ctx, role)
		if err != nil || len(list) == 0 {
			continue
		}
		token, err := authenticator.IssueToken(list[0], 24*time.Hour)
		if err != nil {
			continue
		}
		logger.Info(logging.General, logging.Auth, "development token", map[logging.ExtraKey]any{
			logging.UserID: list[0].ID,
			"role":         string(role),
			"token":        token,
		})
	}
}
