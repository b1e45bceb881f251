package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/hilthontt/civicreport/docs"
	"github.com/hilthontt/civicreport/internal/infrastructure/configs"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
	"github.com/hilthontt/civicreport/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/civicreport/internal/presentation/auth"
	activityHandler "github.com/hilthontt/civicreport/internal/presentation/handler/activity"
	departmentsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/departments"
	healthHandler "github.com/hilthontt/civicreport/internal/presentation/handler/health"
	notificationsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/notifications"
	reportsHandler "github.com/hilthontt/civicreport/internal/presentation/handler/reports"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Handlers struct {
	Reports       *reportsHandler.Handler
	Departments   *departmentsHandler.Handler
	Activity      *activityHandler.Handler
	Notifications *notificationsHandler.Handler
	Health        *healthHandler.Handler
}

type Application struct {
	config      configs.Config
	handlers    Handlers
	logger      logging.Logger
	ratelimiter ratelimiter.Limiter
	metrics     *metrics.Metrics
	auth        *auth.Authenticator
}

func NewApplication(
	config configs.Config,
	handlers Handlers,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	metrics *metrics.Metrics,
	authenticator *auth.Authenticator,
) *Application {
	return &Application{
		config:      config,
		handlers:    handlers,
		logger:      logger,
		ratelimiter: ratelimiter,
		metrics:     metrics,
		auth:        authenticator,
	}
}

// @title                       civicreport API
// @version                     1.0
// @description                 Civic issue reporting: submission, routing, lifecycle and live dashboards.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(app.loggerMiddleware)
	r.Use(middleware.Recoverer)
	if app.config.Sentry.DSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(app.prometheusMiddleware)
	r.Use(app.enableCors)

	app.metrics.Mount(r)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	if app.config.Media.Provider == "local" {
		fs := http.FileServer(http.Dir(app.config.Media.Local.Dir))
		r.Handle("/media/*", http.StripPrefix("/media/", fs))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.handlers.Health.GetHealth)
		r.Get("/healthz", app.handlers.Health.GetHealth)
		r.Get("/live", app.handlers.Health.GetHealth)
		r.Get("/ready", app.handlers.Health.GetReadiness)

		r.Group(func(r chi.Router) {
			r.Use(app.auth.Middleware)

			// Long-lived sockets stay outside the request timeout.
			r.Get("/reports/live", app.handlers.Reports.LiveReportsHandler)
			r.Get("/notifications/ws", app.handlers.Notifications.ConnectHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Timeout(60 * time.Second))
				r.Use(app.rateLimiterMiddleware)

				r.Route("/reports", func(r chi.Router) {
					r.Post("/", app.handlers.Reports.SubmitReportHandler)
					r.Get("/", app.handlers.Reports.ListReportsHandler)
					r.Get("/stats", app.handlers.Reports.StatsHandler)

					r.Route("/{reportId}", func(r chi.Router) {
						r.Get("/", app.handlers.Reports.GetReportHandler)
						r.Get("/history", app.handlers.Reports.HistoryHandler)
						r.Post("/status", app.handlers.Reports.UpdateStatusHandler)
						r.Post("/notes", app.handlers.Reports.AddNoteHandler)
						r.Post("/classification", app.handlers.Reports.ClassifyHandler)
						r.Post("/assignment", app.handlers.Reports.ReassignHandler)
						r.Post("/worker", app.handlers.Reports.AssignWorkerHandler)
					})
				})

				r.Get("/departments", app.handlers.Departments.ListDepartmentsHandler)
				r.Get("/departments/resolve/{issueType}", app.handlers.Departments.ResolveHandler)
				r.Get("/workers", app.handlers.Departments.ListWorkersHandler)
				r.Get("/activity", app.handlers.Activity.ListActivityHandler)
			})
		})
	})

	return otelhttp.NewHandler(r, "civicreport",
		otelhttp.WithFilter(func(r *http.Request) bool { return r.URL.Path != "/metrics" }),
	)
}

// Run serves mux until ctx is cancelled, then drains in-flight requests.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "shutdown requested", map[logging.ExtraKey]any{
			"addr": srv.Addr,
		})

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
