package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hilthontt/civicreport/internal/domain"
	"github.com/hilthontt/civicreport/internal/infrastructure/classifier"
	"github.com/hilthontt/civicreport/internal/infrastructure/configs"
	"github.com/hilthontt/civicreport/internal/infrastructure/events"
	"github.com/hilthontt/civicreport/internal/infrastructure/geo"
	"github.com/hilthontt/civicreport/internal/infrastructure/logging"
	"github.com/hilthontt/civicreport/internal/infrastructure/media"
	"github.com/hilthontt/civicreport/internal/infrastructure/messaging"
	"github.com/hilthontt/civicreport/internal/infrastructure/metrics"
	"github.com/hilthontt/civicreport/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/civicreport/internal/persistence/db"
	"github.com/hilthontt/civicreport/internal/persistence/memory"
	"github.com/hilthontt/civicreport/internal/persistence/repository"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type check = func(ctx context.Context) error

type stores struct {
	reports     domain.ReportRepository
	feed        domain.ChangeFeed
	users       domain.UserRepository
	departments domain.DepartmentRepository
	activity    domain.ActivityRepository
	checks      map[string]check
	close       func()
}

func openStores(ctx context.Context, cfg *configs.Config, logger logging.Logger, now func() time.Time) (*stores, error) {
	if cfg.Store == "memory" {
		users, depts := memory.DemoDirectory()
		reports := memory.NewReportStore(now)
		logger.Info(logging.General, logging.Startup, "using in-memory store", map[logging.ExtraKey]any{
			"users":       len(users),
			"departments": len(depts),
		})
		return &stores{
			reports:     reports,
			feed:        reports,
			users:       memory.NewUserStore(users...),
			departments: memory.NewDepartmentStore(depts...),
			activity:    memory.NewActivityStore(),
			checks:      map[string]check{},
			close:       func() {},
		}, nil
	}

	mongoCfg := &db.MongoConfig{
		URI:               cfg.Mongo.URI,
		Database:          cfg.Mongo.Database,
		ConnectionTimeout: cfg.Mongo.ConnectionTimeout,
	}
	client, err := db.NewMongoClient(ctx, mongoCfg, logger)
	if err != nil {
		return nil, err
	}
	database := db.GetDatabase(client, mongoCfg)

	st := &stores{
		reports:     repository.NewReportRepository(database),
		feed:        repository.NewChangeFeed(database, logger),
		users:       repository.NewUserRepository(database),
		departments: repository.NewDepartmentRepository(database),
		activity:    repository.NewActivityRepository(database),
		checks: map[string]check{
			"mongodb": func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		},
		close: func() {
			if err := db.DisconnectMongo(context.Background(), client, logger); err != nil {
				logger.Error(logging.MongoDB, logging.Shutdown, "mongodb disconnect failed", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
			}
		},
	}

	if err := db.EnsureIndexes(ctx, database); err != nil {
		st.close()
		return nil, err
	}
	if err := st.activity.EnsureIndexes(ctx); err != nil {
		st.close()
		return nil, err
	}

	if cfg.Environment == "development" {
		users, depts := memory.DemoDirectory()
		for i := range users {
			if err := st.users.Upsert(ctx, &users[i]); err != nil {
				st.close()
				return nil, fmt.Errorf("failed to seed users: %w", err)
			}
		}
		for i := range depts {
			if err := st.departments.Upsert(ctx, &depts[i]); err != nil {
				st.close()
				return nil, fmt.Errorf("failed to seed departments: %w", err)
			}
		}
	}

	return st, nil
}

type cache struct {
	store  ratelimiter.GetterSetter
	checks map[string]check
	close  func()
}

// openCache prefers redis so limits hold across instances. Without redis
// every instance counts on its own.
func openCache(ctx context.Context, cfg *configs.Config, logger logging.Logger) *cache {
	if cfg.Redis.Addr != "" {
		client, err := ratelimiter.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			store := ratelimiter.NewRedis(client, "civicreport:")
			return &cache{
				store: store,
				checks: map[string]check{
					"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
				},
				close: func() { _ = store.Close() },
			}
		}
		logger.Warn(logging.Redis, logging.Startup, "redis unavailable, counting in memory", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	store := ratelimiter.NewInMemory()
	return &cache{
		store:  store,
		checks: map[string]check{},
		close:  func() { _ = store.Close() },
	}
}

type eventBus struct {
	publisher domain.EventPublisher
	checks    map[string]check
	close     func()
}

// openEventBus publishes to RabbitMQ when configured and consumes the
// activity and notification queues in this process. Otherwise events are
// handled in-process.
func openEventBus(
	ctx context.Context,
	cfg *configs.Config,
	activity domain.ActivityRepository,
	notifier domain.Notifier,
	m *metrics.Metrics,
	logger logging.Logger,
) (*eventBus, error) {
	recorder := events.NewActivityRecorder(activity)
	dispatcher := events.NewNotificationDispatcher(notifier)

	if cfg.RabbitMQ.URI == "" {
		return &eventBus{
			publisher: events.NewLocalPublisher(m, recorder, dispatcher),
			checks:    map[string]check{},
			close:     func() {},
		}, nil
	}

	rmq, err := messaging.NewRabbitMQ(cfg.RabbitMQ.URI, logger)
	if err != nil {
		return nil, err
	}

	consumer := events.NewReportConsumer(rmq, logger)
	listen := func(queue string, handler events.Handler) {
		if err := consumer.Listen(ctx, queue, handler); err != nil && ctx.Err() == nil {
			logger.Error(logging.RabbitMQ, logging.Consume, "consumer stopped", map[logging.ExtraKey]any{
				"queue":              queue,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
	go listen(messaging.ActivityQueue, recorder)
	go listen(messaging.NotificationsQueue, dispatcher)

	return &eventBus{
		publisher: events.NewReportPublisher(rmq, m),
		checks:    map[string]check{"rabbitmq": rmq.Ping},
		close:     rmq.Close,
	}, nil
}

type enrichers struct {
	locator    domain.Locator
	media      domain.MediaStore
	classifier domain.Classifier
}

func openEnrichers(cfg *configs.Config) (*enrichers, error) {
	client := &http.Client{Timeout: cfg.Submission.EnrichmentTimeout}
	out := &enrichers{}

	if cfg.Geo.Enabled {
		out.locator = geo.NewIPAPI(cfg.Geo.BaseURL, client)
	}

	switch cfg.Media.Provider {
	case "local":
		store, err := media.NewLocalStorage(cfg.Media.Local.Dir, cfg.Media.Local.PublicURL)
		if err != nil {
			return nil, err
		}
		out.media = store
	case "cloudinary":
		store, err := media.NewCloudinary(cfg.Media.Cloudinary.BaseURL, cfg.Media.Cloudinary.CloudName, cfg.Media.Cloudinary.UploadPreset, client)
		if err != nil {
			return nil, err
		}
		out.media = store
	case "s3":
		store, err := media.NewS3(cfg.Media.S3.Region, cfg.Media.S3.Bucket, cfg.Media.S3.Prefix, cfg.Media.S3.PublicURL)
		if err != nil {
			return nil, err
		}
		out.media = store
	}

	c, err := classifier.New(cfg.Classifier.Provider, cfg.Classifier.APIKey, cfg.Classifier.Model, cfg.Classifier.BaseURL)
	if err != nil {
		return nil, err
	}
	out.classifier = c

	return out, nil
}
