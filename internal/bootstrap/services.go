package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/crosspost-labs/publisher-go/config"
	"github.com/crosspost-labs/publisher-go/internal/adapters/credentials"
	"github.com/crosspost-labs/publisher-go/internal/adapters/platform"
	"github.com/crosspost-labs/publisher-go/internal/adapters/queueloop"
	"github.com/crosspost-labs/publisher-go/internal/adapters/reaper"
	"github.com/crosspost-labs/publisher-go/internal/core"
	"github.com/crosspost-labs/publisher-go/internal/data"
	"github.com/crosspost-labs/publisher-go/internal/observability/notify"
	"github.com/crosspost-labs/publisher-go/internal/observability/statsd"
	"github.com/crosspost-labs/publisher-go/internal/service"
)

// ServiceDeps holds the external dependencies services are built from.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB               // required for the postgres backend
	RedisClient redis.UniversalClient // required for the redis and postgres backends
	Logger      *slog.Logger
	NotifySinks []notify.Sink
}

// ServiceContainer holds the wired services and runners.
type ServiceContainer struct {
	Coordinator *service.CoordinatorService
	Dispatcher  *service.DispatcherService
	Tracker     *service.TrackerService
	QueueLoop   *queueloop.Runner
	Reaper      *reaper.Runner
	Metrics     statsd.Sink

	store   core.JobStore
	queue   core.ScheduleQueue
	deleter core.ExpiredJobDeleter
}

// NewServices wires the full service graph from configuration.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sink, err := buildMetricsSink(cfg, logger)
	if err != nil {
		return nil, err
	}

	storage, err := buildStorage(deps)
	if err != nil {
		return nil, err
	}

	registry := buildRegistry(cfg, logger)
	creds := credentials.NewStaticProvider(cfg.Platforms.CredentialMap())

	notifier := service.NewStatusNotifyService(service.StatusNotifyOptions{
		Sinks:   deps.NotifySinks,
		Timeout: cfg.Publisher.NotifyTimeout,
		Logger:  logger,
	})

	tracker := service.NewTrackerService(service.TrackerServiceOptions{
		Store:    storage.store,
		Notifier: notifier,
		Logger:   logger,
	})

	retries := service.NewRetryService(service.RetryServiceOptions{
		Policy: service.RetryPolicy{
			BaseDelay: cfg.Publisher.RetryBaseDelay,
			MaxDelay:  cfg.Publisher.RetryMaxDelay,
		},
		Queue:   storage.queue,
		Tracker: tracker,
		Logger:  logger,
	})

	dispatcher := service.NewDispatcherService(service.DispatcherServiceOptions{
		Registry:    registry,
		Credentials: creds,
		Content:     storage.resolver,
		Tracker:     tracker,
		Retries:     retries,
		Config: service.DispatcherConfig{
			MaxConcurrent:    cfg.Publisher.MaxConcurrent,
			RateLimitWaitMax: cfg.Publisher.RateLimitWaitMax,
		},
		Logger:  logger,
		Metrics: sink,
	})

	coordinator := service.NewCoordinatorService(service.CoordinatorServiceOptions{
		Store:             storage.store,
		Queue:             storage.queue,
		ContentCache:      storage.cacher,
		Dispatcher:        dispatcher,
		Tracker:           tracker,
		Registry:          registry,
		Logger:            logger,
		Metrics:           sink,
		DefaultMaxRetries: cfg.Publisher.MaxRetries,
	})

	container := &ServiceContainer{
		Coordinator: coordinator,
		Dispatcher:  dispatcher,
		Tracker:     tracker,
		Metrics:     sink,
		store:       storage.store,
		queue:       storage.queue,
		deleter:     storage.deleter,
	}

	if err := container.buildRunners(cfg, logger, sink); err != nil {
		return nil, err
	}
	return container, nil
}

func (c *ServiceContainer) buildRunners(cfg *config.AppConfig, logger *slog.Logger, sink statsd.Sink) error {
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return err
	}

	if services[config.ServiceModeQueueLoop] {
		runner, err := queueloop.NewRunner(queueloop.RunnerOptions{
			Queue:         c.queue,
			Store:         c.store,
			Dispatcher:    c.Dispatcher,
			Tracker:       c.Tracker,
			Interval:      cfg.Publisher.QueueInterval,
			BatchSize:     cfg.Publisher.QueueBatchSize,
			MaxConcurrent: cfg.Publisher.MaxConcurrent,
			Logger:        logger,
			Metrics:       sink,
		})
		if err != nil {
			return fmt.Errorf("wire queue loop: %w", err)
		}
		c.QueueLoop = runner
	}

	if services[config.ServiceModeReaper] {
		if c.deleter == nil {
			// Redis expires terminal jobs natively.
			logger.Info("reaper not needed for this store backend",
				"backend", cfg.Store.Backend)
			return nil
		}
		runner, err := reaper.NewRunner(reaper.RunnerOptions{
			Deleter:   c.deleter,
			Retention: cfg.Store.CompletedTTL,
			Interval:  cfg.Store.ReapInterval,
			BatchSize: cfg.Store.ReapBatchSize,
			Logger:    logger,
			Metrics:   sink,
		})
		if err != nil {
			return fmt.Errorf("wire reaper: %w", err)
		}
		c.Reaper = runner
	}

	return nil
}

// storage bundles the persistence ports for one backend choice.
type storage struct {
	store    core.JobStore
	queue    core.ScheduleQueue
	resolver core.ContentResolver
	cacher   core.ContentCacher
	deleter  core.ExpiredJobDeleter
}

func buildStorage(deps *ServiceDeps) (*storage, error) {
	cfg := deps.Config

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		store := data.NewMemoryJobStore(data.MemoryJobStoreOptions{
			CompletedTTL: cfg.Store.CompletedTTL,
		})
		content := data.NewMemoryContentStore()
		return &storage{
			store:    store,
			queue:    data.NewMemoryScheduleQueue(),
			resolver: content,
			cacher:   content,
			deleter:  store,
		}, nil

	case config.StoreBackendRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("redis client is required for the %s backend", cfg.Store.Backend)
		}
		cache := data.NewRedisContentCache(deps.RedisClient, cfg.Publisher.ContentTTL)
		return &storage{
			store: data.NewRedisJobStore(data.RedisJobStoreOptions{
				Client:       deps.RedisClient,
				CompletedTTL: cfg.Store.CompletedTTL,
			}),
			queue:    data.NewRedisScheduleQueue(deps.RedisClient),
			resolver: cache,
			cacher:   cache,
		}, nil

	case config.StoreBackendPostgres:
		if deps.DB == nil {
			return nil, fmt.Errorf("database connection is required for the %s backend", cfg.Store.Backend)
		}
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("redis client is required for the %s backend (queue and content cache)", cfg.Store.Backend)
		}
		store := data.NewPostgresJobStore(deps.DB)
		cache := data.NewRedisContentCache(deps.RedisClient, cfg.Publisher.ContentTTL)
		return &storage{
			store:    store,
			queue:    data.NewRedisScheduleQueue(deps.RedisClient),
			resolver: cache,
			cacher:   cache,
			deleter:  store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func buildMetricsSink(cfg *config.AppConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.Observability.Metrics.IsEnabled() {
		return statsd.Nop{}, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.Observability.Metrics.StatsdAddress,
		Prefix:  "publisher",
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init statsd client: %w", err)
	}
	return client, nil
}

func buildRegistry(cfg *config.AppConfig, logger *slog.Logger) *platform.Registry {
	var clients []core.PlatformClient
	p := cfg.Platforms

	if p.Twitter.Enabled {
		clients = append(clients, platform.NewTwitterClient(platform.ClientConfig{
			BaseURL:           p.Twitter.BaseURL,
			RequestsPerSecond: p.Twitter.RequestsPerSecond,
		}, logger))
	}
	if p.Facebook.Enabled {
		clients = append(clients, platform.NewFacebookClient(platform.ClientConfig{
			BaseURL:           p.Facebook.BaseURL,
			RequestsPerSecond: p.Facebook.RequestsPerSecond,
		}, p.FacebookPageID, logger))
	}
	if p.LinkedIn.Enabled {
		clients = append(clients, platform.NewLinkedInClient(platform.ClientConfig{
			BaseURL:           p.LinkedIn.BaseURL,
			RequestsPerSecond: p.LinkedIn.RequestsPerSecond,
		}, p.LinkedInAuthorURN, logger))
	}
	if p.Instagram.Enabled {
		clients = append(clients, platform.NewInstagramClient(platform.ClientConfig{
			BaseURL:           p.Instagram.BaseURL,
			RequestsPerSecond: p.Instagram.RequestsPerSecond,
		}, p.InstagramAccountID, logger))
	}

	return platform.NewRegistry(clients...)
}
