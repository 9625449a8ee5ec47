package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/vault/api"
	"go.opentelemetry.io/otel"

	"github.com/architeacher/svc-visa-processing/internal/adapters"
	"github.com/architeacher/svc-visa-processing/internal/adapters/airtable"
	"github.com/architeacher/svc-visa-processing/internal/adapters/cbb"
	"github.com/architeacher/svc-visa-processing/internal/adapters/conditions"
	"github.com/architeacher/svc-visa-processing/internal/adapters/middleware"
	"github.com/architeacher/svc-visa-processing/internal/adapters/notify"
	"github.com/architeacher/svc-visa-processing/internal/adapters/outbox"
	"github.com/architeacher/svc-visa-processing/internal/adapters/pdf"
	"github.com/architeacher/svc-visa-processing/internal/adapters/processors"
	"github.com/architeacher/svc-visa-processing/internal/adapters/queue"
	"github.com/architeacher/svc-visa-processing/internal/adapters/repos"
	"github.com/architeacher/svc-visa-processing/internal/adapters/scraper"
	"github.com/architeacher/svc-visa-processing/internal/adapters/search"
	"github.com/architeacher/svc-visa-processing/internal/adapters/storage"
	"github.com/architeacher/svc-visa-processing/internal/adapters/webhooks"
	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/backoff"
	"github.com/architeacher/svc-visa-processing/internal/usecases"
)

const (
	celProgramCacheSize = 256
	healthProbeTimeout  = 2 * time.Second
)

type (
	DependencyOption func(*Dependencies) error
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithSecretStorage(),
		WithSecretStorageRepo(),
		WithConfigLoader(ctx),
		WithStorage(),
		WithCache(ctx),
		WithMetrics(ctx),
		WithDataRepos(),
		WithTracing(ctx),
	}
}

// WithSecretStorage initializes the Vault client using ENV config.
func WithSecretStorage() DependencyOption {
	return func(d *Dependencies) error {
		cfg := d.cfg.SecretStorage

		vaultConfig := api.DefaultConfig()
		vaultConfig.Address = cfg.Address
		vaultConfig.Timeout = cfg.Timeout

		if cfg.TLSSkipVerify {
			tlsConfig := &api.TLSConfig{
				Insecure: true,
			}
			if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
				return fmt.Errorf("failed to configure TLS: %w", err)
			}
		}

		client, err := api.NewClient(vaultConfig)
		if err != nil {
			return fmt.Errorf("failed to create Vault client: %w", err)
		}

		// Skip namespace configuration for dev mode vault
		if cfg.Namespace != "" {
			client.SetNamespace(cfg.Namespace)
		}

		d.Infra.SecretStorageClient = client

		return nil
	}
}

func WithSecretStorageRepo() DependencyOption {
	return func(d *Dependencies) error {
		d.Repos.SecretStorageRepo = repos.NewVaultRepository(d.Infra.SecretStorageClient)

		return nil
	}
}

func WithConfigLoader(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		d.configLoader = config.NewLoader(d.cfg, d.Repos.SecretStorageRepo, d.secretVersion)

		if !d.cfg.SecretStorage.Enabled {
			d.logger.Info().Msg("secret storage is disabled, skipping vault configuration loading")

			return nil
		}

		version, err := d.configLoader.Load(ctx)
		if err != nil {
			return fmt.Errorf("unable to load service configuration: %w", err)
		}

		d.secretVersion = version

		return nil
	}
}

func WithStorage() DependencyOption {
	return func(d *Dependencies) error {
		store, err := infrastructure.NewStorage(d.cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}

		if _, err := store.GetDB(); err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}

		d.Infra.StorageClient = store

		return nil
	}
}

// WithCache connects to Redis. An unreachable Redis is not fatal, the cache
// layer falls through to Postgres until it comes back.
func WithCache(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		cacheClient := infrastructure.NewRedisClient(d.cfg.Cache, d.logger)

		cacheCtx, cancel := context.WithTimeout(ctx, d.cfg.Cache.DialTimeout)
		defer cancel()

		if err := cacheClient.Ping(cacheCtx); err != nil {
			d.logger.Error().Err(err).Msg("failed to connect to cache, continuing with a cold cache")
		} else {
			d.logger.Info().Msg("cache connection established")
		}

		d.Infra.CacheClient = cacheClient

		return nil
	}
}

func WithDataRepos() DependencyOption {
	return func(d *Dependencies) error {
		db, err := d.Infra.StorageClient.GetDB()
		if err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}

		cacheCfg := d.cfg.Cache

		d.Repos.CacheRepo = repos.NewCacheRepository(d.Infra.CacheClient.Client, cacheCfg, d.Infra.Metrics, d.logger)
		d.Repos.OrderRepo = repos.NewCachedOrderRepository(
			repos.NewOrderRepository(db),
			d.Repos.CacheRepo,
			cacheCfg.DefaultExpiry,
			cacheCfg.ListExpiry,
			d.logger,
		)
		d.Repos.ApiKeyRepo = repos.NewCachedApiKeyRepository(
			repos.NewApiKeyRepository(db),
			d.Repos.CacheRepo,
			cacheCfg.DefaultExpiry,
			d.logger,
		)
		d.Repos.WorkflowRepo = repos.NewCachedWorkflowRepository(
			repos.NewWorkflowRepository(db),
			d.Repos.CacheRepo,
			cacheCfg.DefaultExpiry,
			cacheCfg.ListExpiry,
			d.logger,
		)
		d.Repos.LogEntryRepo = repos.NewLogEntryRepository(db)
		d.Repos.ScraperJobRepo = repos.NewScraperJobRepository(db)
		d.Repos.OutboxRepo = repos.NewOutboxRepository(db, d.cfg.Outbox.ClaimTimeout)

		return nil
	}
}

func WithMetrics(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		metrics, err := infrastructure.NewMetrics(ctx, *d.cfg, d.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}

		d.Infra.Metrics = metrics

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.Telemetry.Traces.Enabled {
			d.tracerShutdownFunc = func(_ context.Context) error {
				return nil
			}

			return nil
		}

		tracerShutdownFunc, err := infrastructure.InitGlobalTracer(ctx, d.cfg.Telemetry, d.cfg.AppConfig)
		if err != nil {
			d.logger.Error().Err(err).Msg("failed to initialize global tracer")

			return err
		}

		d.tracerShutdownFunc = tracerShutdownFunc

		return nil
	}
}

// WithQueue connects to RabbitMQ and declares the queues of every job queue.
func WithQueue() DependencyOption {
	return func(d *Dependencies) error {
		if d.Infra.QueueClient != nil {
			return nil
		}

		queueClient := infrastructure.NewQueue(d.cfg.Queue, d.logger)

		if err := queueClient.Connect(); err != nil {
			return fmt.Errorf("failed to connect to queue: %w", err)
		}

		if err := queue.DeclareTopology(queueClient, d.cfg.Queue.ExchangeName, d.cfg.Queue.MaxPriority); err != nil {
			return fmt.Errorf("failed to declare queue topology: %w", err)
		}

		d.Infra.QueueClient = queueClient
		d.JobQueue = queue.NewJobQueue(queueClient, d.cfg.Queue.ExchangeName)

		return nil
	}
}

// WithSearch creates the Elasticsearch log index, log search falls back to Postgres without it.
func WithSearch() DependencyOption {
	return func(d *Dependencies) error {
		if !d.cfg.Search.Enabled {
			d.logger.Info().Msg("search is disabled, log search uses postgres")

			return nil
		}

		client, err := infrastructure.NewElasticsearch(d.cfg.Search)
		if err != nil {
			return err
		}

		d.Infra.SearchClient = client
		d.Clients.LogIndex = search.NewLogIndex(client, d.cfg.Search.LogIndex, d.logger)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *Dependencies) error {
		for _, opt := range []DependencyOption{WithQueue(), WithSearch()} {
			if err := opt(d); err != nil {
				return err
			}
		}

		d.Clients.Airtable = airtable.NewClient(d.cfg.Airtable, d.logger)

		services, err := d.webServices()
		if err != nil {
			return err
		}

		d.Apps.Web = usecases.NewWebApplication(
			services,
			d.logger,
			otel.GetTracerProvider(),
			adapters.NewMetricsAdapter(d.Infra.Metrics),
		)

		keyService := infrastructure.NewAdminKeyService(
			d.cfg.Auth,
			d.Repos.SecretStorageRepo,
			d.logger,
		)

		authenticator := middleware.NewAuthenticator(
			middleware.NewPasetoAuthMiddleware(d.cfg.Auth, d.logger, keyService),
			d.Apps.Web.Queries.AuthenticateApiKeyQueryHandler,
		)

		requestHandler := adapters.NewRequestHandler(d.Apps.Web, d.logger)

		httpServer, err := initHTTPServer(d.cfg, d.logger, d.Infra.Metrics, requestHandler, authenticator)
		if err != nil {
			return err
		}

		d.Infra.HTTPServer = httpServer

		return nil
	}
}

func (d *Dependencies) webServices() (usecases.Services, error) {
	db, err := d.Infra.StorageClient.GetDB()
	if err != nil {
		return usecases.Services{}, fmt.Errorf("failed to get database connection: %w", err)
	}

	evaluator, err := conditions.NewCELEvaluator(celProgramCacheSize, d.logger)
	if err != nil {
		return usecases.Services{}, fmt.Errorf("failed to create condition evaluator: %w", err)
	}

	parser, err := webhooks.NewSchemaValidator()
	if err != nil {
		return usecases.Services{}, fmt.Errorf("failed to load webhook schemas: %w", err)
	}

	// Left as a nil interface when no secret is configured, the hook then rejects every call.
	var verifier ports.WebhookVerifier

	if d.cfg.Auth.SupabaseHookSecret != "" {
		signatureVerifier, err := webhooks.NewSignatureVerifier(d.cfg.Auth.SupabaseHookSecret, d.cfg.Auth.HookTolerance)
		if err != nil {
			return usecases.Services{}, fmt.Errorf("failed to create hook signature verifier: %w", err)
		}

		verifier = signatureVerifier
	}

	workflows := service.NewWorkflowService(d.Repos.WorkflowRepo, evaluator, d.Jobs, d.logger)
	orders := service.NewOrderService(
		db,
		d.Repos.OrderRepo,
		d.Repos.OutboxRepo,
		workflows,
		d.Jobs,
		d.cfg.PDFRenderer.EmailOnReady,
		d.logger,
	)

	return usecases.Services{
		Orders:    orders,
		ApiKeys:   service.NewApiKeyService(d.Repos.ApiKeyRepo, d.cfg.Auth.APIKeyPepper, d.logger),
		Workflows: workflows,
		Webhooks:  service.NewWebhookService(parser, verifier, orders, d.JobQueue, d.Jobs, d.logger),
		Batch: service.NewBatchOperationsService(
			d.Repos.OrderRepo,
			d.Repos.CacheRepo,
			d.JobQueue,
			d.Jobs,
			d.cfg.Jobs,
			d.logger,
		),
		Admin: service.NewAdminService(
			d.Repos.OrderRepo,
			d.Repos.LogEntryRepo,
			d.Repos.ScraperJobRepo,
			d.Clients.LogIndex,
			d.JobQueue,
			d.JobQueue,
			d.Clients.Airtable,
			adapters.NewHealthChecker(d.cfg.AppConfig.ServiceVersion, healthProbeTimeout, d.healthProbes()...),
			d.Jobs,
			d.logger,
		),
	}, nil
}

// healthProbes checks Postgres as the only critical dependency, the others degrade the service.
func (d *Dependencies) healthProbes() []ports.HealthProbe {
	probes := []ports.HealthProbe{
		adapters.NewProbe("postgres", true, d.Infra.StorageClient.Ping),
		adapters.NewProbe("redis", false, d.Infra.CacheClient.Ping),
		adapters.NewProbe("rabbitmq", false, func(_ context.Context) error {
			if !d.Infra.QueueClient.IsConnected() {
				return errors.New("rabbitmq connection is closed")
			}

			return nil
		}),
	}

	if d.Clients.LogIndex != nil {
		probes = append(probes, adapters.NewProbe("elasticsearch", false, d.Clients.LogIndex.Ping))
	}

	return probes
}

func WithPublisher() DependencyOption {
	return func(d *Dependencies) error {
		if err := WithQueue()(d); err != nil {
			return err
		}

		publisherService := service.NewPublisherService(
			d.Repos.OutboxRepo,
			d.JobQueue,
			backoff.NewExponentialStrategy(d.cfg.Backoff),
			d.logger,
			d.Infra.Metrics,
		)

		d.Apps.Publisher = usecases.NewPublisherApplication(
			publisherService,
			d.logger,
			otel.GetTracerProvider(),
			adapters.NewMetricsAdapter(d.Infra.Metrics),
		)

		d.Workers.OutboxProcessor = outbox.NewProcessor(
			d.Apps.Publisher,
			d.cfg.Outbox,
			d.logger,
		)

		return nil
	}
}

func WithSubscriber(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		for _, opt := range []DependencyOption{WithQueue(), WithSearch(), WithWorkerClients(ctx)} {
			if err := opt(d); err != nil {
				return err
			}
		}

		registry := processors.NewRegistry(processors.Dependencies{
			Orders:      d.Repos.OrderRepo,
			ScraperJobs: d.Repos.ScraperJobRepo,
			Messaging:   d.Clients.Messaging,
			Renderer:    d.Clients.Renderer,
			Documents:   d.Clients.Documents,
			Mailer:      d.Clients.Mailer,
			Alerter:     d.Clients.Alerter,
			Scraper:     d.Clients.Scraper,
			Cache:       d.Repos.CacheRepo,
			Cursors:     d.Repos.CacheRepo,
			Airtable:    d.Clients.Airtable,
			Queue:       d.JobQueue,
			Jobs:        d.Jobs,
			Logger:      d.logger,
		})

		subscriberService := service.NewSubscriberService(
			registry,
			d.Repos.LogEntryRepo,
			d.Clients.LogIndex,
			d.JobQueue,
			d.Jobs,
			d.logger,
			d.Infra.Metrics,
		)

		d.Apps.Subscriber = usecases.NewSubscriberApplication(
			subscriberService,
			d.logger,
			otel.GetTracerProvider(),
			adapters.NewMetricsAdapter(d.Infra.Metrics),
		)

		d.Workers.JobWorker = queue.NewJobWorker(d.Apps.Subscriber, d.logger)

		return nil
	}
}

// WithWorkerClients creates the clients of the services the processors call.
func WithWorkerClients(ctx context.Context) DependencyOption {
	return func(d *Dependencies) error {
		awsClients, err := infrastructure.NewAWSClients(ctx, d.cfg.DocumentStorage, d.cfg.Notifications)
		if err != nil {
			return fmt.Errorf("failed to initialize AWS clients: %w", err)
		}

		d.Infra.AWS = awsClients

		d.Clients.Messaging = cbb.NewClient(d.cfg.CBB, d.logger)
		d.Clients.Airtable = airtable.NewClient(d.cfg.Airtable, d.logger)
		d.Clients.Renderer = pdf.NewRenderer(d.cfg.PDFRenderer, d.logger)
		d.Clients.Documents = storage.NewS3DocumentStore(awsClients.S3, d.cfg.DocumentStorage, d.logger)
		d.Clients.Mailer = notify.NewSESMailer(awsClients.SES, d.cfg.Notifications, d.logger)
		d.Clients.Alerter = notify.NewSNSAlerter(awsClients.SNS, d.cfg.Notifications, d.logger)
		d.Clients.Scraper = scraper.NewPortalScraper(d.cfg.Scraper, d.logger)

		return nil
	}
}
