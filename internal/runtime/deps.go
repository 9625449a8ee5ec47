package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/vault/api"

	"github.com/architeacher/svc-visa-processing/internal/adapters"
	"github.com/architeacher/svc-visa-processing/internal/adapters/http/handlers"
	"github.com/architeacher/svc-visa-processing/internal/adapters/middleware"
	"github.com/architeacher/svc-visa-processing/internal/adapters/queue"
	"github.com/architeacher/svc-visa-processing/internal/adapters/repos"
	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/usecases"
)

const webhooksPathPrefix = "/api/v1/webhooks/"

type (
	Applications struct {
		Web        *usecases.WebApplication
		Publisher  *usecases.PublisherApplication
		Subscriber *usecases.SubscriberApplication
	}

	ApplicationWorkers struct {
		OutboxProcessor ports.BackgroundProcessor
		JobWorker       ports.MessageHandler
	}

	TracerShutdownFunc func(ctx context.Context) error

	InfrastructureDeps struct {
		HTTPServer          *http.Server
		SecretStorageClient *api.Client
		StorageClient       *infrastructure.Storage
		QueueClient         infrastructure.Queue
		CacheClient         *infrastructure.RedisClient
		SearchClient        *elasticsearch.Client
		AWS                 *infrastructure.AWSClients
		Metrics             infrastructure.Metrics
	}

	// Clients are the adapters of the third-party services a role talks to.
	Clients struct {
		Messaging ports.MessagingClient
		Airtable  ports.AirtableClient
		Renderer  ports.PDFRenderer
		Documents ports.DocumentStore
		Mailer    ports.Mailer
		Alerter   ports.Alerter
		Scraper   ports.PortalScraper
		LogIndex  ports.LogIndex
	}

	Repos struct {
		SecretStorageRepo ports.SecretsRepository
		CacheRepo         *repos.CacheRepository
		OrderRepo         ports.OrderRepository
		ApiKeyRepo        ports.ApiKeyRepository
		WorkflowRepo      ports.WorkflowRepository
		LogEntryRepo      ports.LogEntryRepository
		ScraperJobRepo    ports.ScraperJobRepository
		OutboxRepo        ports.OutboxRepository
	}

	Dependencies struct {
		Apps    Applications
		Workers ApplicationWorkers

		cfg          *config.ServiceConfig
		configLoader *config.Loader

		logger infrastructure.Logger

		Infra    InfrastructureDeps
		Clients  Clients
		Repos    Repos
		JobQueue *queue.JobQueue
		Jobs     service.JobFactory

		tracerShutdownFunc TracerShutdownFunc
		secretVersion      uint
	}
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*Dependencies, error) {
	cfg, err := config.Init()
	if err != nil {
		return nil, fmt.Errorf("unable to load service configuration: %w", err)
	}

	appLogger := infrastructure.New(cfg.Logging)

	appLogger.Info().Msg("initializing dependencies...")

	deps := &Dependencies{
		cfg:    cfg,
		logger: appLogger,
		Jobs:   service.NewJobFactory(cfg.Jobs, cfg.Outbox),
	}

	// Start with default options and append any additional options.
	options := append(defaultOptions(ctx), opts...)

	for _, opt := range options {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	deps.logger.Info().Msg("dependencies initialized successfully")

	return deps, nil
}

func initHTTPServer(
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
	reqHandler handlers.ServerInterface,
	auth handlers.RouteAuth,
) (*http.Server, error) {
	logger.Info().Msg("creating HTTP server...")

	router := chi.NewRouter()

	globalMiddlewares, err := initGlobalMiddlewares(cfg, logger, metrics)
	if err != nil {
		return nil, err
	}

	router.Use(globalMiddlewares...)
	router.NotFound(middleware.NotFoundHandler)
	router.MethodNotAllowed(middleware.MethodNotAllowedHandler)
	router.Handle("/metrics", metrics.Handler())

	routeMiddlewares, err := initRouteMiddlewares(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Spin up the routes of the OpenAPI document.
	handlers.HandlerWithOptions(reqHandler, handlers.ChiServerOptions{
		BaseURL:          "",
		BaseRouter:       router,
		Middlewares:      routeMiddlewares,
		Auth:             auth,
		ErrorHandlerFunc: adapters.ParamErrorHandler,
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.HTTPServer.Host, strconv.Itoa(cfg.HTTPServer.Port)),
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	logger.Info().Str("addr", server.Addr).Msg("HTTP server created")

	return server, nil
}

// initGlobalMiddlewares returns the middlewares every request passes through, outermost first.
func initGlobalMiddlewares(
	cfg *config.ServiceConfig,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
) ([]func(http.Handler) http.Handler, error) {
	middlewares := []func(http.Handler) http.Handler{
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.Recoverer(logger),
		chimiddleware.Timeout(cfg.HTTPServer.RequestTimeout),
		middleware.Tracer(),
		middleware.NewSecurityHeadersMiddleware().Middleware,
	}

	if cfg.Logging.AccessLog.Enabled {
		logFilter := middleware.NewAccessLogFilter(cfg.Logging.AccessLog.LogHealthChecks, cfg.Logging.AccessLog.QuietPaths)
		accessLogger := middleware.NewAccessLogger(logger.Logger, cfg.Logging.AccessLog.IncludeQueryParams)

		middlewares = append(middlewares, logFilter.Middleware, accessLogger.Middleware)
		logger.Info().
			Bool("log_health_checks", cfg.Logging.AccessLog.LogHealthChecks).
			Strs("quiet_paths", cfg.Logging.AccessLog.QuietPaths).
			Msg("structured access logging enabled")
	}

	if cfg.Telemetry.Metrics.Enabled {
		middlewares = append(middlewares, middleware.NewMetricsMiddleware(metrics).Middleware)
		logger.Info().Msg("HTTP metrics collection enabled")
	}

	middlewares = append(middlewares,
		middleware.NewAPIVersionMiddleware(cfg.AppConfig.APIVersion, cfg.AppConfig.ServiceVersion).Middleware,
	)

	if cfg.ThrottledRateLimiting.Enabled {
		rateLimitMiddleware, err := middleware.NewThrottledRateLimitingMiddleware(cfg.ThrottledRateLimiting, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}

		middlewares = append(middlewares, rateLimitMiddleware.Middleware)
		logger.Info().Msg("rate limiting enabled")
	}

	return middlewares, nil
}

// initRouteMiddlewares returns the middlewares that run per operation, after authentication.
func initRouteMiddlewares(cfg *config.ServiceConfig, logger infrastructure.Logger) ([]handlers.MiddlewareFunc, error) {
	if cfg.Auth.Enabled {
		logger.Info().Msg("authentication is enabled")
	}

	if !cfg.HTTPServer.ValidateRequest {
		return nil, nil
	}

	swagger, err := handlers.GetSwagger()
	if err != nil {
		return nil, fmt.Errorf("error loading OpenAPI document: %w", err)
	}

	swagger.Servers = nil

	requestValidator, err := middleware.OapiRequestValidatorWithOptions(logger, swagger, &middleware.RequestValidatorOptions{
		Options: openapi3filter.Options{
			MultiError: false,
		},
		ErrorHandler:          middleware.RequestValidationErrHandler,
		SilenceServersWarning: true,
		// Partner payloads are checked against their own JSON schemas.
		Skipper: middleware.SkipPathPrefixes(webhooksPathPrefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request validator: %w", err)
	}

	return []handlers.MiddlewareFunc{requestValidator}, nil
}
