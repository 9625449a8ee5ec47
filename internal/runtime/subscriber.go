package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/pkg/queue"
)

const consumerDrainTimeout = 30 * time.Second

// defaultWorkerConcurrency is how many jobs of a queue run at once unless JobsConfig overrides it.
var defaultWorkerConcurrency = map[domain.QueueName]int{
	domain.QueueCritical:         10,
	domain.QueueWhatsAppMessages: 5,
	domain.QueueDefault:          5,
	domain.QueueCBBSync:          5,
	domain.QueuePDF:              2,
	domain.QueueScraper:          2,
	domain.QueueBulk:             4,
}

// SubscriberCtx runs the worker role: one consumer per job queue plus the metrics endpoint.
type SubscriberCtx struct {
	deps *Dependencies

	shutdownChannel chan os.Signal
	queues          []string

	ctx        context.Context
	cancelFunc context.CancelFunc

	consumers     sync.WaitGroup
	metricsServer *http.Server
}

func NewSubscriber(opt ...SubscriberOption) *SubscriberCtx {
	sCtx := &SubscriberCtx{
		shutdownChannel: make(chan os.Signal, 1),
	}

	for i := range opt {
		opt[i](sCtx)
	}

	return sCtx
}

func (c *SubscriberCtx) Run() {
	c.build()
	c.start()
	watchConfig(c.ctx, c.deps.configLoader, c.deps.logger)
	notifyShutdown(c.shutdownChannel)
	c.shutdown()
}

func (c *SubscriberCtx) build() {
	c.ctx, c.cancelFunc = context.WithCancel(context.Background())

	deps, err := initializeDependencies(c.ctx, WithSubscriber(c.ctx))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	c.deps = deps
}

func (c *SubscriberCtx) start() {
	selection := c.queues
	if len(selection) == 0 {
		selection = c.deps.cfg.Queue.Queues
	}

	queues, err := consumedQueues(selection)
	if err != nil {
		c.deps.logger.Error().Err(err).Msg("invalid worker queue selection")
		c.cancelFunc()

		return
	}

	for _, name := range queues {
		if err := c.consume(name); err != nil {
			c.deps.logger.Error().Err(err).Str("queue", name.String()).Msg("failed to start consumer")
			c.cancelFunc()

			return
		}
	}

	c.serveMetrics()
}

func (c *SubscriberCtx) consume(name domain.QueueName) error {
	logger := c.deps.logger.Component("consumer")
	concurrency := workerConcurrency(c.deps.cfg.Jobs, name)

	errs, err := c.deps.Infra.QueueClient.StartConsumer(
		c.ctx,
		name.String(),
		consumerTag(c.deps.cfg.AppConfig.ServiceName, name),
		c.deps.Workers.JobWorker.ProcessMessage,
		queue.WithPrefetch(max(c.deps.cfg.Queue.PrefetchCount, concurrency)),
		queue.WithConcurrency(concurrency),
		queue.WithConsumingLogger(queue.NewZerologAdapter(logger.Logger)),
		queue.WithErrorHandler(func(err error) {
			logger.Warn().Err(err).Str("queue", name.String()).Msg("delivery handling failed")
		}),
	)
	if err != nil {
		return err
	}

	logger.Info().
		Str("queue", name.String()).
		Int("concurrency", concurrency).
		Msg("consumer started")

	c.consumers.Go(func() {
		if err := <-errs; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Str("queue", name.String()).Msg("consumer stopped")
			c.cancelFunc()
		}
	})

	return nil
}

// serveMetrics exposes the worker collectors for scraping.
func (c *SubscriberCtx) serveMetrics() {
	router := chi.NewRouter()
	router.Handle("/metrics", c.deps.Infra.Metrics.Handler())
	router.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	cfg := c.deps.cfg.HTTPServer

	c.metricsServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadTimeout,
	}

	go func() {
		if err := c.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.deps.logger.Warn().Err(err).Msg("worker metrics endpoint stopped")
		}
	}()
}

func (c *SubscriberCtx) shutdown() {
	select {
	case <-c.ctx.Done():
	case <-c.shutdownChannel:
		defer close(c.shutdownChannel)
	}

	c.deps.logger.Info().Msg("received shutdown signal")

	c.cancelFunc()

	drainCtx, cancel := context.WithTimeout(context.Background(), consumerDrainTimeout)
	defer cancel()

	drained := make(chan struct{})

	go func() {
		c.consumers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-drainCtx.Done():
		c.deps.logger.Warn().Msg("consumers did not drain in time")
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(drainCtx); err != nil {
			c.deps.logger.Error().Err(err).Msg("failed to stop metrics endpoint")
		}
	}

	c.deps.release(drainCtx)

	c.deps.logger.Info().Msg("job worker service stopped")
}

// consumedQueues resolves the configured queue names, none means every queue.
func consumedQueues(names []string) ([]domain.QueueName, error) {
	if len(names) == 0 {
		return domain.AllQueues, nil
	}

	queues := make([]domain.QueueName, 0, len(names))

	for _, name := range names {
		if name == "" {
			continue
		}

		queueName := domain.QueueName(name)
		if !queueName.Valid() {
			return nil, fmt.Errorf("unknown queue %q", name)
		}

		queues = append(queues, queueName)
	}

	if len(queues) == 0 {
		return domain.AllQueues, nil
	}

	return queues, nil
}

func workerConcurrency(jobs config.JobsConfig, name domain.QueueName) int {
	if configured := jobs.ForQueue(name.String()).Concurrency; configured > 0 {
		return configured
	}

	if concurrency, ok := defaultWorkerConcurrency[name]; ok {
		return concurrency
	}

	return 1
}

func consumerTag(service string, name domain.QueueName) string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}

	return fmt.Sprintf("%s.%s.%s.%d", service, name, host, os.Getpid())
}
