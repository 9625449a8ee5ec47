package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/architeacher/svc-visa-processing/internal/config"
)

const (
	metricsNamespace = "visa_processing"
)

type (
	Metrics interface {
		RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64)
		RecordJob(ctx context.Context, queue, name, outcome string, duration time.Duration)
		RecordOutboxEvent(ctx context.Context, success bool, priority string)
		RecordCacheEvent(ctx context.Context, namespace, event string)
		RecordExternalCall(ctx context.Context, service, operation string, success bool, duration time.Duration)
		RecordWebhook(ctx context.Context, source string, accepted bool)
		RecordUseCase(ctx context.Context, kind, action, outcome string)
		RecordUseCaseDuration(ctx context.Context, kind, action string, duration time.Duration)
		Handler() http.Handler
		Shutdown(ctx context.Context) error
	}

	OTELMetrics struct {
		meterProvider *sdkmetric.MeterProvider
		meter         metric.Meter
		logger        Logger

		httpRequestTotal     metric.Int64Counter
		httpRequestDuration  metric.Float64Histogram
		httpRequestSize      metric.Int64Histogram
		httpResponseSize     metric.Int64Histogram
		jobTotal             metric.Int64Counter
		jobDuration          metric.Float64Histogram
		outboxProcessedTotal metric.Int64Counter
		outboxErrorTotal     metric.Int64Counter
		cacheEventTotal      metric.Int64Counter
		externalCallTotal    metric.Int64Counter
		externalCallDuration metric.Float64Histogram
		webhookTotal         metric.Int64Counter
		useCaseTotal         metric.Int64Counter
		useCaseDuration      metric.Float64Histogram
	}
)

func NewMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (Metrics, error) {
	if !cfg.Telemetry.Metrics.Enabled {
		logger.Info().Msg("metrics disabled, using NoOp implementation")

		return &NoOpMetrics{}, nil
	}

	return NewOTELMetrics(ctx, cfg, logger)
}

func NewOTELMetrics(ctx context.Context, cfg config.ServiceConfig, logger Logger) (*OTELMetrics, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.AppConfig.ServiceName),
			semconv.ServiceVersionKey.String(cfg.AppConfig.ServiceVersion),
			semconv.ServiceInstanceIDKey.String(cfg.AppConfig.CommitSHA),
			semconv.DeploymentEnvironmentKey.String(cfg.AppConfig.Env),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	options := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if cfg.Telemetry.OtelGRPCHost != "" {
		endpoint := fmt.Sprintf("%s:%s", cfg.Telemetry.OtelGRPCHost, cfg.Telemetry.OtelGRPCPort)

		conn, err := grpc.NewClient(
			endpoint,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create gRPC connection to OTEL collector: %w", err)
		}

		exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}

		options = append(options, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))

		logger.Info().Str("otel_endpoint", endpoint).Msg("OTLP metric exporter configured")
	}

	if cfg.Telemetry.Metrics.PrometheusEnabled {
		exporter, err := otelprom.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		options = append(options, sdkmetric.WithReader(exporter))
	}

	meterProvider := sdkmetric.NewMeterProvider(options...)

	otel.SetMeterProvider(meterProvider)

	meter := meterProvider.Meter(
		metricsNamespace,
		metric.WithInstrumentationVersion(cfg.AppConfig.ServiceVersion),
	)

	provider := &OTELMetrics{
		meterProvider: meterProvider,
		meter:         meter,
		logger:        logger.Component("metrics"),
	}

	if err := provider.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	logger.Info().Msg("OTEL metrics provider initialized successfully")

	return provider, nil
}

func (om *OTELMetrics) initializeMetrics() error {
	var errs []error

	counter := func(name, description, unit string) metric.Int64Counter {
		c, err := om.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s counter: %w", name, err))
		}

		return c
	}

	histogram := func(name, description, unit string) metric.Float64Histogram {
		h, err := om.meter.Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to create %s histogram: %w", name, err))
		}

		return h
	}

	om.httpRequestTotal = counter("http_requests_total", "Total number of HTTP requests", "{request}")
	om.httpRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds", "s")

	var err error

	om.httpRequestSize, err = om.meter.Int64Histogram(
		"http_request_size_bytes",
		metric.WithDescription("HTTP request size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to create http_request_size_bytes histogram: %w", err))
	}

	om.httpResponseSize, err = om.meter.Int64Histogram(
		"http_response_size_bytes",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to create http_response_size_bytes histogram: %w", err))
	}

	om.jobTotal = counter("jobs_total", "Total number of job runs by outcome", "{job}")
	om.jobDuration = histogram("job_duration_seconds", "Job run duration in seconds", "s")
	om.outboxProcessedTotal = counter("outbox_processed_total", "Total number of outbox events relayed", "{event}")
	om.outboxErrorTotal = counter("outbox_errors_total", "Total number of outbox relay errors", "{error}")
	om.cacheEventTotal = counter("cache_events_total", "Cache hits, misses, writes and errors", "{event}")
	om.externalCallTotal = counter("external_calls_total", "Calls to third party services", "{call}")
	om.externalCallDuration = histogram("external_call_duration_seconds", "Third party call duration in seconds", "s")
	om.webhookTotal = counter("webhooks_total", "Inbound webhooks by source", "{webhook}")
	om.useCaseTotal = counter("usecase_runs_total", "Command and query runs by outcome", "{run}")
	om.useCaseDuration = histogram("usecase_duration_seconds", "Command and query duration in seconds", "s")

	return errors.Join(errs...)
}

func (om *OTELMetrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	attrs := metric.WithAttributes(
		HTTPMethodAttr(method),
		HTTPPathAttr(path),
		HTTPStatusCodeAttr(statusCode),
	)

	om.httpRequestTotal.Add(ctx, 1, attrs)
	om.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
	om.httpRequestSize.Record(ctx, requestSize,
		metric.WithAttributes(
			HTTPMethodAttr(method),
			HTTPPathAttr(path),
		),
	)
	om.httpResponseSize.Record(ctx, responseSize, attrs)
}

func (om *OTELMetrics) RecordJob(ctx context.Context, queue, name, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		QueueAttr(queue),
		JobNameAttr(name),
		OutcomeAttr(outcome),
	)

	om.jobTotal.Add(ctx, 1, attrs)
	om.jobDuration.Record(ctx, duration.Seconds(), attrs)
}

func (om *OTELMetrics) RecordOutboxEvent(ctx context.Context, success bool, priority string) {
	if success {
		om.outboxProcessedTotal.Add(ctx, 1,
			metric.WithAttributes(
				PriorityAttr(priority),
			),
		)

		return
	}

	om.outboxErrorTotal.Add(ctx, 1,
		metric.WithAttributes(
			PriorityAttr(priority),
		),
	)
}

func (om *OTELMetrics) RecordCacheEvent(ctx context.Context, namespace, event string) {
	om.cacheEventTotal.Add(ctx, 1,
		metric.WithAttributes(
			CacheNamespaceAttr(namespace),
			CacheEventAttr(event),
		),
	)
}

func (om *OTELMetrics) RecordExternalCall(ctx context.Context, service, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}

	attrs := metric.WithAttributes(
		ServiceAttr(service),
		OperationAttr(operation),
		StatusAttr(status),
	)

	om.externalCallTotal.Add(ctx, 1, attrs)
	om.externalCallDuration.Record(ctx, duration.Seconds(), attrs)
}

func (om *OTELMetrics) RecordWebhook(ctx context.Context, source string, accepted bool) {
	status := "accepted"
	if !accepted {
		status = "rejected"
	}

	om.webhookTotal.Add(ctx, 1,
		metric.WithAttributes(
			SourceAttr(source),
			StatusAttr(status),
		),
	)
}

// RecordUseCase counts one run of a command or query, e.g. commands/createordercommand/success.
func (om *OTELMetrics) RecordUseCase(ctx context.Context, kind, action, outcome string) {
	om.useCaseTotal.Add(ctx, 1,
		metric.WithAttributes(
			UseCaseKindAttr(kind),
			UseCaseActionAttr(action),
			OutcomeAttr(outcome),
		),
	)
}

func (om *OTELMetrics) RecordUseCaseDuration(ctx context.Context, kind, action string, duration time.Duration) {
	om.useCaseDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			UseCaseKindAttr(kind),
			UseCaseActionAttr(action),
		),
	)
}

func (om *OTELMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (om *OTELMetrics) Shutdown(ctx context.Context) error {
	if err := om.meterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}

	return nil
}
