package decorator

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type (
	CommandHandler[C any, R any] interface {
		Handle(ctx context.Context, cmd C) (R, error)
	}

	QueryHandler[Q any, R any] interface {
		Execute(ctx context.Context, query Q) (R, error)
	}

	MetricsClient interface {
		Inc(key string, value int)
	}
)

// ApplyCommandDecorators wraps handler with logging, metrics and tracing, outermost first.
func ApplyCommandDecorators[C any, R any](
	handler CommandHandler[C, R],
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient MetricsClient,
) CommandHandler[C, R] {
	return commandLoggingDecorator[C, R]{
		base: commandMetricsDecorator[C, R]{
			base: commandTracingDecorator[C, R]{
				base:   handler,
				tracer: tracerProvider.Tracer("commands"),
			},
			client: metricsClient,
		},
		logger: logger,
	}
}

// ApplyQueryDecorators wraps handler with logging, metrics and tracing, outermost first.
func ApplyQueryDecorators[Q any, R any](
	handler QueryHandler[Q, R],
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient MetricsClient,
) QueryHandler[Q, R] {
	return queryLoggingDecorator[Q, R]{
		base: queryMetricsDecorator[Q, R]{
			base: queryTracingDecorator[Q, R]{
				base:   handler,
				tracer: tracerProvider.Tracer("queries"),
			},
			client: metricsClient,
		},
		logger: logger,
	}
}

// actionName turns commands.CreateOrderCommand into CreateOrder.
func actionName(handler any) string {
	name := fmt.Sprintf("%T", handler)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}

	name = strings.TrimPrefix(name, "*")

	for _, suffix := range []string{"Command", "Query"} {
		name = strings.TrimSuffix(name, suffix)
	}

	return name
}
