package infrastructure

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type NoOpMetrics struct{}

func (n *NoOpMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration, _, _ int64) {
}

func (n *NoOpMetrics) RecordJob(_ context.Context, _, _, _ string, _ time.Duration) {
}

func (n *NoOpMetrics) RecordOutboxEvent(_ context.Context, _ bool, _ string) {
}

func (n *NoOpMetrics) RecordCacheEvent(_ context.Context, _, _ string) {
}

func (n *NoOpMetrics) RecordExternalCall(_ context.Context, _, _ string, _ bool, _ time.Duration) {
}

func (n *NoOpMetrics) RecordWebhook(_ context.Context, _ string, _ bool) {
}

func (n *NoOpMetrics) RecordUseCase(_ context.Context, _, _, _ string) {
}

func (n *NoOpMetrics) RecordUseCaseDuration(_ context.Context, _, _ string, _ time.Duration) {
}

// Handler still serves the default registry, the worker collectors live there.
func (n *NoOpMetrics) Handler() http.Handler {
	return promhttp.Handler()
}

func (n *NoOpMetrics) Shutdown(_ context.Context) error {
	return nil
}
