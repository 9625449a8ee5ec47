package adapters

import (
	"context"
	"strings"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

const durationSuffix = "duration_ms"

// MetricsAdapter turns the decorator keys, kind.action.outcome, into use case series.
type MetricsAdapter struct {
	metrics infrastructure.Metrics
}

func NewMetricsAdapter(metrics infrastructure.Metrics) decorator.MetricsClient {
	return &MetricsAdapter{metrics: metrics}
}

func (m *MetricsAdapter) Inc(key string, value int) {
	kind, action, outcome, ok := splitUseCaseKey(key)
	if !ok {
		return
	}

	ctx := context.Background()

	if outcome == durationSuffix {
		m.metrics.RecordUseCaseDuration(ctx, kind, action, time.Duration(value)*time.Millisecond)

		return
	}

	for range value {
		m.metrics.RecordUseCase(ctx, kind, action, outcome)
	}
}

func splitUseCaseKey(key string) (kind, action, outcome string, ok bool) {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", false
	}

	return parts[0], parts[1], parts[2], true
}
