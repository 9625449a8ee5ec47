package ports

import (
	"context"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type HealthChecker interface {
	CheckLiveness(ctx context.Context) domain.HealthReport
	CheckReadiness(ctx context.Context) domain.HealthReport
	CheckHealth(ctx context.Context) domain.HealthReport
}
