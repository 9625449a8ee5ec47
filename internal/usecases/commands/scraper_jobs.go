package commands

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	CreateScraperJobCommand struct {
		Job *domain.ScraperJob
	}

	CreateScraperJobHandler decorator.CommandHandler[CreateScraperJobCommand, *domain.ScraperJob]

	createScraperJobHandler struct {
		adminService service.AdminService
	}
)

func NewCreateScraperJobHandler(
	adminService service.AdminService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) CreateScraperJobHandler {
	return decorator.ApplyCommandDecorators[CreateScraperJobCommand, *domain.ScraperJob](
		createScraperJobHandler{adminService: adminService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h createScraperJobHandler) Handle(ctx context.Context, cmd CreateScraperJobCommand) (*domain.ScraperJob, error) {
	return h.adminService.CreateScraperJob(ctx, cmd.Job)
}
