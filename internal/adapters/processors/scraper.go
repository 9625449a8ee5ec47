package processors

import (
	"context"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// ScraperProcessor reads the portal status of a scraper job and moves its order along.
type ScraperProcessor struct {
	scraperJobs ports.ScraperJobRepository
	orders      ports.OrderRepository
	scraper     ports.PortalScraper
	logger      infrastructure.Logger
}

func NewScraperProcessor(
	scraperJobs ports.ScraperJobRepository,
	orders ports.OrderRepository,
	scraper ports.PortalScraper,
	logger infrastructure.Logger,
) *ScraperProcessor {
	return &ScraperProcessor{
		scraperJobs: scraperJobs,
		orders:      orders,
		scraper:     scraper,
		logger:      logger.Component("scraper-processor"),
	}
}

func (p *ScraperProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.ScraperPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	scraperJob, err := p.scraperJobs.FindByID(ctx, payload.ScraperJobID)
	if err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to load scraper job", err)
	}

	if scraperJob.Status == domain.ScraperJobCompleted {
		return map[string]any{"skipped": true}, nil
	}

	if err := p.scraperJobs.MarkRunning(ctx, scraperJob.ID); err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to mark scraper job running", err)
	}

	result, err := p.scraper.Scrape(ctx, scraperJob.TargetURL, scraperJob.Selector)
	if err != nil {
		if markErr := p.scraperJobs.MarkFailed(ctx, scraperJob.ID, err.Error()); markErr != nil {
			p.logger.Error().Err(markErr).Str("scraper_job_id", scraperJob.ID.String()).Msg("failed to mark scraper job failed")
		}

		return nil, retryable(domain.CodeExternalService, "failed to scrape portal", err)
	}

	if err := p.scraperJobs.MarkCompleted(ctx, scraperJob.ID, result); err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to store scrape result", err)
	}

	updated := false
	if scraperJob.OrderID != nil && result.VisaStatus != "" {
		updated, err = p.advanceOrder(ctx, scraperJob, result.VisaStatus)
		if err != nil {
			return nil, retryable(codeDatabaseFailed, "failed to update order status", err)
		}
	}

	return map[string]any{
		"raw_status":    result.RawStatus,
		"visa_status":   string(result.VisaStatus),
		"order_updated": updated,
	}, nil
}

// advanceOrder applies the portal status when it is a legal next step for the order.
func (p *ScraperProcessor) advanceOrder(ctx context.Context, scraperJob *domain.ScraperJob, status domain.OrderStatus) (bool, error) {
	order, err := p.orders.FindByID(ctx, *scraperJob.OrderID)
	if err != nil {
		return false, err
	}

	if order.Status == status {
		return false, nil
	}

	if order.Status.Terminal() {
		p.logger.Debug().
			Str("order_id", order.OrderID).
			Str("status", string(order.Status)).
			Msg("order is closed, portal status ignored")

		return false, nil
	}

	if !order.Status.CanTransitionTo(status) {
		p.logger.Info().
			Str("order_id", order.OrderID).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("portal status is not a valid transition, order left unchanged")

		return false, nil
	}

	if err := p.orders.UpdateStatus(ctx, order.ID, status); err != nil {
		return false, err
	}

	p.logger.Info().
		Str("order_id", order.OrderID).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("order status updated from portal")

	return true, nil
}
