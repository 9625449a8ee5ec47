package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const recentFailuresLimit = 10

type (
	AdminService interface {
		FetchDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
		FetchQueueStats(ctx context.Context) ([]domain.QueueStats, error)
		SearchLogs(ctx context.Context, filter domain.LogFilter, page domain.PageRequest) (domain.Page[*domain.LogEntry], error)
		ListScraperJobs(ctx context.Context, status domain.ScraperJobStatus, page domain.PageRequest) (domain.Page[*domain.ScraperJob], error)
		CreateScraperJob(ctx context.Context, job *domain.ScraperJob) (*domain.ScraperJob, error)
		LookupAirtableRecord(ctx context.Context, req domain.AirtableLookupRequest) (*domain.AirtableLookupResult, error)
		FetchLivenessReport(ctx context.Context) domain.HealthReport
		FetchReadinessReport(ctx context.Context) domain.HealthReport
		FetchHealthReport(ctx context.Context) domain.HealthReport
	}

	adminService struct {
		orderRepo      ports.OrderRepository
		logRepo        ports.LogEntryRepository
		scraperJobRepo ports.ScraperJobRepository
		logIndex       ports.LogIndex
		inspector      ports.QueueInspector
		queue          ports.JobQueue
		airtable       ports.AirtableClient
		healthChecker  ports.HealthChecker
		factory        JobFactory
		now            func() time.Time
		logger         infrastructure.Logger
	}
)

func NewAdminService(
	orderRepo ports.OrderRepository,
	logRepo ports.LogEntryRepository,
	scraperJobRepo ports.ScraperJobRepository,
	logIndex ports.LogIndex,
	inspector ports.QueueInspector,
	queue ports.JobQueue,
	airtable ports.AirtableClient,
	healthChecker ports.HealthChecker,
	factory JobFactory,
	logger infrastructure.Logger,
) AdminService {
	return &adminService{
		orderRepo:      orderRepo,
		logRepo:        logRepo,
		scraperJobRepo: scraperJobRepo,
		logIndex:       logIndex,
		inspector:      inspector,
		queue:          queue,
		airtable:       airtable,
		healthChecker:  healthChecker,
		factory:        factory,
		now:            time.Now,
		logger:         logger.Component("admin"),
	}
}

func (s *adminService) FetchDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	byStatus, err := s.orderRepo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	byCountry, err := s.orderRepo.CountByCountry(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by country: %w", err)
	}

	byPayment, err := s.orderRepo.CountByPaymentStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by payment status: %w", err)
	}

	revenue, err := s.orderRepo.Revenue(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	today, err := s.orderRepo.CountCreatedSince(ctx, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("failed to count today's orders: %w", err)
	}

	errorsLastDay, err := s.logRepo.CountByLevelSince(ctx, domain.LogLevelError, now.Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to count recent errors: %w", err)
	}

	failures, _, err := s.logRepo.List(ctx, domain.LogFilter{Level: domain.LogLevelError}, domain.NewPageRequest(1, recentFailuresLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list recent failures: %w", err)
	}

	total := 0
	for _, count := range byStatus {
		total += count
	}

	recent := make([]domain.LogEntry, 0, len(failures))
	for _, entry := range failures {
		recent = append(recent, *entry)
	}

	return &domain.DashboardStats{
		TotalOrders:     total,
		OrdersToday:     today,
		ByStatus:        byStatus,
		ByCountry:       byCountry,
		Revenue:         revenue,
		ErrorsLast24h:   errorsLastDay,
		RecentFailures:  recent,
		GeneratedAt:     now,
		PaymentsByState: byPayment,
	}, nil
}

// FetchQueueStats reports every queue it could inspect, failures are logged and skipped.
func (s *adminService) FetchQueueStats(ctx context.Context) ([]domain.QueueStats, error) {
	stats := make([]domain.QueueStats, 0, len(domain.AllQueues))

	var lastErr error

	for _, queue := range domain.AllQueues {
		queueStats, err := s.inspector.Stats(ctx, queue)
		if err != nil {
			lastErr = err

			s.logger.Warn().Err(err).Str("queue", queue.String()).Msg("failed to inspect queue")

			continue
		}

		stats = append(stats, queueStats)
	}

	if len(stats) == 0 && lastErr != nil {
		return nil, domain.NewServiceUnavailableError("queue broker unavailable", lastErr)
	}

	return stats, nil
}

// SearchLogs prefers the search index and falls back to the database when it is
// missing or failing.
func (s *adminService) SearchLogs(
	ctx context.Context,
	filter domain.LogFilter,
	page domain.PageRequest,
) (domain.Page[*domain.LogEntry], error) {
	if filter.Level != "" && !filter.Level.Valid() {
		return domain.Page[*domain.LogEntry]{}, domain.NewValidationError(
			"invalid log filter",
			domain.FieldError{Field: "level", Message: "unknown level " + string(filter.Level)},
		)
	}

	if s.logIndex != nil {
		entries, total, err := s.logIndex.Search(ctx, filter, page)
		if err == nil {
			return domain.NewPage(entries, page, total), nil
		}

		s.logger.Warn().Err(err).Msg("log search failed, falling back to the database")
	}

	entries, total, err := s.logRepo.List(ctx, filter, page)
	if err != nil {
		return domain.Page[*domain.LogEntry]{}, fmt.Errorf("failed to list log entries: %w", err)
	}

	return domain.NewPage(entries, page, total), nil
}

func (s *adminService) ListScraperJobs(
	ctx context.Context,
	status domain.ScraperJobStatus,
	page domain.PageRequest,
) (domain.Page[*domain.ScraperJob], error) {
	jobs, total, err := s.scraperJobRepo.List(ctx, status, page)
	if err != nil {
		return domain.Page[*domain.ScraperJob]{}, fmt.Errorf("failed to list scraper jobs: %w", err)
	}

	return domain.NewPage(jobs, page, total), nil
}

// CreateScraperJob stores the job and queues its first run, a job that could not
// be queued is marked failed.
func (s *adminService) CreateScraperJob(ctx context.Context, job *domain.ScraperJob) (*domain.ScraperJob, error) {
	var fields []domain.FieldError

	if target, err := url.Parse(job.TargetURL); err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		fields = append(fields, domain.FieldError{Field: "target_url", Message: "must be an absolute http(s) URL"})
	}

	if strings.TrimSpace(job.Selector) == "" {
		fields = append(fields, domain.FieldError{Field: "selector", Message: "is required"})
	}

	if len(fields) > 0 {
		return nil, domain.NewValidationError("invalid scraper job", fields...)
	}

	if job.OrderID != nil {
		if _, err := s.orderRepo.FindByID(ctx, *job.OrderID); err != nil {
			return nil, err
		}
	}

	job.Status = domain.ScraperJobPending

	if err := s.scraperJobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create scraper job: %w", err)
	}

	run, err := s.factory.Job(domain.JobScraperRun, "", domain.ScraperPayload{ScraperJobID: job.ID}, domain.JobOptions{})
	if err == nil {
		err = s.queue.Enqueue(ctx, run)
	}

	if err != nil {
		if markErr := s.scraperJobRepo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			s.logger.Error().Err(markErr).Str("scraper_job_id", job.ID.String()).Msg("failed to mark scraper job failed")
		}

		return nil, domain.NewServiceUnavailableError("failed to queue scraper job", err)
	}

	return job, nil
}

func (s *adminService) LookupAirtableRecord(
	ctx context.Context,
	req domain.AirtableLookupRequest,
) (*domain.AirtableLookupResult, error) {
	result, err := s.airtable.Lookup(ctx, req)
	if err != nil {
		return nil, airtableProblem(err)
	}

	return result, nil
}

func (s *adminService) FetchLivenessReport(ctx context.Context) domain.HealthReport {
	return s.healthChecker.CheckLiveness(ctx)
}

func (s *adminService) FetchReadinessReport(ctx context.Context) domain.HealthReport {
	return s.healthChecker.CheckReadiness(ctx)
}

func (s *adminService) FetchHealthReport(ctx context.Context) domain.HealthReport {
	return s.healthChecker.CheckHealth(ctx)
}

// airtableProblem maps the Airtable error codes onto problem codes.
func airtableProblem(err error) error {
	var airtableErr *domain.AirtableError
	if !errors.As(err, &airtableErr) {
		return domain.NewExternalServiceError("airtable", err)
	}

	switch airtableErr.Code {
	case domain.AirtableInputError:
		return domain.NewValidationError(airtableErr.Message, domain.FieldError{Field: "field", Message: airtableErr.Message})
	case domain.AirtableConfigurationError:
		return domain.NewServiceUnavailableError(airtableErr.Message, airtableErr)
	}

	return domain.NewDomainError(domain.CodeExternalService, airtableErr.Message, http.StatusBadGateway, airtableErr).
		WithDetails("service", "airtable").
		WithDetails("airtable_code", airtableErr.Code)
}
