package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const (
	maxBatchSize = 1000

	defaultChunkSize       = 100
	defaultBulkConcurrency = 8
)

type (
	BatchOperationsService interface {
		BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.OrderStatus) (*domain.BatchResult, error)
		BulkEnqueueNotifications(ctx context.Context, ids []uuid.UUID, template string) (*domain.BatchResult, error)
		InvalidateCache(ctx context.Context, patterns []string) (*domain.BatchResult, error)
	}

	batchService struct {
		orderRepo   ports.OrderRepository
		cache       ports.CacheService
		queue       ports.JobQueue
		factory     JobFactory
		chunkSize   int
		concurrency int
		logger      infrastructure.Logger
	}
)

func NewBatchOperationsService(
	orderRepo ports.OrderRepository,
	cache ports.CacheService,
	queue ports.JobQueue,
	factory JobFactory,
	cfg config.JobsConfig,
	logger infrastructure.Logger,
) BatchOperationsService {
	chunkSize := cfg.BatchChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	concurrency := cfg.BulkConcurrency
	if concurrency <= 0 {
		concurrency = defaultBulkConcurrency
	}

	return &batchService{
		orderRepo:   orderRepo,
		cache:       cache,
		queue:       queue,
		factory:     factory,
		chunkSize:   chunkSize,
		concurrency: concurrency,
		logger:      logger.Component("batch"),
	}
}

// BulkUpdateStatus updates the orders chunk by chunk, a failing chunk marks its
// ids failed and the remaining chunks still run. Ids the database did not return
// are reported as not found.
func (s *batchService) BulkUpdateStatus(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.OrderStatus,
) (*domain.BatchResult, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("invalid order status", domain.FieldError{Field: "status", Message: "unknown status"})
	}

	ids = uniqueIDs(ids)
	if err := checkBatch(len(ids)); err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Total: len(ids)}

	for chunk := range slices.Chunk(ids, s.chunkSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		updated, err := s.orderRepo.BulkUpdateStatus(ctx, chunk, status)
		if err != nil {
			s.logger.Error().Err(err).Int("chunk_size", len(chunk)).Msg("bulk status chunk failed")

			for _, id := range chunk {
				result.AddFailure(id.String(), err)
			}

			continue
		}

		result.AddSuccess(len(updated))

		for _, id := range chunk {
			if !slices.Contains(updated, id) {
				result.AddFailure(id.String(), domain.ErrNotFound)
			}
		}
	}

	s.logger.Info().
		Str("status", string(status)).
		Int("total", result.Total).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("bulk status update finished")

	return result, nil
}

// BulkEnqueueNotifications queues a WhatsApp message per order on the bulk queue,
// template overrides the country template of each order when set.
func (s *batchService) BulkEnqueueNotifications(
	ctx context.Context,
	ids []uuid.UUID,
	template string,
) (*domain.BatchResult, error) {
	ids = uniqueIDs(ids)
	if err := checkBatch(len(ids)); err != nil {
		return nil, err
	}

	var (
		mu     sync.Mutex
		result = &domain.BatchResult{Total: len(ids)}
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.concurrency)

	for _, id := range ids {
		group.Go(func() error {
			err := s.enqueueNotification(groupCtx, id, template)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.AddFailure(id.String(), err)

				return nil
			}

			result.AddSuccess(1)

			return nil
		})
	}

	_ = group.Wait()

	s.logger.Info().
		Int("total", result.Total).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("bulk notifications queued")

	return result, nil
}

func (s *batchService) enqueueNotification(ctx context.Context, id uuid.UUID, template string) error {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if order.ClientPhone == "" {
		return fmt.Errorf("order %s has no phone", order.OrderID)
	}

	if template == "" {
		template = domain.TemplateForCountry(order.Country)
	}

	job, err := s.factory.Job(domain.JobWhatsAppSend, domain.QueueBulk, domain.WhatsAppPayload{
		OrderID:  order.ID,
		Phone:    order.ClientPhone,
		Template: template,
		Params: map[string]string{
			"name":     order.ClientName,
			"order_id": order.OrderID,
		},
	}, domain.JobOptions{})
	if err != nil {
		return err
	}

	return s.queue.Enqueue(ctx, withOrder(job, order))
}

func (s *batchService) InvalidateCache(ctx context.Context, patterns []string) (*domain.BatchResult, error) {
	if len(patterns) == 0 {
		return nil, domain.NewValidationError("no patterns given", domain.FieldError{Field: "patterns", Message: "is required"})
	}

	result := &domain.BatchResult{Total: len(patterns)}

	for _, pattern := range patterns {
		deleted, err := s.cache.DeletePattern(ctx, pattern)
		if err != nil {
			result.AddFailure(pattern, err)

			continue
		}

		result.AddSuccess(1)

		s.logger.Debug().Str("pattern", pattern).Int64("deleted", deleted).Msg("cache pattern invalidated")
	}

	return result, nil
}

func checkBatch(size int) error {
	if size == 0 {
		return domain.NewValidationError("no ids given", domain.FieldError{Field: "ids", Message: "is required"})
	}

	if size > maxBatchSize {
		return domain.NewBatchTooLargeError(size, maxBatchSize)
	}

	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	return unique
}
