package repos

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const (
	orderEntity    = "order"
	apiKeyEntity   = "api_key"
	workflowEntity = "workflow"
)

type (
	// CachedOrderRepository serves order reads through the cache and evicts on writes.
	CachedOrderRepository struct {
		ports.OrderRepository

		cache   ports.CacheService
		logger  infrastructure.Logger
		ttl     time.Duration
		listTTL time.Duration
	}

	CachedApiKeyRepository struct {
		ports.ApiKeyRepository

		cache  ports.CacheService
		logger infrastructure.Logger
		ttl    time.Duration
	}

	CachedWorkflowRepository struct {
		ports.WorkflowRepository

		cache   ports.CacheService
		logger  infrastructure.Logger
		ttl     time.Duration
		listTTL time.Duration
	}

	apiKeyEntry struct {
		domain.ApiKey

		SecretHash string `json:"secret_hash"`
	}

	listResult[T any] struct {
		Items []T `json:"items"`
		Total int `json:"total"`
	}
)

func NewCachedOrderRepository(
	inner ports.OrderRepository,
	cache ports.CacheService,
	ttl, listTTL time.Duration,
	logger infrastructure.Logger,
) *CachedOrderRepository {
	return &CachedOrderRepository{
		OrderRepository: inner,
		cache:           cache,
		logger:          logger.Component("cached_order_repository"),
		ttl:             ttl,
		listTTL:         listTTL,
	}
}

func (r *CachedOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, id.String()), r.ttl,
		func(ctx context.Context) (*domain.Order, error) {
			return r.OrderRepository.FindByID(ctx, id)
		},
	)
}

func (r *CachedOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, "ref", orderID), r.ttl,
		func(ctx context.Context) (*domain.Order, error) {
			return r.OrderRepository.FindByOrderID(ctx, orderID)
		},
	)
}

func (r *CachedOrderRepository) List(
	ctx context.Context,
	filter domain.OrderFilter,
	page domain.PageRequest,
) ([]*domain.Order, int, error) {
	result, err := Remember(ctx, r.cache, r.logger, listKey(orderEntity, filter, page), r.listTTL,
		func(ctx context.Context) (listResult[*domain.Order], error) {
			orders, total, err := r.OrderRepository.List(ctx, filter, page)

			return listResult[*domain.Order]{Items: orders, Total: total}, err
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return result.Items, result.Total, nil
}

func (r *CachedOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, "stats", "status"), r.listTTL,
		r.OrderRepository.CountByStatus,
	)
}

func (r *CachedOrderRepository) CountByCountry(ctx context.Context) (map[string]int, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, "stats", "country"), r.listTTL,
		r.OrderRepository.CountByCountry,
	)
}

func (r *CachedOrderRepository) CountByPaymentStatus(ctx context.Context) (map[domain.PaymentStatus]int, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, "stats", "payment"), r.listTTL,
		r.OrderRepository.CountByPaymentStatus,
	)
}

func (r *CachedOrderRepository) Revenue(ctx context.Context) (map[string]int64, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(orderEntity, "stats", "revenue"), r.listTTL,
		r.OrderRepository.Revenue,
	)
}

func (r *CachedOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	if err := r.OrderRepository.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	r.Evict(ctx, id)

	return nil
}

func (r *CachedOrderRepository) BulkUpdateStatus(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.OrderStatus,
) ([]uuid.UUID, error) {
	updated, err := r.OrderRepository.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return nil, err
	}

	r.Evict(ctx, updated...)

	return updated, nil
}

func (r *CachedOrderRepository) SetDocumentURL(ctx context.Context, id uuid.UUID, url string) error {
	if err := r.OrderRepository.SetDocumentURL(ctx, id, url); err != nil {
		return err
	}

	r.Evict(ctx, id)

	return nil
}

func (r *CachedOrderRepository) MarkCompletedByOrderIDs(ctx context.Context, orderIDs []string) ([]uuid.UUID, error) {
	updated, err := r.OrderRepository.MarkCompletedByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, err
	}

	if len(updated) > 0 {
		r.Evict(ctx, updated...)
	}

	return updated, nil
}

func (r *CachedOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.OrderRepository.Delete(ctx, id); err != nil {
		return err
	}

	r.Evict(ctx, id)

	return nil
}

// Evict drops the order keys along with every list, lookup and stats entry.
func (r *CachedOrderRepository) Evict(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(orderEntity, id.String()))
	}

	evict(ctx, r.cache, r.logger, keys,
		listPattern(orderEntity),
		cacheKey(orderEntity, "ref", "*"),
		cacheKey(orderEntity, "stats", "*"),
	)
}

func NewCachedApiKeyRepository(
	inner ports.ApiKeyRepository,
	cache ports.CacheService,
	ttl time.Duration,
	logger infrastructure.Logger,
) *CachedApiKeyRepository {
	return &CachedApiKeyRepository{
		ApiKeyRepository: inner,
		cache:            cache,
		logger:           logger.Component("cached_api_key_repository"),
		ttl:              ttl,
	}
}

func (r *CachedApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	return r.remember(ctx, cacheKey(apiKeyEntity, id.String()), func(ctx context.Context) (*domain.ApiKey, error) {
		return r.ApiKeyRepository.FindByID(ctx, id)
	})
}

func (r *CachedApiKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	return r.remember(ctx, cacheKey(apiKeyEntity, "prefix", prefix), func(ctx context.Context) (*domain.ApiKey, error) {
		return r.ApiKeyRepository.FindByPrefix(ctx, prefix)
	})
}

// remember keeps the secret hash in the cached copy, the API representation drops it.
func (r *CachedApiKeyRepository) remember(
	ctx context.Context,
	key string,
	loader func(context.Context) (*domain.ApiKey, error),
) (*domain.ApiKey, error) {
	entry, err := Remember(ctx, r.cache, r.logger, key, r.ttl, func(ctx context.Context) (apiKeyEntry, error) {
		apiKey, err := loader(ctx)
		if err != nil {
			return apiKeyEntry{}, err
		}

		return apiKeyEntry{ApiKey: *apiKey, SecretHash: apiKey.SecretHash}, nil
	})
	if err != nil {
		return nil, err
	}

	apiKey := entry.ApiKey
	apiKey.SecretHash = entry.SecretHash

	return &apiKey, nil
}

func (r *CachedApiKeyRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.ApiKey, int, error) {
	result, err := Remember(ctx, r.cache, r.logger, listKey(apiKeyEntity, page), r.ttl,
		func(ctx context.Context) (listResult[*domain.ApiKey], error) {
			keys, total, err := r.ApiKeyRepository.List(ctx, page)

			return listResult[*domain.ApiKey]{Items: keys, Total: total}, err
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return result.Items, result.Total, nil
}

func (r *CachedApiKeyRepository) Create(ctx context.Context, key *domain.ApiKey) error {
	if err := r.ApiKeyRepository.Create(ctx, key); err != nil {
		return err
	}

	evict(ctx, r.cache, r.logger, nil, listPattern(apiKeyEntity))

	return nil
}

// Revoke evicts every api key entry since the prefix of id is not known here.
func (r *CachedApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	if err := r.ApiKeyRepository.Revoke(ctx, id, at); err != nil {
		return err
	}

	evict(ctx, r.cache, r.logger, nil, cacheKey(apiKeyEntity, "*"))

	return nil
}

func NewCachedWorkflowRepository(
	inner ports.WorkflowRepository,
	cache ports.CacheService,
	ttl, listTTL time.Duration,
	logger infrastructure.Logger,
) *CachedWorkflowRepository {
	return &CachedWorkflowRepository{
		WorkflowRepository: inner,
		cache:              cache,
		logger:             logger.Component("cached_workflow_repository"),
		ttl:                ttl,
		listTTL:            listTTL,
	}
}

func (r *CachedWorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(workflowEntity, id.String()), r.ttl,
		func(ctx context.Context) (*domain.Workflow, error) {
			return r.WorkflowRepository.FindByID(ctx, id)
		},
	)
}

func (r *CachedWorkflowRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Workflow, int, error) {
	result, err := Remember(ctx, r.cache, r.logger, listKey(workflowEntity, page), r.listTTL,
		func(ctx context.Context) (listResult[*domain.Workflow], error) {
			workflows, total, err := r.WorkflowRepository.List(ctx, page)

			return listResult[*domain.Workflow]{Items: workflows, Total: total}, err
		},
	)
	if err != nil {
		return nil, 0, err
	}

	return result.Items, result.Total, nil
}

func (r *CachedWorkflowRepository) ListEnabled(ctx context.Context) ([]*domain.Workflow, error) {
	return Remember(ctx, r.cache, r.logger, cacheKey(workflowEntity, "enabled"), r.listTTL,
		r.WorkflowRepository.ListEnabled,
	)
}

func (r *CachedWorkflowRepository) Create(ctx context.Context, workflow *domain.Workflow) error {
	if err := r.WorkflowRepository.Create(ctx, workflow); err != nil {
		return err
	}

	r.evict(ctx, workflow.ID)

	return nil
}

func (r *CachedWorkflowRepository) Update(ctx context.Context, workflow *domain.Workflow) error {
	if err := r.WorkflowRepository.Update(ctx, workflow); err != nil {
		return err
	}

	r.evict(ctx, workflow.ID)

	return nil
}

func (r *CachedWorkflowRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	if err := r.WorkflowRepository.SetEnabled(ctx, id, enabled); err != nil {
		return err
	}

	r.evict(ctx, id)

	return nil
}

func (r *CachedWorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.WorkflowRepository.Delete(ctx, id); err != nil {
		return err
	}

	r.evict(ctx, id)

	return nil
}

func (r *CachedWorkflowRepository) evict(ctx context.Context, id uuid.UUID) {
	evict(ctx, r.cache, r.logger,
		[]string{cacheKey(workflowEntity, id.String()), cacheKey(workflowEntity, "enabled")},
		listPattern(workflowEntity),
	)
}

// evict removes keys and patterns, failures only leave entries to expire on their own.
func evict(ctx context.Context, cache ports.CacheService, logger infrastructure.Logger, keys []string, patterns ...string) {
	if cache == nil {
		return
	}

	if len(keys) > 0 {
		if err := cache.Delete(ctx, keys...); err != nil {
			logger.Warn().Err(err).Strs("keys", keys).Msg("cache eviction failed")
		}
	}

	for _, pattern := range patterns {
		if _, err := cache.DeletePattern(ctx, pattern); err != nil {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("cache pattern eviction failed")
		}
	}
}
