package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

type mockOrderRepository struct {
	mock.Mock
	ports.OrderRepository
}

func (m *mockOrderRepository) CreateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *mockOrderRepository) UpsertInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) (bool, error) {
	args := m.Called(ctx, tx, order)

	return args.Bool(0), args.Error(1)
}

func (m *mockOrderRepository) UpdateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)

	return order, args.Error(1)
}

func (m *mockOrderRepository) List(
	ctx context.Context,
	filter domain.OrderFilter,
	page domain.PageRequest,
) ([]*domain.Order, int, error) {
	args := m.Called(ctx, filter, page)
	orders, _ := args.Get(0).([]*domain.Order)

	return orders, args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) BulkUpdateStatus(
	ctx context.Context,
	ids []uuid.UUID,
	status domain.OrderStatus,
) ([]uuid.UUID, error) {
	args := m.Called(ctx, ids, status)
	updated, _ := args.Get(0).([]uuid.UUID)

	return updated, args.Error(1)
}

func (m *mockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[domain.OrderStatus]int)

	return counts, args.Error(1)
}

func (m *mockOrderRepository) CountByCountry(ctx context.Context) (map[string]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[string]int)

	return counts, args.Error(1)
}

func (m *mockOrderRepository) CountByPaymentStatus(ctx context.Context) (map[domain.PaymentStatus]int, error) {
	args := m.Called(ctx)
	counts, _ := args.Get(0).(map[domain.PaymentStatus]int)

	return counts, args.Error(1)
}

func (m *mockOrderRepository) Revenue(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	revenue, _ := args.Get(0).(map[string]int64)

	return revenue, args.Error(1)
}

func (m *mockOrderRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	args := m.Called(ctx, since)

	return args.Int(0), args.Error(1)
}

func (m *mockOrderRepository) Evict(ctx context.Context, ids ...uuid.UUID) {
	m.Called(ctx, ids)
}

type mockOutboxRepository struct {
	mock.Mock
	ports.OutboxRepository
}

func (m *mockOutboxRepository) SaveInTx(ctx context.Context, tx *sqlx.Tx, event *domain.OutboxEvent) error {
	return m.Called(ctx, tx, event).Error(0)
}

func (m *mockOutboxRepository) FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*domain.OutboxEvent)

	return events, args.Error(1)
}

func (m *mockOutboxRepository) FindRetryable(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	args := m.Called(ctx, limit)
	events, _ := args.Get(0).([]*domain.OutboxEvent)

	return events, args.Error(1)
}

func (m *mockOutboxRepository) ClaimForProcessing(ctx context.Context, eventID string) (*domain.OutboxEvent, error) {
	args := m.Called(ctx, eventID)
	event, _ := args.Get(0).(*domain.OutboxEvent)

	return event, args.Error(1)
}

func (m *mockOutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

func (m *mockOutboxRepository) MarkFailed(ctx context.Context, eventID, errorDetails string, nextRetryAt *time.Time) error {
	return m.Called(ctx, eventID, errorDetails, nextRetryAt).Error(0)
}

func (m *mockOutboxRepository) MarkPermanentlyFailed(ctx context.Context, eventID, errorDetails string) error {
	return m.Called(ctx, eventID, errorDetails).Error(0)
}

type mockApiKeyRepository struct {
	mock.Mock
}

func (m *mockApiKeyRepository) Create(ctx context.Context, key *domain.ApiKey) error {
	return m.Called(ctx, key).Error(0)
}

func (m *mockApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	args := m.Called(ctx, id)
	key, _ := args.Get(0).(*domain.ApiKey)

	return key, args.Error(1)
}

func (m *mockApiKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	args := m.Called(ctx, prefix)
	key, _ := args.Get(0).(*domain.ApiKey)

	return key, args.Error(1)
}

func (m *mockApiKeyRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.ApiKey, int, error) {
	args := m.Called(ctx, page)
	keys, _ := args.Get(0).([]*domain.ApiKey)

	return keys, args.Int(1), args.Error(2)
}

func (m *mockApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *mockApiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type mockWorkflowRepository struct {
	mock.Mock
	ports.WorkflowRepository
}

func (m *mockWorkflowRepository) Create(ctx context.Context, workflow *domain.Workflow) error {
	return m.Called(ctx, workflow).Error(0)
}

func (m *mockWorkflowRepository) ListEnabled(ctx context.Context) ([]*domain.Workflow, error) {
	args := m.Called(ctx)
	workflows, _ := args.Get(0).([]*domain.Workflow)

	return workflows, args.Error(1)
}

type mockLogEntryRepository struct {
	mock.Mock
}

func (m *mockLogEntryRepository) Create(ctx context.Context, entry *domain.LogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockLogEntryRepository) List(
	ctx context.Context,
	filter domain.LogFilter,
	page domain.PageRequest,
) ([]*domain.LogEntry, int, error) {
	args := m.Called(ctx, filter, page)
	entries, _ := args.Get(0).([]*domain.LogEntry)

	return entries, args.Int(1), args.Error(2)
}

func (m *mockLogEntryRepository) CountByLevelSince(ctx context.Context, level domain.LogLevel, since time.Time) (int, error) {
	args := m.Called(ctx, level, since)

	return args.Int(0), args.Error(1)
}

type mockLogIndex struct {
	mock.Mock
}

func (m *mockLogIndex) Index(ctx context.Context, entry *domain.LogEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockLogIndex) Search(
	ctx context.Context,
	filter domain.LogFilter,
	page domain.PageRequest,
) ([]*domain.LogEntry, int, error) {
	args := m.Called(ctx, filter, page)
	entries, _ := args.Get(0).([]*domain.LogEntry)

	return entries, args.Int(1), args.Error(2)
}

func (m *mockLogIndex) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockJobQueue struct {
	mock.Mock
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	return m.Called(ctx, job).Error(0)
}

type mockQueueInspector struct {
	mock.Mock
}

func (m *mockQueueInspector) Stats(ctx context.Context, queue domain.QueueName) (domain.QueueStats, error) {
	args := m.Called(ctx, queue)
	stats, _ := args.Get(0).(domain.QueueStats)

	return stats, args.Error(1)
}

type mockJobProcessor struct {
	mock.Mock
}

func (m *mockJobProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	args := m.Called(ctx, job)
	data, _ := args.Get(0).(map[string]any)

	return data, args.Error(1)
}

type mockCacheService struct {
	mock.Mock
	ports.CacheService
}

func (m *mockCacheService) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	args := m.Called(ctx, pattern)

	return int64(args.Int(0)), args.Error(1)
}

type mockConditionEvaluator struct {
	mock.Mock
}

func (m *mockConditionEvaluator) Compile(expression string) error {
	return m.Called(expression).Error(0)
}

func (m *mockConditionEvaluator) Evaluate(ctx context.Context, workflow *domain.Workflow, event domain.OrderEvent) (bool, error) {
	args := m.Called(ctx, workflow, event)

	return args.Bool(0), args.Error(1)
}

type mockWebhookParser struct {
	mock.Mock
}

func (m *mockWebhookParser) Parse(source string, body []byte) (*domain.Order, error) {
	args := m.Called(source, body)
	order, _ := args.Get(0).(*domain.Order)

	return order, args.Error(1)
}

type mockAirtableClient struct {
	mock.Mock
	ports.AirtableClient
}

func (m *mockAirtableClient) Lookup(ctx context.Context, req domain.AirtableLookupRequest) (*domain.AirtableLookupResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domain.AirtableLookupResult)

	return result, args.Error(1)
}

func testJobFactory() JobFactory {
	return NewJobFactory(config.JobsConfig{}, config.OutboxConfig{
		MaxRetries: config.MaxRetriesByPriority{Low: 3, Normal: 5, High: 7, Urgent: 10},
	})
}

// jobNames lists the job names carried by the saved outbox events.
func jobNames(calls []mock.Call) []string {
	names := make([]string, 0, len(calls))

	for _, call := range calls {
		if call.Method != "SaveInTx" {
			continue
		}

		event := call.Arguments.Get(2).(*domain.OutboxEvent)
		names = append(names, event.JobName)
	}

	return names
}
