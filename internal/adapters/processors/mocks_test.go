package processors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

type mockOrderRepository struct {
	mock.Mock
	ports.OrderRepository
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*domain.Order)

	return order, args.Error(1)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockOrderRepository) SetDocumentURL(ctx context.Context, id uuid.UUID, url string) error {
	return m.Called(ctx, id, url).Error(0)
}

func (m *mockOrderRepository) MarkCompletedByOrderIDs(ctx context.Context, orderIDs []string) ([]uuid.UUID, error) {
	args := m.Called(ctx, orderIDs)
	ids, _ := args.Get(0).([]uuid.UUID)

	return ids, args.Error(1)
}

type mockScraperJobRepository struct {
	mock.Mock
	ports.ScraperJobRepository
}

func (m *mockScraperJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScraperJob, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*domain.ScraperJob)

	return job, args.Error(1)
}

func (m *mockScraperJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockScraperJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result domain.ScrapeResult) error {
	return m.Called(ctx, id, result).Error(0)
}

func (m *mockScraperJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type mockMessagingClient struct {
	mock.Mock
}

func (m *mockMessagingClient) EnsureContact(ctx context.Context, contact domain.Contact) (string, error) {
	args := m.Called(ctx, contact)

	return args.String(0), args.Error(1)
}

func (m *mockMessagingClient) SendTemplate(ctx context.Context, contactID, template string, params map[string]string) error {
	return m.Called(ctx, contactID, template, params).Error(0)
}

func (m *mockMessagingClient) SetCustomFields(ctx context.Context, contactID string, fields map[string]string) error {
	return m.Called(ctx, contactID, fields).Error(0)
}

func (m *mockMessagingClient) AddTag(ctx context.Context, contactID, tag string) error {
	return m.Called(ctx, contactID, tag).Error(0)
}

type mockRenderer struct {
	mock.Mock
}

func (m *mockRenderer) Render(ctx context.Context, html []byte) ([]byte, error) {
	args := m.Called(ctx, html)
	document, _ := args.Get(0).([]byte)

	return document, args.Error(1)
}

type mockDocumentStore struct {
	mock.Mock
}

func (m *mockDocumentStore) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	args := m.Called(ctx, key, contentType, body)

	return args.String(0), args.Error(1)
}

type mockJobQueue struct {
	mock.Mock
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	return m.Called(ctx, job).Error(0)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, email domain.EmailPayload) (string, error) {
	args := m.Called(ctx, email)

	return args.String(0), args.Error(1)
}

type mockPortalScraper struct {
	mock.Mock
}

func (m *mockPortalScraper) Scrape(ctx context.Context, url, selector string) (domain.ScrapeResult, error) {
	args := m.Called(ctx, url, selector)
	result, _ := args.Get(0).(domain.ScrapeResult)

	return result, args.Error(1)
}

type mockCacheService struct {
	mock.Mock
	ports.CacheService
}

func (m *mockCacheService) DeletePattern(ctx context.Context, pattern string) (int64, error) {
	args := m.Called(ctx, pattern)

	return int64(args.Int(0)), args.Error(1)
}

type mockCursorStore struct {
	mock.Mock
}

func (m *mockCursorStore) GetCursor(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)

	return args.String(0), args.Error(1)
}

func (m *mockCursorStore) SetCursor(ctx context.Context, name, value string) error {
	return m.Called(ctx, name, value).Error(0)
}

type mockAirtableClient struct {
	mock.Mock
	ports.AirtableClient
}

func (m *mockAirtableClient) TrackCompleted(ctx context.Context, mode string, since *time.Time) (*domain.AirtableTrackerResult, error) {
	args := m.Called(ctx, mode, since)
	result, _ := args.Get(0).(*domain.AirtableTrackerResult)

	return result, args.Error(1)
}

// jobBuilder builds jobs with the built-in queue options.
type jobBuilder struct{}

func (jobBuilder) Job(name string, queue domain.QueueName, payload any, override domain.JobOptions) (*domain.Job, error) {
	return domain.NewJob(name, queue, payload, override)
}

func newTestJob(name string, payload any) *domain.Job {
	job, err := domain.NewJob(name, "", payload, domain.JobOptions{})
	if err != nil {
		panic(err)
	}

	return job
}
