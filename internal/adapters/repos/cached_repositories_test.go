package repos

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
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

func (m *mockOrderRepository) List(
	ctx context.Context,
	filter domain.OrderFilter,
	page domain.PageRequest,
) ([]*domain.Order, int, error) {
	args := m.Called(ctx, filter, page)
	orders, _ := args.Get(0).([]*domain.Order)

	return orders, args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockApiKeyRepository struct {
	mock.Mock
	ports.ApiKeyRepository
}

func (m *mockApiKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	args := m.Called(ctx, prefix)
	key, _ := args.Get(0).(*domain.ApiKey)

	return key, args.Error(1)
}

type mockWorkflowRepository struct {
	mock.Mock
	ports.WorkflowRepository
}

func (m *mockWorkflowRepository) ListEnabled(ctx context.Context) ([]*domain.Workflow, error) {
	args := m.Called(ctx)
	workflows, _ := args.Get(0).([]*domain.Workflow)

	return workflows, args.Error(1)
}

func (m *mockWorkflowRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return m.Called(ctx, id, enabled).Error(0)
}

type CachedRepositoriesTestSuite struct {
	suite.Suite

	server *miniredis.Miniredis
	cache  *CacheRepository
}

func TestCachedRepositoriesTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(CachedRepositoriesTestSuite))
}

func (s *CachedRepositoriesTestSuite) SetupTest() {
	s.server = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{Addr: s.server.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.cache = NewCacheRepository(client, testCacheConfig(), nil, infrastructure.NewTestLogger())
}

func (s *CachedRepositoriesTestSuite) TestOrderReadsAreCachedUntilAWrite() {
	ctx := s.T().Context()
	inner := &mockOrderRepository{}
	repo := NewCachedOrderRepository(inner, s.cache, time.Minute, time.Minute, infrastructure.NewTestLogger())

	order := &domain.Order{ID: uuid.New(), OrderID: "VZ-1", Status: domain.OrderStatusPending}
	page := domain.NewPageRequest(1, 20)

	inner.On("FindByID", mock.Anything, order.ID).Return(order, nil).Twice()
	inner.On("List", mock.Anything, domain.OrderFilter{}, page).Return([]*domain.Order{order}, 1, nil).Twice()
	inner.On("UpdateStatus", mock.Anything, order.ID, domain.OrderStatusProcessing).Return(nil).Once()

	for range 2 {
		found, err := repo.FindByID(ctx, order.ID)
		s.Require().NoError(err)
		s.Require().Equal("VZ-1", found.OrderID)

		orders, total, err := repo.List(ctx, domain.OrderFilter{}, page)
		s.Require().NoError(err)
		s.Require().Equal(1, total)
		s.Require().Len(orders, 1)
	}

	s.Require().NoError(repo.UpdateStatus(ctx, order.ID, domain.OrderStatusProcessing))
	s.Require().False(s.server.Exists("visa:" + cacheKey(orderEntity, order.ID.String())))

	_, err := repo.FindByID(ctx, order.ID)
	s.Require().NoError(err)

	_, _, err = repo.List(ctx, domain.OrderFilter{}, page)
	s.Require().NoError(err)

	inner.AssertExpectations(s.T())
}

func (s *CachedRepositoriesTestSuite) TestOrderNotFoundIsNotCached() {
	ctx := s.T().Context()
	inner := &mockOrderRepository{}
	repo := NewCachedOrderRepository(inner, s.cache, time.Minute, time.Minute, infrastructure.NewTestLogger())
	id := uuid.New()

	inner.On("FindByID", mock.Anything, id).Return(nil, domain.NewNotFoundError("order", id.String())).Twice()

	for range 2 {
		_, err := repo.FindByID(ctx, id)
		s.Require().ErrorIs(err, domain.ErrNotFound)
	}

	inner.AssertExpectations(s.T())
}

func (s *CachedRepositoriesTestSuite) TestApiKeyCacheKeepsSecretHash() {
	ctx := s.T().Context()
	inner := &mockApiKeyRepository{}
	repo := NewCachedApiKeyRepository(inner, s.cache, time.Minute, infrastructure.NewTestLogger())

	key := &domain.ApiKey{
		ID:         uuid.New(),
		Prefix:     "ab12cd34",
		SecretHash: "5e884898da28047151d0e56f8dc62927",
		Scopes:     []string{domain.ScopeOrdersRead},
	}

	inner.On("FindByPrefix", mock.Anything, "ab12cd34").Return(key, nil).Once()

	for range 2 {
		found, err := repo.FindByPrefix(ctx, "ab12cd34")
		s.Require().NoError(err)
		s.Require().Equal(key.SecretHash, found.SecretHash)
		s.Require().Equal(key.Scopes, found.Scopes)
	}

	inner.AssertExpectations(s.T())
}

func (s *CachedRepositoriesTestSuite) TestWorkflowToggleEvictsEnabledList() {
	ctx := s.T().Context()
	inner := &mockWorkflowRepository{}
	repo := NewCachedWorkflowRepository(inner, s.cache, time.Minute, time.Minute, infrastructure.NewTestLogger())

	workflow := &domain.Workflow{ID: uuid.New(), Name: "notify", Enabled: true}

	inner.On("ListEnabled", mock.Anything).Return([]*domain.Workflow{workflow}, nil).Once()
	inner.On("SetEnabled", mock.Anything, workflow.ID, false).Return(nil).Once()
	inner.On("ListEnabled", mock.Anything).Return([]*domain.Workflow{}, nil).Once()

	enabled, err := repo.ListEnabled(ctx)
	s.Require().NoError(err)
	s.Require().Len(enabled, 1)

	enabled, err = repo.ListEnabled(ctx)
	s.Require().NoError(err)
	s.Require().Len(enabled, 1)

	s.Require().NoError(repo.SetEnabled(ctx, workflow.ID, false))

	enabled, err = repo.ListEnabled(ctx)
	s.Require().NoError(err)
	s.Require().Empty(enabled)

	inner.AssertExpectations(s.T())
}
