package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type PostgresIntegrationTestSuite struct {
	suite.Suite

	container *postgres.PostgresContainer
	db        *sqlx.DB
}

func TestPostgresIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test that requires docker")
	}

	suite.Run(t, new(PostgresIntegrationTestSuite))
}

func (s *PostgresIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("visa_processing"),
		postgres.WithUsername("visa"),
		postgres.WithPassword("visa"),
		postgres.BasicWaitStrategies(),
	)
	s.Require().NoError(err)
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	s.Require().NoError(err)

	s.db, err = sqlx.ConnectContext(ctx, "postgres", dsn)
	s.Require().NoError(err)

	s.Require().NoError(Migrate(ctx, s.db))
	// Applying the schema twice must be harmless.
	s.Require().NoError(Migrate(ctx, s.db))
}

func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}

	if s.container != nil {
		s.Require().NoError(testcontainers.TerminateContainer(s.container))
	}
}

func (s *PostgresIntegrationTestSuite) TestOrderUpsertKeepsWorkflowState() {
	ctx := s.T().Context()
	repo := NewOrderRepository(s.db)

	order := &domain.Order{
		OrderID:       "VZ-" + uuid.NewString()[:8],
		ClientName:    "Noa Cohen",
		ClientEmail:   "noa@example.com",
		Country:       "vietnam",
		VisaType:      "e-visa",
		Status:        domain.OrderStatusPending,
		Amount:        4900,
		Currency:      "USD",
		PaymentStatus: domain.PaymentStatusUnpaid,
		Source:        domain.OrderSourceVizi,
		Metadata:      []byte(`{"campaign":"spring"}`),
	}

	inserted := s.upsert(ctx, repo, order)
	s.Require().True(inserted)

	s.Require().NoError(repo.UpdateStatus(ctx, order.ID, domain.OrderStatusSubmitted))

	update := *order
	update.ID = uuid.Nil
	update.PaymentStatus = domain.PaymentStatusPaid
	update.Status = domain.OrderStatusPending

	inserted = s.upsert(ctx, repo, &update)
	s.Require().False(inserted)
	s.Require().Equal(order.ID, update.ID)
	s.Require().Equal(domain.OrderStatusSubmitted, update.Status)

	stored, err := repo.FindByOrderID(ctx, order.OrderID)
	s.Require().NoError(err)
	s.Require().Equal(domain.PaymentStatusPaid, stored.PaymentStatus)
	s.Require().Equal(domain.OrderStatusSubmitted, stored.Status)
	s.Require().JSONEq(`{"campaign":"spring"}`, string(stored.Metadata))

	orders, total, err := repo.List(ctx, domain.OrderFilter{Search: "noa@"}, domain.NewPageRequest(1, 10))
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(total, 1)
	s.Require().NotEmpty(orders)

	completed, err := repo.MarkCompletedByOrderIDs(ctx, []string{order.OrderID, "VZ-unknown"})
	s.Require().NoError(err)
	s.Require().Equal([]uuid.UUID{order.ID}, completed)

	again, err := repo.MarkCompletedByOrderIDs(ctx, []string{order.OrderID})
	s.Require().NoError(err)
	s.Require().Empty(again)
}

func (s *PostgresIntegrationTestSuite) TestOutboxClaimIsExclusive() {
	ctx := s.T().Context()
	repo := NewOutboxRepository(s.db, 2*time.Minute)

	job, err := domain.NewJob(domain.JobOpsAlert, "", map[string]string{"message": "queue backlog"}, domain.JobOptions{})
	s.Require().NoError(err)

	event := domain.NewOutboxEvent(domain.AggregateOrder, uuid.New(), job)

	tx, err := s.db.BeginTxx(ctx, nil)
	s.Require().NoError(err)
	s.Require().NoError(repo.SaveInTx(ctx, tx, event))
	s.Require().NoError(tx.Commit())

	pending, err := repo.FindPending(ctx, 100)
	s.Require().NoError(err)
	s.Require().NotEmpty(pending)
	// Critical jobs carry the highest priority and come first.
	s.Require().Equal(domain.PriorityUrgent, pending[0].Priority)

	claimed, err := repo.ClaimForProcessing(ctx, event.ID.String())
	s.Require().NoError(err)
	s.Require().Equal(job.ID, claimed.Job.ID)

	_, err = repo.ClaimForProcessing(ctx, event.ID.String())
	s.Require().ErrorIs(err, domain.ErrNotFound)

	next := time.Now().Add(-time.Second)
	s.Require().NoError(repo.MarkFailed(ctx, event.ID.String(), "broker unavailable", &next))

	retryable, err := repo.FindRetryable(ctx, 10)
	s.Require().NoError(err)
	s.Require().NotEmpty(retryable)

	s.Require().NoError(repo.MarkPublished(ctx, event.ID.String()))
}

func (s *PostgresIntegrationTestSuite) TestWorkflowOptimisticUpdate() {
	ctx := s.T().Context()
	repo := NewWorkflowRepository(s.db)

	workflow := &domain.Workflow{
		Name:    "welcome message",
		Trigger: domain.TriggerOrderCreated,
		Config:  domain.WorkflowConfig{Actions: []domain.WorkflowAction{{Job: domain.JobWhatsAppSend}}},
		Enabled: true,
	}
	s.Require().NoError(repo.Create(ctx, workflow))

	stale := *workflow

	workflow.Name = "welcome message v2"
	s.Require().NoError(repo.Update(ctx, workflow))
	s.Require().Equal(2, workflow.Version)

	stale.Name = "lost update"
	err := repo.Update(ctx, &stale)
	s.Require().ErrorIs(err, domain.ErrConcurrentModification)
}

func (s *PostgresIntegrationTestSuite) upsert(ctx context.Context, repo *OrderRepository, order *domain.Order) bool {
	tx, err := s.db.BeginTxx(ctx, nil)
	s.Require().NoError(err)

	inserted, err := repo.UpsertInTx(ctx, tx, order)
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	return inserted
}
