package service

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

type OrderServiceTestSuite struct {
	suite.Suite
	sqlMock    sqlmock.Sqlmock
	orderRepo  *mockOrderRepository
	outboxRepo *mockOutboxRepository
	service    OrderService
}

func TestOrderServiceTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	conn, sqlMock, err := sqlmock.New()
	s.Require().NoError(err)

	s.T().Cleanup(func() { _ = conn.Close() })

	s.sqlMock = sqlMock
	s.orderRepo = &mockOrderRepository{}
	s.outboxRepo = &mockOutboxRepository{}
	s.service = NewOrderService(
		sqlx.NewDb(conn, "sqlmock"),
		s.orderRepo,
		s.outboxRepo,
		nil,
		testJobFactory(),
		true,
		infrastructure.NewTestLogger(),
	)
}

func (s *OrderServiceTestSuite) newOrder() *domain.Order {
	return &domain.Order{
		OrderID:     "ORD-1001",
		ClientName:  "Amina",
		ClientEmail: " Amina@Example.com ",
		ClientPhone: "+212 600-112233",
		Country:     "MA",
		VisaType:    "tourist",
		Amount:      12000,
	}
}

func (s *OrderServiceTestSuite) TestCreate_QueuesNotificationsInOneTransaction() {
	order := s.newOrder()
	order.PaymentStatus = domain.PaymentStatusPaid

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectCommit()

	s.orderRepo.On("CreateInTx", mock.Anything, mock.Anything, order).Return(nil)
	s.outboxRepo.On("SaveInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.orderRepo.On("Evict", mock.Anything, mock.Anything).Return()

	created, err := s.service.Create(s.T().Context(), order)

	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPending, created.Status)
	s.Require().Equal("amina@example.com", created.ClientEmail)
	s.Require().Equal("212600112233", created.ClientPhone)
	s.Require().Equal(defaultCurrency, created.Currency)
	s.Require().Equal(domain.OrderSourceAPI, created.Source)
	s.Require().ElementsMatch(
		[]string{domain.JobWhatsAppSend, domain.JobCBBSyncContact, domain.JobPDFGenerate},
		jobNames(s.outboxRepo.Calls),
	)
	s.Require().NoError(s.sqlMock.ExpectationsWereMet())
}

func (s *OrderServiceTestSuite) TestCreate_ValidationFailure() {
	order := &domain.Order{ClientName: "No contact"}

	created, err := s.service.Create(s.T().Context(), order)

	s.Require().Nil(created)

	var domainErr *domain.DomainError
	s.Require().ErrorAs(err, &domainErr)
	s.Require().Equal(domain.CodeValidationFailed, domainErr.Code)
	s.Require().NotEmpty(domainErr.FieldErrors())
	s.orderRepo.AssertNotCalled(s.T(), "CreateInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *OrderServiceTestSuite) TestCreate_OutboxFailureRollsBack() {
	order := s.newOrder()

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectRollback()

	s.orderRepo.On("CreateInTx", mock.Anything, mock.Anything, order).Return(nil)
	s.outboxRepo.On("SaveInTx", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	created, err := s.service.Create(s.T().Context(), order)

	s.Require().Nil(created)
	s.Require().ErrorContains(err, "disk full")
	s.orderRepo.AssertNotCalled(s.T(), "Evict", mock.Anything, mock.Anything)
	s.Require().NoError(s.sqlMock.ExpectationsWereMet())
}

func (s *OrderServiceTestSuite) TestIngest_RedeliveredPaidOrderOnlyQueuesDocument() {
	order := s.newOrder()
	order.Source = domain.OrderSourceVizi
	order.PaymentStatus = domain.PaymentStatusPaid

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectCommit()

	s.orderRepo.On("UpsertInTx", mock.Anything, mock.Anything, order).Return(false, nil)
	s.outboxRepo.On("SaveInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.orderRepo.On("Evict", mock.Anything, mock.Anything).Return()

	ingested, created, err := s.service.Ingest(s.T().Context(), order)

	s.Require().NoError(err)
	s.Require().False(created)
	s.Require().Equal(domain.OrderSourceVizi, ingested.Source)
	s.Require().Equal([]string{domain.JobPDFGenerate}, jobNames(s.outboxRepo.Calls))
	s.Require().NoError(s.sqlMock.ExpectationsWereMet())
}

func (s *OrderServiceTestSuite) TestIngest_RedeliveredUnpaidOrderQueuesNothing() {
	order := s.newOrder()

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectCommit()

	s.orderRepo.On("UpsertInTx", mock.Anything, mock.Anything, order).Return(false, nil)
	s.orderRepo.On("Evict", mock.Anything, mock.Anything).Return()

	_, created, err := s.service.Ingest(s.T().Context(), order)

	s.Require().NoError(err)
	s.Require().False(created)
	s.outboxRepo.AssertNotCalled(s.T(), "SaveInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *OrderServiceTestSuite) TestUpdate_PaymentQueuesDocument() {
	order := s.newOrder()
	order.ID = uuid.New()
	order.ClientEmail = "amina@example.com"
	order.Status = domain.OrderStatusPending
	order.PaymentStatus = domain.PaymentStatusUnpaid

	paid := domain.PaymentStatusPaid
	processing := domain.OrderStatusProcessing

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectCommit()

	s.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	s.orderRepo.On("UpdateInTx", mock.Anything, mock.Anything, order).Return(nil)
	s.outboxRepo.On("SaveInTx", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	s.orderRepo.On("Evict", mock.Anything, []uuid.UUID{order.ID}).Return()

	updated, err := s.service.Update(s.T().Context(), order.ID, domain.OrderPatch{
		Status:        &processing,
		PaymentStatus: &paid,
	})

	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusProcessing, updated.Status)
	s.Require().Equal([]string{domain.JobPDFGenerate}, jobNames(s.outboxRepo.Calls))
	s.orderRepo.AssertExpectations(s.T())
}

func (s *OrderServiceTestSuite) TestUpdate_IllegalTransition() {
	order := s.newOrder()
	order.ID = uuid.New()
	order.Status = domain.OrderStatusCompleted
	order.PaymentStatus = domain.PaymentStatusPaid

	pending := domain.OrderStatusPending

	s.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	updated, err := s.service.Update(s.T().Context(), order.ID, domain.OrderPatch{Status: &pending})

	s.Require().Nil(updated)

	var domainErr *domain.DomainError
	s.Require().ErrorAs(err, &domainErr)
	s.Require().Equal(domain.CodeInvalidTransition, domainErr.Code)
	s.orderRepo.AssertNotCalled(s.T(), "UpdateInTx", mock.Anything, mock.Anything, mock.Anything)
}

func (s *OrderServiceTestSuite) TestRequestDocument() {
	order := s.newOrder()
	order.ID = uuid.New()
	order.ClientEmail = "amina@example.com"

	s.sqlMock.ExpectBegin()
	s.sqlMock.ExpectCommit()

	s.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	s.outboxRepo.On("SaveInTx", mock.Anything, mock.Anything, mock.MatchedBy(func(event *domain.OutboxEvent) bool {
		return event.AggregateID == order.ID && event.AggregateType == domain.AggregateOrder
	})).Return(nil)

	job, err := s.service.RequestDocument(s.T().Context(), order.ID, true)

	s.Require().NoError(err)
	s.Require().Equal(domain.JobPDFGenerate, job.Name)
	s.Require().Equal(order.OrderID, job.OrderID)

	var payload domain.PDFPayload
	s.Require().NoError(job.Decode(&payload))
	s.Require().True(payload.EmailClient)
	s.Require().Equal(order.ID, payload.OrderID)
}

func (s *OrderServiceTestSuite) TestRequestDocument_NotFound() {
	id := uuid.New()

	s.orderRepo.On("FindByID", mock.Anything, id).Return(nil, domain.NewNotFoundError("order", id.String()))

	job, err := s.service.RequestDocument(s.T().Context(), id, false)

	s.Require().Nil(job)
	s.Require().ErrorIs(err, domain.ErrNotFound)
}
