package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const defaultCurrency = "USD"

type (
	OrderService interface {
		Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
		// Ingest upserts a partner order by order_id and reports whether it was new.
		Ingest(ctx context.Context, order *domain.Order) (*domain.Order, bool, error)
		Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
		List(ctx context.Context, filter domain.OrderFilter, page domain.PageRequest) (domain.Page[*domain.Order], error)
		Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch) (*domain.Order, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// RequestDocument schedules the PDF summary of the order.
		RequestDocument(ctx context.Context, id uuid.UUID, emailClient bool) (*domain.Job, error)
	}

	orderService struct {
		db           ports.Transactor
		orderRepo    ports.OrderRepository
		outboxRepo   ports.OutboxRepository
		workflows    WorkflowService
		factory      JobFactory
		emailOnReady bool
		logger       infrastructure.Logger
	}
)

func NewOrderService(
	db ports.Transactor,
	orderRepo ports.OrderRepository,
	outboxRepo ports.OutboxRepository,
	workflows WorkflowService,
	factory JobFactory,
	emailOnReady bool,
	logger infrastructure.Logger,
) OrderService {
	return &orderService{
		db:           db,
		orderRepo:    orderRepo,
		outboxRepo:   outboxRepo,
		workflows:    workflows,
		factory:      factory,
		emailOnReady: emailOnReady,
		logger:       logger.Component("orders"),
	}
}

func (s *orderService) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	prepareOrder(order, domain.OrderSourceAPI)

	if fields := order.Validate(); len(fields) > 0 {
		return nil, domain.NewValidationError("invalid order", fields...)
	}

	err := inTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		if err := s.orderRepo.CreateInTx(ctx, tx, order); err != nil {
			return err
		}

		return s.dispatch(ctx, tx, order, domain.TriggerOrderCreated)
	})
	if err != nil {
		return nil, err
	}

	s.orderRepo.Evict(ctx, order.ID)

	s.logger.Info().
		Str("order_id", order.OrderID).
		Str("id", order.ID.String()).
		Str("source", order.Source).
		Msg("order created")

	return order, nil
}

func (s *orderService) Ingest(ctx context.Context, order *domain.Order) (*domain.Order, bool, error) {
	prepareOrder(order, domain.OrderSourceAPI)

	if fields := order.Validate(); len(fields) > 0 {
		return nil, false, domain.NewValidationError("invalid order", fields...)
	}

	var created bool

	err := inTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		inserted, err := s.orderRepo.UpsertInTx(ctx, tx, order)
		if err != nil {
			return err
		}

		created = inserted
		if inserted {
			return s.dispatch(ctx, tx, order, domain.TriggerOrderCreated)
		}

		// Re-delivered orders only get their document once payment lands.
		jobs, err := s.workflowJobs(ctx, order, domain.TriggerOrderUpdated, "")
		if err != nil {
			return err
		}

		if order.IsPaid() && order.DocumentURL == "" {
			job, err := s.pdfJob(order, s.emailOnReady)
			if err != nil {
				return err
			}

			jobs = append(jobs, job)
		}

		return saveJobs(ctx, tx, s.outboxRepo, s.factory, domain.AggregateOrder, order.ID, jobs)
	})
	if err != nil {
		return nil, false, err
	}

	s.orderRepo.Evict(ctx, order.ID)

	s.logger.Info().
		Str("order_id", order.OrderID).
		Str("source", order.Source).
		Bool("created", created).
		Msg("order ingested")

	return order, created, nil
}

func (s *orderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.orderRepo.FindByID(ctx, id)
}

func (s *orderService) List(
	ctx context.Context,
	filter domain.OrderFilter,
	page domain.PageRequest,
) (domain.Page[*domain.Order], error) {
	orders, total, err := s.orderRepo.List(ctx, filter, page)
	if err != nil {
		return domain.Page[*domain.Order]{}, fmt.Errorf("failed to list orders: %w", err)
	}

	return domain.NewPage(orders, page, total), nil
}

func (s *orderService) Update(ctx context.Context, id uuid.UUID, patch domain.OrderPatch) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	wasPaid := order.IsPaid()

	previous, err := order.Apply(patch)
	if err != nil {
		return nil, err
	}

	if fields := order.Validate(); len(fields) > 0 {
		return nil, domain.NewValidationError("invalid order", fields...)
	}

	trigger := domain.TriggerOrderUpdated
	if previous != order.Status {
		trigger = domain.TriggerOrderStatusChanged
	}

	err = inTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		if err := s.orderRepo.UpdateInTx(ctx, tx, order); err != nil {
			return err
		}

		jobs, err := s.workflowJobs(ctx, order, trigger, previous)
		if err != nil {
			return err
		}

		if !wasPaid && order.IsPaid() {
			job, err := s.pdfJob(order, s.emailOnReady)
			if err != nil {
				return err
			}

			jobs = append(jobs, job)
		}

		return saveJobs(ctx, tx, s.outboxRepo, s.factory, domain.AggregateOrder, order.ID, jobs)
	})
	if err != nil {
		return nil, err
	}

	s.orderRepo.Evict(ctx, order.ID)

	return order, nil
}

func (s *orderService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.orderRepo.Delete(ctx, id)
}

func (s *orderService) RequestDocument(ctx context.Context, id uuid.UUID, emailClient bool) (*domain.Job, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := s.pdfJob(order, emailClient)
	if err != nil {
		return nil, err
	}

	err = inTx(ctx, s.db, s.logger, func(tx *sqlx.Tx) error {
		return saveJobs(ctx, tx, s.outboxRepo, s.factory, domain.AggregateOrder, order.ID, []*domain.Job{job})
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// dispatch writes the notification jobs of a new order and the jobs of the
// workflows reacting to trigger.
func (s *orderService) dispatch(
	ctx context.Context,
	tx *sqlx.Tx,
	order *domain.Order,
	trigger domain.WorkflowTrigger,
) error {
	jobs, err := s.notificationJobs(order)
	if err != nil {
		return err
	}

	workflowJobs, err := s.workflowJobs(ctx, order, trigger, "")
	if err != nil {
		return err
	}

	jobs = append(jobs, workflowJobs...)

	return saveJobs(ctx, tx, s.outboxRepo, s.factory, domain.AggregateOrder, order.ID, jobs)
}

func (s *orderService) notificationJobs(order *domain.Order) ([]*domain.Job, error) {
	var jobs []*domain.Job

	if order.ClientPhone != "" {
		whatsapp, err := s.factory.Job(domain.JobWhatsAppSend, "", domain.WhatsAppPayload{
			OrderID:  order.ID,
			Phone:    order.ClientPhone,
			Template: domain.TemplateForCountry(order.Country),
			Params: map[string]string{
				"name":     order.ClientName,
				"order_id": order.OrderID,
			},
		}, domain.JobOptions{})
		if err != nil {
			return nil, err
		}

		sync, err := s.factory.Job(domain.JobCBBSyncContact, "", domain.CBBSyncPayload{OrderID: order.ID}, domain.JobOptions{})
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, withOrder(whatsapp, order), withOrder(sync, order))
	}

	if order.IsPaid() {
		pdf, err := s.pdfJob(order, s.emailOnReady)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, pdf)
	}

	return jobs, nil
}

func (s *orderService) pdfJob(order *domain.Order, emailClient bool) (*domain.Job, error) {
	job, err := s.factory.Job(domain.JobPDFGenerate, "", domain.PDFPayload{
		OrderID:     order.ID,
		EmailClient: emailClient && order.ClientEmail != "",
	}, domain.JobOptions{})
	if err != nil {
		return nil, err
	}

	return withOrder(job, order), nil
}

func (s *orderService) workflowJobs(
	ctx context.Context,
	order *domain.Order,
	trigger domain.WorkflowTrigger,
	previous domain.OrderStatus,
) ([]*domain.Job, error) {
	if s.workflows == nil {
		return nil, nil
	}

	return s.workflows.JobsForEvent(ctx, domain.OrderEvent{
		Type:           trigger,
		Order:          *order,
		PreviousStatus: previous,
		OccurredAt:     time.Now().UTC(),
	})
}

// prepareOrder normalizes contact fields and fills the defaults of a new order.
func prepareOrder(order *domain.Order, source string) {
	order.ClientEmail = domain.NormalizeEmail(order.ClientEmail)
	order.ClientPhone = domain.NormalizePhone(order.ClientPhone)

	if code, ok := domain.NormalizeCountry(order.Country); ok {
		order.Country = code
	}

	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	if order.PaymentStatus == "" {
		order.PaymentStatus = domain.PaymentStatusUnpaid
	}

	if order.Currency == "" {
		order.Currency = defaultCurrency
	}

	if order.Source == "" {
		order.Source = source
	}
}

func withOrder(job *domain.Job, order *domain.Order) *domain.Job {
	job.OrderID = order.OrderID

	return job
}
