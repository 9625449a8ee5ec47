package repos

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type RepositoriesTestSuite struct {
	suite.Suite

	db   *sqlx.DB
	mock sqlmock.Sqlmock

	orders    *OrderRepository
	apiKeys   *ApiKeyRepository
	workflows *WorkflowRepository
	logs      *LogEntryRepository
	scraper   *ScraperJobRepository
	outbox    *OutboxRepository
}

func TestRepositoriesTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RepositoriesTestSuite))
}

func (s *RepositoriesTestSuite) SetupTest() {
	conn, mock, err := sqlmock.New()
	s.Require().NoError(err)

	s.db = sqlx.NewDb(conn, "sqlmock")
	s.mock = mock
	s.orders = NewOrderRepository(s.db)
	s.apiKeys = NewApiKeyRepository(s.db)
	s.workflows = NewWorkflowRepository(s.db)
	s.logs = NewLogEntryRepository(s.db)
	s.scraper = NewScraperJobRepository(s.db)
	s.outbox = NewOutboxRepository(s.db, 2*time.Minute)
}

func (s *RepositoriesTestSuite) TearDownTest() {
	s.Require().NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func (s *RepositoriesTestSuite) orderRows(orders ...*domain.Order) *sqlmock.Rows {
	rows := sqlmock.NewRows(orderColumns)
	for _, o := range orders {
		rows.AddRow(o.ID.String(), o.OrderID, o.ClientName, o.ClientEmail, o.ClientPhone, o.Country, o.VisaType,
			nil, string(o.Status), o.Amount, o.Currency, string(o.PaymentStatus), o.Source, nil,
			[]byte(`{"channel":"web"}`), o.CreatedAt, o.UpdatedAt)
	}

	return rows
}

func sampleOrder() *domain.Order {
	now := time.Now().UTC().Truncate(time.Second)

	return &domain.Order{
		ID:            uuid.New(),
		OrderID:       "VZ-1001",
		ClientName:    "Dana Levi",
		ClientEmail:   "dana@example.com",
		ClientPhone:   "972501234567",
		Country:       "india",
		VisaType:      "tourist",
		Status:        domain.OrderStatusPending,
		Amount:        12900,
		Currency:      "USD",
		PaymentStatus: domain.PaymentStatusPaid,
		Source:        domain.OrderSourceVizi,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (s *RepositoriesTestSuite) TestOrderFindByID() {
	order := sampleOrder()

	s.mock.ExpectQuery(`SELECT .+ FROM orders WHERE id = \$1 LIMIT 1`).
		WithArgs(order.ID).
		WillReturnRows(s.orderRows(order))

	found, err := s.orders.FindByID(s.T().Context(), order.ID)

	s.Require().NoError(err)
	s.Require().Equal(order.OrderID, found.OrderID)
	s.Require().Equal(domain.PaymentStatusPaid, found.PaymentStatus)
	s.Require().JSONEq(`{"channel":"web"}`, string(found.Metadata))
	s.Require().Empty(found.DocumentURL)
}

func (s *RepositoriesTestSuite) TestOrderFindByOrderIDNotFound() {
	s.mock.ExpectQuery(`SELECT .+ FROM orders WHERE order_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.orders.FindByOrderID(s.T().Context(), "missing")

	s.Require().Error(err)
	s.Require().ErrorIs(err, domain.ErrNotFound)
	s.Require().Equal(domain.CodeNotFound, domain.AsDomainError(err).Code)
}

func (s *RepositoriesTestSuite) TestOrderCreateInTxConflict() {
	order := sampleOrder()

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO orders`).WillReturnError(&pq.Error{Code: uniqueViolation})
	s.mock.ExpectRollback()

	tx, err := s.db.BeginTxx(s.T().Context(), nil)
	s.Require().NoError(err)

	err = s.orders.CreateInTx(s.T().Context(), tx, order)
	s.Require().NoError(tx.Rollback())

	s.Require().ErrorIs(err, domain.ErrConflict)
	s.Require().Equal(domain.CodeConflict, domain.AsDomainError(err).Code)
}

func (s *RepositoriesTestSuite) TestOrderUpsertInTxReportsInsert() {
	order := sampleOrder()
	order.ID = uuid.Nil
	existingID := uuid.New()

	s.mock.ExpectBegin()
	s.mock.ExpectQuery(`INSERT INTO orders .+ ON CONFLICT \(order_id\) DO UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "document_url", "created_at", "inserted"}).
			AddRow(existingID.String(), "submitted", "https://files/doc.pdf", time.Now(), false))
	s.mock.ExpectCommit()

	tx, err := s.db.BeginTxx(s.T().Context(), nil)
	s.Require().NoError(err)

	inserted, err := s.orders.UpsertInTx(s.T().Context(), tx, order)
	s.Require().NoError(err)
	s.Require().NoError(tx.Commit())

	s.Require().False(inserted)
	s.Require().Equal(existingID, order.ID)
	s.Require().Equal(domain.OrderStatusSubmitted, order.Status)
	s.Require().Equal("https://files/doc.pdf", order.DocumentURL)
}

func (s *RepositoriesTestSuite) TestOrderListAppliesFilterAndPaging() {
	order := sampleOrder()

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders WHERE \(status = \$1 AND country = \$2\)`).
		WithArgs("pending", "india").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))
	s.mock.ExpectQuery(`SELECT .+ FROM orders WHERE \(status = \$1 AND country = \$2\) ORDER BY created_at DESC, id LIMIT 20 OFFSET 20`).
		WithArgs("pending", "india").
		WillReturnRows(s.orderRows(order))

	orders, total, err := s.orders.List(
		s.T().Context(),
		domain.OrderFilter{Status: domain.OrderStatusPending, Country: "india"},
		domain.NewPageRequest(2, 20),
	)

	s.Require().NoError(err)
	s.Require().Equal(21, total)
	s.Require().Len(orders, 1)
}

func (s *RepositoriesTestSuite) TestOrderListEmptySkipsSelect() {
	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	orders, total, err := s.orders.List(s.T().Context(), domain.OrderFilter{}, domain.NewPageRequest(1, 20))

	s.Require().NoError(err)
	s.Require().Zero(total)
	s.Require().Empty(orders)
}

func (s *RepositoriesTestSuite) TestOrderBulkUpdateStatusReturnsUpdatedIDs() {
	first, second := uuid.New(), uuid.New()

	s.mock.ExpectQuery(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE id IN \(\$2,\$3\) RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(first.String()))

	updated, err := s.orders.BulkUpdateStatus(s.T().Context(), []uuid.UUID{first, second}, domain.OrderStatusApproved)

	s.Require().NoError(err)
	s.Require().Equal([]uuid.UUID{first}, updated)

	none, err := s.orders.BulkUpdateStatus(s.T().Context(), nil, domain.OrderStatusApproved)
	s.Require().NoError(err)
	s.Require().Empty(none)
}

func (s *RepositoriesTestSuite) TestOrderUpdateStatusNotFound() {
	id := uuid.New()

	s.mock.ExpectExec(`UPDATE orders SET status = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.orders.UpdateStatus(s.T().Context(), id, domain.OrderStatusApproved)

	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositoriesTestSuite) TestOrderAggregates() {
	s.mock.ExpectQuery(`SELECT status AS key, COUNT\(\*\) AS count FROM orders GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).AddRow("pending", 3).AddRow("approved", 2))
	s.mock.ExpectQuery(`SELECT currency, COALESCE\(SUM\(amount\), 0\) AS total FROM orders WHERE payment_status = \$1 GROUP BY currency`).
		WithArgs("paid").
		WillReturnRows(sqlmock.NewRows([]string{"currency", "total"}).AddRow("USD", int64(25800)))

	byStatus, err := s.orders.CountByStatus(s.T().Context())
	s.Require().NoError(err)
	s.Require().Equal(map[domain.OrderStatus]int{"pending": 3, "approved": 2}, byStatus)

	revenue, err := s.orders.Revenue(s.T().Context())
	s.Require().NoError(err)
	s.Require().Equal(map[string]int64{"USD": 25800}, revenue)
}

func (s *RepositoriesTestSuite) TestApiKeyFindByPrefix() {
	id := uuid.New()

	s.mock.ExpectQuery(`SELECT .+ FROM api_keys WHERE prefix = \$1 LIMIT 1`).
		WithArgs("ab12cd34").
		WillReturnRows(sqlmock.NewRows(apiKeyColumns).
			AddRow(id.String(), "n8n", "ab12cd34", "hash", "{webhooks:write,orders:read}", nil, nil, nil, time.Now()))

	key, err := s.apiKeys.FindByPrefix(s.T().Context(), "ab12cd34")

	s.Require().NoError(err)
	s.Require().Equal(id, key.ID)
	s.Require().Equal([]string{"webhooks:write", "orders:read"}, key.Scopes)
	s.Require().True(key.HasScope(domain.ScopeWebhooksWrite))
}

func (s *RepositoriesTestSuite) TestApiKeyCreateConflict() {
	s.mock.ExpectExec(`INSERT INTO api_keys`).WillReturnError(&pq.Error{Code: uniqueViolation})

	err := s.apiKeys.Create(s.T().Context(), &domain.ApiKey{Name: "dup", Prefix: "ab12cd34"})

	s.Require().ErrorIs(err, domain.ErrConflict)
}

func (s *RepositoriesTestSuite) TestWorkflowUpdateVersionConflict() {
	workflow := &domain.Workflow{
		ID:      uuid.New(),
		Name:    "notify approved",
		Trigger: domain.TriggerOrderStatusChanged,
		Config:  domain.WorkflowConfig{Actions: []domain.WorkflowAction{{Job: domain.JobWhatsAppSend}}},
		Version: 3,
	}

	s.mock.ExpectQuery(`UPDATE workflows SET .+ WHERE id = \$\d+ AND version = \$\d+ RETURNING version, updated_at`).
		WillReturnError(sql.ErrNoRows)

	err := s.workflows.Update(s.T().Context(), workflow)

	s.Require().ErrorIs(err, domain.ErrConcurrentModification)
	s.Require().Equal(domain.CodeConflict, domain.AsDomainError(err).Code)
}

func (s *RepositoriesTestSuite) TestWorkflowListEnabledDecodesConfig() {
	id := uuid.New()
	config := `{"condition":"order.country == 'india'","actions":[{"job":"whatsapp.send"}]}`

	s.mock.ExpectQuery(`SELECT .+ FROM workflows WHERE enabled = \$1 ORDER BY created_at ASC`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows(workflowColumns).
			AddRow(id.String(), "india", "", "order.created", []byte(config), true, 1, time.Now(), time.Now()))

	workflows, err := s.workflows.ListEnabled(s.T().Context())

	s.Require().NoError(err)
	s.Require().Len(workflows, 1)
	s.Require().Equal("order.country == 'india'", workflows[0].Config.Condition)
	s.Require().Equal(domain.JobWhatsAppSend, workflows[0].Config.Actions[0].Job)
}

func (s *RepositoriesTestSuite) TestLogEntryCountByLevelSince() {
	since := time.Now().Add(-24 * time.Hour)

	s.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM log_entries WHERE \(level = \$1 AND created_at >= \$2\)`).
		WithArgs("error", since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := s.logs.CountByLevelSince(s.T().Context(), domain.LogLevelError, since)

	s.Require().NoError(err)
	s.Require().Equal(4, count)
}

func (s *RepositoriesTestSuite) TestOrderMarkCompletedSkipsClosedOrders() {
	updated := uuid.New()

	s.mock.ExpectQuery(`UPDATE orders SET status = \$1, updated_at = NOW\(\) WHERE \(order_id IN \(\$2,\$3\) AND status NOT IN \(\$4,\$5,\$6\)\) RETURNING id`).
		WithArgs("completed", "ORD-1", "ORD-2", "completed", "cancelled", "rejected").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(updated.String()))

	ids, err := s.orders.MarkCompletedByOrderIDs(s.T().Context(), []string{"ORD-1", "ORD-2"})

	s.Require().NoError(err)
	s.Require().Equal([]uuid.UUID{updated}, ids)
}

func (s *RepositoriesTestSuite) TestScraperJobMarkCompletedNotFound() {
	s.mock.ExpectExec(`UPDATE scraper_jobs SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.scraper.MarkCompleted(s.T().Context(), uuid.New(), domain.ScrapeResult{RawStatus: "Approved"})

	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositoriesTestSuite) TestOutboxClaimForProcessing() {
	job, err := domain.NewJob(domain.JobPDFGenerate, "", map[string]string{"order_id": "VZ-1"}, domain.JobOptions{})
	s.Require().NoError(err)

	event := domain.NewOutboxEvent(domain.AggregateOrder, uuid.New(), job)
	payload := `{"id":"` + job.ID + `","name":"pdf.generate","queue":"pdf","payload":{"order_id":"VZ-1"},"options":{"attempts":3,"backoff":{"type":"exponential","delay":5000},"priority":5,"remove_on_complete":false},"attempts_made":0,"created_at":"2026-01-01T00:00:00Z"}`

	s.mock.ExpectQuery(`UPDATE outbox_events SET status = \$1, started_at = NOW\(\) WHERE \(id = \$2 AND \(status IN \(\$3,\$4\) OR \(status = \$5 AND started_at < \$6\)\)\) RETURNING`).
		WithArgs("processing", event.ID.String(), "pending", "failed", "processing", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
			event.ID.String(), event.AggregateID.String(), "order", "pdf.generate", "pdf", "normal", 0, 5,
			"processing", []byte(payload), nil, time.Now(), time.Now(), nil, nil,
		))

	claimed, err := s.outbox.ClaimForProcessing(s.T().Context(), event.ID.String())

	s.Require().NoError(err)
	s.Require().Equal(domain.OutboxStatusProcessing, claimed.Status)
	s.Require().Equal(job.ID, claimed.Job.ID)
	s.Require().Equal(domain.QueuePDF, claimed.Job.Queue)
}

func (s *RepositoriesTestSuite) TestOutboxFindRetryableIncludesStaleClaims() {
	job, err := domain.NewJob(domain.JobEmailSend, "", map[string]string{"to": "client@example.com"}, domain.JobOptions{})
	s.Require().NoError(err)

	payload, err := json.Marshal(job)
	s.Require().NoError(err)

	eventID := uuid.New()
	startedAt := time.Now().Add(-10 * time.Minute)
	before := time.Now().Add(-2 * time.Minute)

	s.mock.ExpectQuery(`SELECT .* FROM outbox_events WHERE \(\(status = \$1 AND next_retry_at IS NOT NULL AND next_retry_at <= NOW\(\) AND retry_count < max_retries\) OR \(status = \$2 AND started_at < \$3\)\) ORDER BY COALESCE\(next_retry_at, started_at\) ASC LIMIT 10`).
		WithArgs("failed", "processing", staleCutoff{before: before}).
		WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
			eventID.String(), uuid.NewString(), "order", "email.send", "default", "normal", 0, 5,
			"processing", payload, nil, time.Now().Add(-time.Hour), startedAt, nil, nil,
		))

	events, err := s.outbox.FindRetryable(s.T().Context(), 10)

	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Require().Equal(eventID, events[0].ID)
	s.Require().Equal(domain.OutboxStatusProcessing, events[0].Status)
}

func (s *RepositoriesTestSuite) TestOutboxClaimTakesOverStaleClaim() {
	job, err := domain.NewJob(domain.JobEmailSend, "", map[string]string{"to": "client@example.com"}, domain.JobOptions{})
	s.Require().NoError(err)

	payload, err := json.Marshal(job)
	s.Require().NoError(err)

	eventID := uuid.New()
	before := time.Now().Add(-2 * time.Minute)

	s.mock.ExpectQuery(`UPDATE outbox_events SET status = \$1, started_at = NOW\(\) WHERE .*OR \(status = \$5 AND started_at < \$6\)`).
		WithArgs("processing", eventID.String(), "pending", "failed", "processing", staleCutoff{before: before}).
		WillReturnRows(sqlmock.NewRows(outboxColumns).AddRow(
			eventID.String(), uuid.NewString(), "order", "email.send", "default", "normal", 0, 5,
			"processing", payload, nil, time.Now().Add(-time.Hour), time.Now(), nil, nil,
		))

	claimed, err := s.outbox.ClaimForProcessing(s.T().Context(), eventID.String())

	s.Require().NoError(err)
	s.Require().Equal(job.ID, claimed.Job.ID)
}

func (s *RepositoriesTestSuite) TestOutboxClaimAlreadyClaimed() {
	s.mock.ExpectQuery(`UPDATE outbox_events`).WillReturnError(sql.ErrNoRows)

	_, err := s.outbox.ClaimForProcessing(s.T().Context(), uuid.NewString())

	s.Require().ErrorIs(err, domain.ErrNotFound)
}

func (s *RepositoriesTestSuite) TestOutboxMarkFailedPropagatesDriverErrors() {
	driverErr := errors.New("connection reset")

	s.mock.ExpectExec(`UPDATE outbox_events SET .*retry_count = retry_count \+ 1`).WillReturnError(driverErr)

	next := time.Now().Add(time.Minute)
	err := s.outbox.MarkFailed(s.T().Context(), uuid.NewString(), "broker down", &next)

	s.Require().ErrorIs(err, driverErr)
}

// staleCutoff matches the claim cutoff, which must lie at least the claim timeout in the past.
type staleCutoff struct {
	before time.Time
}

func (c staleCutoff) Match(v driver.Value) bool {
	cutoff, ok := v.(time.Time)

	return ok && !cutoff.After(c.before.Add(time.Second)) && cutoff.After(c.before.Add(-time.Minute))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		term     string
		expected string
	}{
		{term: "dana", expected: "%dana%"},
		{term: " 50% ", expected: `%50\%%`},
		{term: "a_b", expected: `%a\_b%`},
	}

	for _, tc := range testCases {
		t.Run(tc.term, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, likePattern(tc.term))
		})
	}
}
