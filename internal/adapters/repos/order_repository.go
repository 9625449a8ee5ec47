package repos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const (
	ordersTable   = "orders"
	orderResource = "order"
)

var orderColumns = []string{
	"id", "order_id", "client_name", "client_email", "client_phone", "country", "visa_type",
	"travel_date", "status", "amount", "currency", "payment_status", "source", "document_url",
	"metadata", "created_at", "updated_at",
}

type (
	OrderRepository struct {
		conn *sqlx.DB
	}

	orderRow struct {
		ID            uuid.UUID  `db:"id"`
		OrderID       string     `db:"order_id"`
		ClientName    string     `db:"client_name"`
		ClientEmail   string     `db:"client_email"`
		ClientPhone   string     `db:"client_phone"`
		Country       string     `db:"country"`
		VisaType      string     `db:"visa_type"`
		TravelDate    *time.Time `db:"travel_date"`
		Status        string     `db:"status"`
		Amount        int64      `db:"amount"`
		Currency      string     `db:"currency"`
		PaymentStatus string     `db:"payment_status"`
		Source        string     `db:"source"`
		DocumentURL   *string    `db:"document_url"`
		Metadata      []byte     `db:"metadata"`
		CreatedAt     time.Time  `db:"created_at"`
		UpdatedAt     time.Time  `db:"updated_at"`
	}
)

func NewOrderRepository(db *sqlx.DB) *OrderRepository {
	return &OrderRepository{
		conn: db,
	}
}

func (r *OrderRepository) CreateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now

	query, args, err := psql.Insert(ordersTable).
		Columns(orderColumns...).
		Values(orderValues(order)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(orderResource, "order_id", order.OrderID)
		}

		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// UpsertInTx keeps the status and document of an existing order, partner updates
// only refresh the client, visa and payment fields.
func (r *OrderRepository) UpsertInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) (bool, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	now := time.Now().UTC()
	order.CreatedAt, order.UpdatedAt = now, now

	query, args, err := psql.Insert(ordersTable).
		Columns(orderColumns...).
		Values(orderValues(order)...).
		Suffix(`ON CONFLICT (order_id) DO UPDATE SET
			client_name = EXCLUDED.client_name,
			client_email = EXCLUDED.client_email,
			client_phone = EXCLUDED.client_phone,
			country = EXCLUDED.country,
			visa_type = EXCLUDED.visa_type,
			travel_date = COALESCE(EXCLUDED.travel_date, orders.travel_date),
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			payment_status = EXCLUDED.payment_status,
			metadata = COALESCE(EXCLUDED.metadata, orders.metadata),
			updated_at = EXCLUDED.updated_at
		RETURNING id, status, document_url, created_at, (xmax = 0) AS inserted`).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build upsert query: %w", err)
	}

	var result struct {
		ID          uuid.UUID `db:"id"`
		Status      string    `db:"status"`
		DocumentURL *string   `db:"document_url"`
		CreatedAt   time.Time `db:"created_at"`
		Inserted    bool      `db:"inserted"`
	}

	if err := tx.GetContext(ctx, &result, query, args...); err != nil {
		return false, fmt.Errorf("failed to upsert order: %w", err)
	}

	order.ID = result.ID
	order.Status = domain.OrderStatus(result.Status)
	order.CreatedAt = result.CreatedAt

	if result.DocumentURL != nil {
		order.DocumentURL = *result.DocumentURL
	}

	return result.Inserted, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, id.String())
}

func (r *OrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.findOne(ctx, sq.Eq{"order_id": orderID}, orderID)
}

func (r *OrderRepository) findOne(ctx context.Context, criteria sq.Sqlizer, id string) (*domain.Order, error) {
	query, args, err := psql.Select(orderColumns...).
		From(ordersTable).
		Where(criteria).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row orderRow
	if err := r.conn.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, orderResource, id, "query")
	}

	return row.toDomain(), nil
}

func (r *OrderRepository) List(ctx context.Context, filter domain.OrderFilter, page domain.PageRequest) ([]*domain.Order, int, error) {
	criteria := orderCriteria(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(ordersTable).Where(criteria).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	if total == 0 {
		return []*domain.Order{}, 0, nil
	}

	query, args, err := psql.Select(orderColumns...).
		From(ordersTable).
		Where(criteria).
		OrderBy("created_at DESC", "id").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []orderRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		orders = append(orders, rows[i].toDomain())
	}

	return orders, total, nil
}

func (r *OrderRepository) UpdateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error {
	order.UpdatedAt = time.Now().UTC()

	query, args, err := psql.Update(ordersTable).
		SetMap(map[string]any{
			"client_name":    order.ClientName,
			"client_email":   order.ClientEmail,
			"client_phone":   order.ClientPhone,
			"country":        order.Country,
			"visa_type":      order.VisaType,
			"travel_date":    order.TravelDate,
			"status":         string(order.Status),
			"amount":         order.Amount,
			"currency":       order.Currency,
			"payment_status": string(order.PaymentStatus),
			"metadata":       nullableJSON(order.Metadata),
			"updated_at":     order.UpdatedAt,
		}).
		Where(sq.Eq{"id": order.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}

	return ensureAffected(result, orderResource, order.ID.String())
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query, args, err := psql.Update(ordersTable).
		Set("status", string(status)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	return ensureAffected(result, orderResource, id.String())
}

// BulkUpdateStatus returns the ids that existed and were updated.
func (r *OrderRepository) BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.OrderStatus) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}

	query, args, err := psql.Update(ordersTable).
		Set("status", string(status)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": ids}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bulk update query: %w", err)
	}

	var updated []uuid.UUID
	if err := r.conn.SelectContext(ctx, &updated, query, args...); err != nil {
		return nil, fmt.Errorf("failed to bulk update order status: %w", err)
	}

	return updated, nil
}

func (r *OrderRepository) SetDocumentURL(ctx context.Context, id uuid.UUID, url string) error {
	query, args, err := psql.Update(ordersTable).
		Set("document_url", url).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set order document url: %w", err)
	}

	return ensureAffected(result, orderResource, id.String())
}

// MarkCompletedByOrderIDs completes the matching orders that are not closed yet.
// Cancelled and rejected orders stay as they are.
func (r *OrderRepository) MarkCompletedByOrderIDs(ctx context.Context, orderIDs []string) ([]uuid.UUID, error) {
	if len(orderIDs) == 0 {
		return []uuid.UUID{}, nil
	}

	query, args, err := psql.Update(ordersTable).
		Set("status", string(domain.OrderStatusCompleted)).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.And{
			sq.Eq{"order_id": orderIDs},
			sq.NotEq{"status": terminalStatuses()},
		}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	var updated []uuid.UUID
	if err := r.conn.SelectContext(ctx, &updated, query, args...); err != nil {
		return nil, fmt.Errorf("failed to mark orders completed: %w", err)
	}

	return updated, nil
}

func (r *OrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete(ordersTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	return ensureAffected(result, orderResource, id.String())
}

func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	rows, err := r.countBy(ctx, "status", nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.OrderStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.OrderStatus(row.Key)] = row.Count
	}

	return counts, nil
}

func (r *OrderRepository) CountByCountry(ctx context.Context) (map[string]int, error) {
	rows, err := r.countBy(ctx, "country", sq.NotEq{"country": ""})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}

	return counts, nil
}

func (r *OrderRepository) CountByPaymentStatus(ctx context.Context) (map[domain.PaymentStatus]int, error) {
	rows, err := r.countBy(ctx, "payment_status", nil)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.PaymentStatus]int, len(rows))
	for _, row := range rows {
		counts[domain.PaymentStatus(row.Key)] = row.Count
	}

	return counts, nil
}

func (r *OrderRepository) countBy(ctx context.Context, column string, criteria sq.Sqlizer) ([]countRow, error) {
	builder := psql.Select(column+" AS key", "COUNT(*) AS count").
		From(ordersTable).
		GroupBy(column)

	if criteria != nil {
		builder = builder.Where(criteria)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	var rows []countRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to count orders by %s: %w", column, err)
	}

	return rows, nil
}

// Revenue sums paid orders per currency in minor units.
func (r *OrderRepository) Revenue(ctx context.Context) (map[string]int64, error) {
	query, args, err := psql.Select("currency", "COALESCE(SUM(amount), 0) AS total").
		From(ordersTable).
		Where(sq.Eq{"payment_status": string(domain.PaymentStatusPaid)}).
		GroupBy("currency").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build revenue query: %w", err)
	}

	var rows []struct {
		Currency string `db:"currency"`
		Total    int64  `db:"total"`
	}

	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	revenue := make(map[string]int64, len(rows))
	for _, row := range rows {
		revenue[row.Currency] = row.Total
	}

	return revenue, nil
}

func (r *OrderRepository) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(ordersTable).
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count recent orders: %w", err)
	}

	return total, nil
}

// Evict is a no-op, the SQL repository holds no copies.
func (r *OrderRepository) Evict(context.Context, ...uuid.UUID) {}

func orderCriteria(filter domain.OrderFilter) sq.And {
	criteria := sq.And{}

	if filter.Status != "" {
		criteria = append(criteria, sq.Eq{"status": string(filter.Status)})
	}

	if filter.PaymentStatus != "" {
		criteria = append(criteria, sq.Eq{"payment_status": string(filter.PaymentStatus)})
	}

	if filter.Country != "" {
		criteria = append(criteria, sq.Eq{"country": filter.Country})
	}

	if filter.Source != "" {
		criteria = append(criteria, sq.Eq{"source": filter.Source})
	}

	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		criteria = append(criteria, sq.Or{
			sq.ILike{"order_id": pattern},
			sq.ILike{"client_name": pattern},
			sq.ILike{"client_email": pattern},
		})
	}

	if filter.CreatedFrom != nil {
		criteria = append(criteria, sq.GtOrEq{"created_at": *filter.CreatedFrom})
	}

	if filter.CreatedTo != nil {
		criteria = append(criteria, sq.Lt{"created_at": *filter.CreatedTo})
	}

	return criteria
}

func orderValues(order *domain.Order) []any {
	var documentURL *string
	if order.DocumentURL != "" {
		documentURL = &order.DocumentURL
	}

	return []any{
		order.ID, order.OrderID, order.ClientName, order.ClientEmail, order.ClientPhone,
		order.Country, order.VisaType, order.TravelDate, string(order.Status), order.Amount,
		order.Currency, string(order.PaymentStatus), order.Source, documentURL,
		nullableJSON(order.Metadata), order.CreatedAt, order.UpdatedAt,
	}
}

func (row orderRow) toDomain() *domain.Order {
	order := &domain.Order{
		ID:            row.ID,
		OrderID:       row.OrderID,
		ClientName:    row.ClientName,
		ClientEmail:   row.ClientEmail,
		ClientPhone:   row.ClientPhone,
		Country:       row.Country,
		VisaType:      row.VisaType,
		TravelDate:    row.TravelDate,
		Status:        domain.OrderStatus(row.Status),
		Amount:        row.Amount,
		Currency:      row.Currency,
		PaymentStatus: domain.PaymentStatus(row.PaymentStatus),
		Source:        row.Source,
		Metadata:      row.Metadata,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}

	if row.DocumentURL != nil {
		order.DocumentURL = *row.DocumentURL
	}

	return order
}

func terminalStatuses() []string {
	statuses := domain.TerminalOrderStatuses()
	values := make([]string, 0, len(statuses))

	for _, status := range statuses {
		values = append(values, string(status))
	}

	return values
}
