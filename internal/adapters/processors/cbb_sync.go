package processors

import (
	"context"
	"strconv"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// CBBSyncProcessor mirrors an order onto the CBB contact of its client.
type CBBSyncProcessor struct {
	orders ports.OrderRepository
	client ports.MessagingClient
	logger infrastructure.Logger
}

func NewCBBSyncProcessor(orders ports.OrderRepository, client ports.MessagingClient, logger infrastructure.Logger) *CBBSyncProcessor {
	return &CBBSyncProcessor{
		orders: orders,
		client: client,
		logger: logger.Component("cbb-sync-processor"),
	}
}

func (p *CBBSyncProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.CBBSyncPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	order, err := p.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to load order", err)
	}

	contact := domain.NewContact(order)
	if contact.Phone == "" {
		return nil, domain.PermanentJobError(codeNoPhone, "order has no phone number", nil)
	}

	contactID, err := p.client.EnsureContact(ctx, contact)
	if err != nil {
		return nil, classifyMessagingError("failed to resolve cbb contact", err)
	}

	fields := contactFields(order)
	if err := p.client.SetCustomFields(ctx, contactID, fields); err != nil {
		return nil, classifyMessagingError("failed to set cbb custom fields", err)
	}

	tag := statusTag(order.Status)
	if err := p.client.AddTag(ctx, contactID, tag); err != nil {
		return nil, classifyMessagingError("failed to tag cbb contact", err)
	}

	p.logger.Debug().
		Str("order_id", order.OrderID).
		Str("contact_id", contactID).
		Str("tag", tag).
		Msg("cbb contact synced")

	return map[string]any{
		"contact_id": contactID,
		"fields":     len(fields),
		"tag":        tag,
	}, nil
}

func contactFields(order *domain.Order) map[string]string {
	country, _ := domain.NormalizeCountry(order.Country)

	fields := map[string]string{
		"order_id":       order.OrderID,
		"visa_country":   country,
		"visa_type":      order.VisaType,
		"order_status":   string(order.Status),
		"payment_status": string(order.PaymentStatus),
		"order_amount":   strconv.FormatInt(order.Amount, 10),
		"order_currency": order.Currency,
	}

	if order.TravelDate != nil {
		fields["travel_date"] = order.TravelDate.Format("2006-01-02")
	}

	if order.DocumentURL != "" {
		fields["document_url"] = order.DocumentURL
	}

	return fields
}

func statusTag(status domain.OrderStatus) string {
	return "visa_" + string(status)
}
