package processors

import (
	"context"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// WhatsAppProcessor sends a template message to the client of an order.
type WhatsAppProcessor struct {
	client ports.MessagingClient
	orders ports.OrderRepository
	logger infrastructure.Logger
}

func NewWhatsAppProcessor(client ports.MessagingClient, orders ports.OrderRepository, logger infrastructure.Logger) *WhatsAppProcessor {
	return &WhatsAppProcessor{
		client: client,
		orders: orders,
		logger: logger.Component("whatsapp-processor"),
	}
}

func (p *WhatsAppProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.WhatsAppPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	phone := domain.NormalizePhone(payload.Phone)
	if phone == "" {
		return nil, domain.PermanentJobError(codeNoPhone, "invalid phone number", nil)
	}

	template := payload.Template
	if template == "" {
		template = p.templateFor(ctx, payload.OrderID)
	}

	contact := domain.Contact{Phone: phone, FirstName: payload.Params["name"]}

	contactID, err := p.client.EnsureContact(ctx, contact)
	if err != nil {
		return nil, classifyMessagingError("failed to resolve whatsapp contact", err)
	}

	if err := p.client.SendTemplate(ctx, contactID, template, payload.Params); err != nil {
		return nil, classifyMessagingError("failed to send whatsapp template", err)
	}

	p.logger.Info().
		Str("job_id", job.ID).
		Str("contact_id", contactID).
		Str("template", template).
		Msg("whatsapp message sent")

	return map[string]any{
		"contact_id": contactID,
		"template":   template,
	}, nil
}

// templateFor picks the country template of the order, or the generic one.
func (p *WhatsAppProcessor) templateFor(ctx context.Context, orderID uuid.UUID) string {
	if orderID == uuid.Nil {
		return domain.GenericTemplate
	}

	order, err := p.orders.FindByID(ctx, orderID)
	if err != nil {
		p.logger.Warn().Err(err).Str("order_id", orderID.String()).Msg("order lookup failed, using the generic template")

		return domain.GenericTemplate
	}

	return domain.TemplateForCountry(order.Country)
}
