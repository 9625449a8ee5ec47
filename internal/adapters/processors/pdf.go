package processors

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/adapters/pdf"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const pdfContentType = "application/pdf"

var documentEmailTemplate = template.Must(template.New("document_ready").Parse(`<p>Hello {{.Name}},</p>
<p>The summary of your visa order <strong>{{.OrderID}}</strong> is ready.</p>
<p><a href="{{.URL}}">Download your document</a></p>
<p>Thank you for choosing us.</p>`))

// PDFProcessor renders the order summary, stores it and optionally mails the link.
type PDFProcessor struct {
	orders    ports.OrderRepository
	renderer  ports.PDFRenderer
	documents ports.DocumentStore
	queue     ports.JobQueue
	jobs      JobBuilder
	now       func() time.Time
	logger    infrastructure.Logger
}

func NewPDFProcessor(
	orders ports.OrderRepository,
	renderer ports.PDFRenderer,
	documents ports.DocumentStore,
	queue ports.JobQueue,
	jobs JobBuilder,
	logger infrastructure.Logger,
) *PDFProcessor {
	return &PDFProcessor{
		orders:    orders,
		renderer:  renderer,
		documents: documents,
		queue:     queue,
		jobs:      jobs,
		now:       time.Now,
		logger:    logger.Component("pdf-processor"),
	}
}

func (p *PDFProcessor) Process(ctx context.Context, job *domain.Job) (map[string]any, error) {
	var payload domain.PDFPayload
	if err := job.Decode(&payload); err != nil {
		return nil, err
	}

	order, err := p.orders.FindByID(ctx, payload.OrderID)
	if err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to load order", err)
	}

	html, err := pdf.RenderOrderSummary(order, p.now().UTC())
	if err != nil {
		return nil, domain.PermanentJobError(codeTemplateFailed, "failed to render order summary", err)
	}

	document, err := p.renderer.Render(ctx, html)
	if err != nil {
		return nil, retryable(domain.CodeExternalService, "failed to render pdf", err)
	}

	url, err := p.documents.Upload(ctx, pdf.DocumentKey(order), pdfContentType, document)
	if err != nil {
		return nil, retryable(codeStorageFailed, "failed to upload pdf", err)
	}

	if err := p.orders.SetDocumentURL(ctx, order.ID, url); err != nil {
		return nil, retryable(codeDatabaseFailed, "failed to store document url", err)
	}

	data := map[string]any{
		"document_url": url,
		"size_bytes":   len(document),
		"emailed":      false,
	}

	if payload.EmailClient && order.ClientEmail != "" {
		if err := p.queueEmail(ctx, order, url); err != nil {
			// The document exists, a rerun would only render it again.
			p.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("failed to queue document email")
		} else {
			data["emailed"] = true
		}
	}

	p.logger.Info().
		Str("order_id", order.OrderID).
		Str("document_url", url).
		Int("size_bytes", len(document)).
		Msg("order document generated")

	return data, nil
}

func (p *PDFProcessor) queueEmail(ctx context.Context, order *domain.Order, url string) error {
	var body bytes.Buffer
	if err := documentEmailTemplate.Execute(&body, struct {
		Name    string
		OrderID string
		URL     string
	}{order.ClientName, order.OrderID, url}); err != nil {
		return fmt.Errorf("failed to render document email: %w", err)
	}

	email, err := p.jobs.Job(domain.JobEmailSend, "", domain.EmailPayload{
		To:       []string{order.ClientEmail},
		Subject:  fmt.Sprintf("Your visa order %s", order.OrderID),
		HTMLBody: body.String(),
		TextBody: fmt.Sprintf("The summary of your visa order %s is ready: %s", order.OrderID, url),
		OrderID:  order.OrderID,
	}, domain.JobOptions{})
	if err != nil {
		return err
	}

	email.OrderID = order.OrderID

	return p.queue.Enqueue(ctx, email)
}
