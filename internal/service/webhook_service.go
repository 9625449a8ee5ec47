package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

var authEmailTemplate = template.Must(template.New("auth-email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif">
  <h2>{{ .Subject }}</h2>
  <p>Use the link below to continue.</p>
  <p><a href="{{ .Link }}">{{ .Subject }}</a></p>
  {{ if .Token }}<p>Or enter this code: <strong>{{ .Token }}</strong></p>{{ end }}
</body>
</html>`))

type (
	WebhookService interface {
		// IngestOrder validates a partner payload and upserts the order it carries.
		IngestOrder(ctx context.Context, source string, body []byte) (*domain.Order, bool, error)
		// HandleAuthEmail verifies a Supabase Send Email hook and queues the email.
		HandleAuthEmail(ctx context.Context, headers http.Header, body []byte) error
	}

	webhookService struct {
		parser   ports.WebhookParser
		verifier ports.WebhookVerifier
		orders   OrderService
		queue    ports.JobQueue
		factory  JobFactory
		logger   infrastructure.Logger
	}
)

func NewWebhookService(
	parser ports.WebhookParser,
	verifier ports.WebhookVerifier,
	orders OrderService,
	queue ports.JobQueue,
	factory JobFactory,
	logger infrastructure.Logger,
) WebhookService {
	return &webhookService{
		parser:   parser,
		verifier: verifier,
		orders:   orders,
		queue:    queue,
		factory:  factory,
		logger:   logger.Component("webhooks"),
	}
}

func (s *webhookService) IngestOrder(ctx context.Context, source string, body []byte) (*domain.Order, bool, error) {
	order, err := s.parser.Parse(source, body)
	if err != nil {
		s.logger.Warn().Err(err).Str("source", source).Msg("rejected webhook payload")

		return nil, false, err
	}

	return s.orders.Ingest(ctx, order)
}

func (s *webhookService) HandleAuthEmail(ctx context.Context, headers http.Header, body []byte) error {
	if s.verifier == nil {
		return domain.NewServiceUnavailableError("auth hook secret is not configured", nil)
	}

	if err := s.verifier.Verify(headers, body); err != nil {
		return domain.NewInvalidSignatureError(err)
	}

	var payload domain.AuthHookEmailPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return domain.NewMalformedBodyError(err)
	}

	email := domain.NormalizeEmail(payload.User.Email)
	if !domain.ValidEmail(email) {
		return domain.NewValidationError("invalid auth hook payload", domain.FieldError{
			Field:   "user.email",
			Message: "is not a valid email",
		})
	}

	message, err := renderAuthEmail(email, payload.EmailData)
	if err != nil {
		return domain.NewInternalServerError("failed to render auth email", err)
	}

	job, err := s.factory.Job(domain.JobEmailSend, domain.QueueCritical, message, domain.JobOptions{})
	if err != nil {
		return domain.NewInternalServerError("failed to build auth email job", err)
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return domain.NewServiceUnavailableError("failed to queue auth email", err)
	}

	s.logger.Info().
		Str("user_id", payload.User.ID).
		Str("action", payload.EmailData.EmailActionType).
		Str("job_id", job.ID).
		Msg("auth email queued")

	return nil
}

func renderAuthEmail(to string, data domain.AuthHookEmailData) (domain.EmailPayload, error) {
	subject := domain.AuthEmailSubject(data.EmailActionType)
	link := verifyLink(data)

	var body bytes.Buffer

	err := authEmailTemplate.Execute(&body, struct {
		Subject string
		Link    string
		Token   string
	}{
		Subject: subject,
		Link:    link,
		Token:   data.Token,
	})
	if err != nil {
		return domain.EmailPayload{}, fmt.Errorf("failed to render auth email: %w", err)
	}

	text := subject + "\n\n" + link
	if data.Token != "" {
		text += "\n\nCode: " + data.Token
	}

	return domain.EmailPayload{
		To:       []string{to},
		Subject:  subject,
		HTMLBody: body.String(),
		TextBody: text,
	}, nil
}

// verifyLink points at the Supabase verify endpoint of the site the hook was sent for.
func verifyLink(data domain.AuthHookEmailData) string {
	query := url.Values{}
	query.Set("token", data.TokenHash)
	query.Set("type", data.EmailActionType)

	if data.RedirectTo != "" {
		query.Set("redirect_to", data.RedirectTo)
	}

	return strings.TrimSuffix(data.SiteURL, "/") + "/auth/v1/verify?" + query.Encode()
}
