package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const charsetUTF8 = "UTF-8"

type (
	// sesAPI is the part of the SES client the mailer uses.
	sesAPI interface {
		SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	}

	// SESMailer sends transactional email through Amazon SES.
	SESMailer struct {
		client  sesAPI
		sender  string
		enabled bool
		logger  infrastructure.Logger
	}
)

func NewSESMailer(client sesAPI, cfg config.NotificationsConfig, logger infrastructure.Logger) *SESMailer {
	return &SESMailer{
		client:  client,
		sender:  cfg.SenderEmail,
		enabled: cfg.EmailEnabled,
		logger:  logger.Component("ses-mailer"),
	}
}

// Send returns the SES message id, an empty id means delivery is switched off.
func (m *SESMailer) Send(ctx context.Context, email domain.EmailPayload) (string, error) {
	recipients := make([]string, 0, len(email.To))
	for _, to := range email.To {
		if address := domain.NormalizeEmail(to); domain.ValidEmail(address) {
			recipients = append(recipients, address)
		}
	}

	if len(recipients) == 0 {
		return "", domain.PermanentJobError("INVALID_RECIPIENT", "email has no valid recipient", nil)
	}

	if strings.TrimSpace(email.Subject) == "" || (email.HTMLBody == "" && email.TextBody == "") {
		return "", domain.PermanentJobError("INVALID_EMAIL", "email needs a subject and a body", nil)
	}

	if !m.enabled {
		m.logger.Info().Strs("to", recipients).Str("subject", email.Subject).Msg("email delivery disabled, skipping")

		return "", nil
	}

	body := &types.Body{}
	if email.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(email.HTMLBody), Charset: aws.String(charsetUTF8)}
	}

	if email.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(email.TextBody), Charset: aws.String(charsetUTF8)}
	}

	out, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.sender),
		Destination: &types.Destination{ToAddresses: recipients},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String(charsetUTF8)},
			Body:    body,
		},
	})
	if err != nil {
		var rejected *types.MessageRejected
		if errors.As(err, &rejected) {
			return "", domain.PermanentJobError("EMAIL_REJECTED", "ses rejected the message", err)
		}

		return "", domain.RetryableJobError("EMAIL_SEND_FAILED", "failed to send email", err)
	}

	messageID := aws.ToString(out.MessageId)

	m.logger.Info().
		Str("message_id", messageID).
		Str("order_id", email.OrderID).
		Int("recipients", len(recipients)).
		Msg("email sent")

	return messageID, nil
}
