package ports

import (
	"context"
	"net/http"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type (
	// MessagingClient talks to the CBB WhatsApp API.
	MessagingClient interface {
		// EnsureContact returns the id of the contact owning the phone, creating it when missing.
		EnsureContact(ctx context.Context, contact domain.Contact) (string, error)
		SendTemplate(ctx context.Context, contactID, template string, params map[string]string) error
		SetCustomFields(ctx context.Context, contactID string, fields map[string]string) error
		AddTag(ctx context.Context, contactID, tag string) error
	}

	PDFRenderer interface {
		Render(ctx context.Context, html []byte) ([]byte, error)
	}

	// DocumentStore keeps generated documents and returns their public URL.
	DocumentStore interface {
		Upload(ctx context.Context, key, contentType string, body []byte) (string, error)
	}

	Mailer interface {
		Send(ctx context.Context, email domain.EmailPayload) (string, error)
	}

	Alerter interface {
		Alert(ctx context.Context, alert domain.OpsAlertPayload) error
	}

	// LogIndex is the full text index of log entries.
	LogIndex interface {
		Index(ctx context.Context, entry *domain.LogEntry) error
		Search(ctx context.Context, filter domain.LogFilter, page domain.PageRequest) ([]*domain.LogEntry, int, error)
		Ping(ctx context.Context) error
	}

	AirtableClient interface {
		Lookup(ctx context.Context, req domain.AirtableLookupRequest) (*domain.AirtableLookupResult, error)
		TrackCompleted(ctx context.Context, mode string, since *time.Time) (*domain.AirtableTrackerResult, error)
	}

	// PortalScraper reads the application status shown on a visa portal page.
	PortalScraper interface {
		Scrape(ctx context.Context, url, selector string) (domain.ScrapeResult, error)
	}

	// ConditionEvaluator compiles and runs workflow conditions.
	ConditionEvaluator interface {
		Compile(expression string) error
		Evaluate(ctx context.Context, workflow *domain.Workflow, event domain.OrderEvent) (bool, error)
	}

	// HealthProbe checks one backing service.
	HealthProbe interface {
		Name() string
		Critical() bool
		Check(ctx context.Context) error
	}

	// WebhookParser validates a partner payload and extracts its order.
	WebhookParser interface {
		Parse(source string, body []byte) (*domain.Order, error)
	}

	WebhookVerifier interface {
		Verify(headers http.Header, body []byte) error
	}
)
