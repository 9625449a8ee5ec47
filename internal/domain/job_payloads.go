package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	TrackerModeBootstrap   = "bootstrap"
	TrackerModeIncremental = "incremental"
)

type (
	WhatsAppPayload struct {
		OrderID  uuid.UUID         `json:"order_id"`
		Phone    string            `json:"phone"`
		Template string            `json:"template"`
		Params   map[string]string `json:"params,omitempty"`
	}

	PDFPayload struct {
		OrderID     uuid.UUID `json:"order_id"`
		EmailClient bool      `json:"email_client"`
	}

	ScraperPayload struct {
		ScraperJobID uuid.UUID `json:"scraper_job_id"`
	}

	CBBSyncPayload struct {
		OrderID uuid.UUID `json:"order_id"`
	}

	EmailPayload struct {
		To       []string `json:"to"`
		Subject  string   `json:"subject"`
		HTMLBody string   `json:"html_body"`
		TextBody string   `json:"text_body,omitempty"`
		OrderID  string   `json:"order_id,omitempty"`
	}

	OpsAlertPayload struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
		Queue   string `json:"queue,omitempty"`
		JobName string `json:"job_name,omitempty"`
		JobID   string `json:"job_id,omitempty"`
	}

	CacheInvalidatePayload struct {
		Patterns []string `json:"patterns"`
	}

	AirtableTrackPayload struct {
		Mode  string     `json:"mode"`
		Since *time.Time `json:"since,omitempty"`
	}
)
