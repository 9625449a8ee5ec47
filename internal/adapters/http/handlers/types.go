package handlers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type (
	CreateOrderRequest struct {
		OrderID       string          `json:"order_id" validate:"required,max=64"`
		ClientName    string          `json:"client_name" validate:"required,max=200"`
		ClientEmail   string          `json:"client_email" validate:"required,email"`
		ClientPhone   string          `json:"client_phone" validate:"omitempty,max=32"`
		Country       string          `json:"country" validate:"required,min=2,max=64"`
		VisaType      string          `json:"visa_type" validate:"required,max=64"`
		TravelDate    *time.Time      `json:"travel_date"`
		Amount        int64           `json:"amount" validate:"gte=0"`
		Currency      string          `json:"currency" validate:"omitempty,len=3"`
		PaymentStatus string          `json:"payment_status" validate:"omitempty,oneof=unpaid paid refunded failed"`
		Source        string          `json:"source" validate:"omitempty,max=32"`
		Metadata      json.RawMessage `json:"metadata"`
	}

	UpdateOrderRequest struct {
		ClientName    *string         `json:"client_name" validate:"omitempty,min=1,max=200"`
		ClientEmail   *string         `json:"client_email" validate:"omitempty,email"`
		ClientPhone   *string         `json:"client_phone" validate:"omitempty,max=32"`
		Country       *string         `json:"country" validate:"omitempty,min=2,max=64"`
		VisaType      *string         `json:"visa_type" validate:"omitempty,max=64"`
		TravelDate    *time.Time      `json:"travel_date"`
		Status        *string         `json:"status" validate:"omitempty,oneof=pending processing submitted approved rejected completed cancelled"`
		Amount        *int64          `json:"amount" validate:"omitempty,gte=0"`
		Currency      *string         `json:"currency" validate:"omitempty,len=3"`
		PaymentStatus *string         `json:"payment_status" validate:"omitempty,oneof=unpaid paid refunded failed"`
		Metadata      json.RawMessage `json:"metadata"`
	}

	GenerateDocumentRequest struct {
		EmailClient bool `json:"email_client"`
	}

	BulkStatusRequest struct {
		IDs    []uuid.UUID `json:"ids" validate:"required,min=1"`
		Status string      `json:"status" validate:"required,oneof=pending processing submitted approved rejected completed cancelled"`
	}

	BulkNotifyRequest struct {
		IDs      []uuid.UUID `json:"ids" validate:"required,min=1"`
		Template string      `json:"template" validate:"required,max=128"`
	}

	InvalidateCacheRequest struct {
		Patterns []string `json:"patterns" validate:"required,min=1,dive,required"`
	}

	CreateApiKeyRequest struct {
		Name      string     `json:"name" validate:"required,max=100"`
		Scopes    []string   `json:"scopes" validate:"required,min=1,dive,oneof=orders:read orders:write workflows:read workflows:write webhooks:write admin"`
		ExpiresAt *time.Time `json:"expires_at"`
	}

	CreateWorkflowRequest struct {
		Name        string                `json:"name" validate:"required,max=200"`
		Description string                `json:"description" validate:"max=1000"`
		Trigger     string                `json:"trigger" validate:"required,oneof=order.created order.updated order.status_changed"`
		Config      domain.WorkflowConfig `json:"config"`
		Enabled     *bool                 `json:"enabled"`
	}

	UpdateWorkflowRequest struct {
		Name        *string                `json:"name" validate:"omitempty,min=1,max=200"`
		Description *string                `json:"description" validate:"omitempty,max=1000"`
		Trigger     *string                `json:"trigger" validate:"omitempty,oneof=order.created order.updated order.status_changed"`
		Config      *domain.WorkflowConfig `json:"config"`
		Enabled     *bool                  `json:"enabled"`
	}

	CreateScraperJobRequest struct {
		OrderID   *uuid.UUID `json:"order_id"`
		TargetURL string     `json:"target_url" validate:"required,url"`
		Selector  string     `json:"selector" validate:"required,max=512"`
	}

	JobAccepted struct {
		JobID string `json:"job_id"`
		Name  string `json:"name"`
		Queue string `json:"queue"`
	}

	WebhookAccepted struct {
		Order   *domain.Order `json:"order"`
		Created bool          `json:"created"`
	}

	QueueStatsResponse struct {
		Data []domain.QueueStats `json:"data"`
	}

	// AuthHookResponse is the body Supabase expects back from a Send Email hook.
	AuthHookResponse struct {
		Error *domain.AuthHookError `json:"error,omitempty"`
	}
)

type (
	ListOrdersParams struct {
		Page          *int       `form:"page,omitempty" json:"page,omitempty"`
		PerPage       *int       `form:"per_page,omitempty" json:"per_page,omitempty"`
		Status        *string    `form:"status,omitempty" json:"status,omitempty"`
		PaymentStatus *string    `form:"payment_status,omitempty" json:"payment_status,omitempty"`
		Country       *string    `form:"country,omitempty" json:"country,omitempty"`
		Source        *string    `form:"source,omitempty" json:"source,omitempty"`
		Search        *string    `form:"search,omitempty" json:"search,omitempty"`
		CreatedFrom   *time.Time `form:"created_from,omitempty" json:"created_from,omitempty"`
		CreatedTo     *time.Time `form:"created_to,omitempty" json:"created_to,omitempty"`
	}

	ListApiKeysParams struct {
		Page    *int `form:"page,omitempty" json:"page,omitempty"`
		PerPage *int `form:"per_page,omitempty" json:"per_page,omitempty"`
	}

	ListWorkflowsParams struct {
		Page    *int `form:"page,omitempty" json:"page,omitempty"`
		PerPage *int `form:"per_page,omitempty" json:"per_page,omitempty"`
	}

	SearchLogsParams struct {
		Page    *int       `form:"page,omitempty" json:"page,omitempty"`
		PerPage *int       `form:"per_page,omitempty" json:"per_page,omitempty"`
		Level   *string    `form:"level,omitempty" json:"level,omitempty"`
		Source  *string    `form:"source,omitempty" json:"source,omitempty"`
		Queue   *string    `form:"queue,omitempty" json:"queue,omitempty"`
		OrderID *string    `form:"order_id,omitempty" json:"order_id,omitempty"`
		Q       *string    `form:"q,omitempty" json:"q,omitempty"`
		Since   *time.Time `form:"since,omitempty" json:"since,omitempty"`
	}

	ListScraperJobsParams struct {
		Page    *int    `form:"page,omitempty" json:"page,omitempty"`
		PerPage *int    `form:"per_page,omitempty" json:"per_page,omitempty"`
		Status  *string `form:"status,omitempty" json:"status,omitempty"`
	}

	LookupAirtableRecordParams struct {
		Field string  `form:"field" json:"field"`
		Value string  `form:"value" json:"value"`
		View  *string `form:"view,omitempty" json:"view,omitempty"`
	}
)
