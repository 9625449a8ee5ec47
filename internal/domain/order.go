package domain

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/google/uuid"
)

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusSubmitted  OrderStatus = "submitted"
	OrderStatusApproved   OrderStatus = "approved"
	OrderStatusRejected   OrderStatus = "rejected"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"

	PaymentStatusUnpaid   PaymentStatus = "unpaid"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
	PaymentStatusFailed   PaymentStatus = "failed"
)

const (
	OrderSourceAPI      = "api"
	OrderSourceVizi     = "vizi"
	OrderSourceN8N      = "n8n"
	OrderSourceAirtable = "airtable"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusSubmitted, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusSubmitted, OrderStatusRejected, OrderStatusCancelled},
	OrderStatusSubmitted:  {OrderStatusApproved, OrderStatusRejected},
	OrderStatusApproved:   {OrderStatusCompleted},
}

type (
	OrderStatus   string
	PaymentStatus string

	Order struct {
		ID            uuid.UUID       `json:"id"`
		OrderID       string          `json:"order_id"`
		ClientName    string          `json:"client_name"`
		ClientEmail   string          `json:"client_email"`
		ClientPhone   string          `json:"client_phone"`
		Country       string          `json:"country"`
		VisaType      string          `json:"visa_type"`
		TravelDate    *time.Time      `json:"travel_date,omitempty"`
		Status        OrderStatus     `json:"status"`
		Amount        int64           `json:"amount"`
		Currency      string          `json:"currency"`
		PaymentStatus PaymentStatus   `json:"payment_status"`
		Source        string          `json:"source"`
		DocumentURL   string          `json:"document_url,omitempty"`
		Metadata      json.RawMessage `json:"metadata,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	OrderFilter struct {
		Status        OrderStatus
		PaymentStatus PaymentStatus
		Country       string
		Source        string
		Search        string
		CreatedFrom   *time.Time
		CreatedTo     *time.Time
	}

	// OrderPatch holds the mutable order fields, nil members are left untouched.
	OrderPatch struct {
		ClientName    *string
		ClientEmail   *string
		ClientPhone   *string
		Country       *string
		VisaType      *string
		TravelDate    *time.Time
		Status        *OrderStatus
		Amount        *int64
		Currency      *string
		PaymentStatus *PaymentStatus
		Metadata      json.RawMessage
	}

	// OrderEvent is what workflows and notifications react to.
	OrderEvent struct {
		Type           WorkflowTrigger `json:"type"`
		Order          Order           `json:"order"`
		PreviousStatus OrderStatus     `json:"previous_status,omitempty"`
		OccurredAt     time.Time       `json:"occurred_at"`
	}
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusSubmitted, OrderStatusApproved,
		OrderStatusRejected, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}

	return false
}

// TerminalOrderStatuses are the statuses an order never leaves.
func TerminalOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusCompleted, OrderStatusCancelled, OrderStatusRejected}
}

func (s OrderStatus) Terminal() bool {
	return slices.Contains(TerminalOrderStatuses(), s)
}

// CanTransitionTo reports whether an order may move from s to next, staying put is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}

	return slices.Contains(orderTransitions[s], next)
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}

	return false
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// Apply copies the patch onto the order and returns the previous status.
func (o *Order) Apply(patch OrderPatch) (OrderStatus, error) {
	previous := o.Status

	if patch.Status != nil {
		if !patch.Status.Valid() {
			return previous, NewValidationError("invalid order status", FieldError{Field: "status", Message: "unknown status"})
		}

		if !previous.CanTransitionTo(*patch.Status) {
			return previous, NewInvalidTransitionError(string(previous), string(*patch.Status))
		}

		o.Status = *patch.Status
	}

	if patch.PaymentStatus != nil {
		if !patch.PaymentStatus.Valid() {
			return previous, NewValidationError("invalid payment status", FieldError{Field: "payment_status", Message: "unknown status"})
		}

		o.PaymentStatus = *patch.PaymentStatus
	}

	if patch.ClientName != nil {
		o.ClientName = *patch.ClientName
	}

	if patch.ClientEmail != nil {
		o.ClientEmail = NormalizeEmail(*patch.ClientEmail)
	}

	if patch.ClientPhone != nil {
		o.ClientPhone = NormalizePhone(*patch.ClientPhone)
	}

	if patch.Country != nil {
		o.Country = *patch.Country
	}

	if patch.VisaType != nil {
		o.VisaType = *patch.VisaType
	}

	if patch.TravelDate != nil {
		o.TravelDate = patch.TravelDate
	}

	if patch.Amount != nil {
		o.Amount = *patch.Amount
	}

	if patch.Currency != nil {
		o.Currency = *patch.Currency
	}

	if len(patch.Metadata) > 0 {
		o.Metadata = patch.Metadata
	}

	return previous, nil
}

// Validate checks the fields an order needs before it is stored.
func (o *Order) Validate() []FieldError {
	var fields []FieldError

	if o.OrderID == "" {
		fields = append(fields, FieldError{Field: "order_id", Message: "is required"})
	}

	if o.ClientEmail == "" && o.ClientPhone == "" {
		fields = append(fields, FieldError{Field: "client_email", Message: "an email or a phone is required"})
	}

	if o.ClientEmail != "" && !ValidEmail(o.ClientEmail) {
		fields = append(fields, FieldError{Field: "client_email", Message: "is not a valid email"})
	}

	if o.Amount < 0 {
		fields = append(fields, FieldError{Field: "amount", Message: "must not be negative"})
	}

	if !o.Status.Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "unknown status"})
	}

	if !o.PaymentStatus.Valid() {
		fields = append(fields, FieldError{Field: "payment_status", Message: "unknown status"})
	}

	return fields
}
