package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	AirtableInputError         = "INPUT_ERROR"
	AirtableConfigurationError = "CONFIGURATION_ERROR"
	AirtableAPIError           = "API_ERROR"
	AirtableQueryError         = "QUERY_ERROR"

	LookupFieldEmail   = "email"
	LookupFieldOrderID = "orderId"
	LookupFieldPhone   = "phone"

	AirtableCompletedField = "Completed Timestamp"
	AirtableOrderIDField   = "ID"
	AirtableEmailField     = "Email"
	AirtablePhoneField     = "Phone"

	// AirtableTimestampLayout is the millisecond precision Airtable stores timestamps with.
	// Tracker cursors and IS_AFTER formulas both use it so a cursor round-trips unchanged.
	AirtableTimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// lookupColumns maps the normalized lookup field onto the Airtable column it searches.
var lookupColumns = map[string]string{
	"email":   AirtableEmailField,
	"orderid": AirtableOrderIDField,
	"id":      AirtableOrderIDField,
	"phone":   AirtablePhoneField,
}

type (
	AirtableRecord struct {
		ID          string                      `json:"id"`
		CreatedTime string                      `json:"createdTime,omitempty"`
		Fields      map[string]any              `json:"fields"`
		Expanded    map[string][]AirtableRecord `json:"expanded,omitempty"`
	}

	AirtableLookupRequest struct {
		Field string
		Value string
		View  string
	}

	AirtableLookupMeta struct {
		ExecutionMS      int64  `json:"execution_ms"`
		TotalMatches     int    `json:"total_matches"`
		Expanded         bool   `json:"expanded"`
		UsedPhoneVariant bool   `json:"used_phone_variant"`
		VariantUsed      string `json:"variant_used,omitempty"`
	}

	AirtableLookupResult struct {
		Records []AirtableRecord   `json:"records"`
		Meta    AirtableLookupMeta `json:"meta"`
	}

	AirtableTrackerResult struct {
		Mode              string           `json:"mode"`
		Records           []AirtableRecord `json:"records"`
		NewestCompletedAt *time.Time       `json:"newest_completed_at,omitempty"`
		MarkedOrders      int              `json:"marked_orders"`
	}

	AirtableError struct {
		Code    string
		Message string
		Cause   error
	}
)

// LookupColumn returns the Airtable column searched for a lookup field. Case, spaces,
// dashes and underscores are ignored, so orderId, order_id and ORDER-ID are the same field.
func LookupColumn(field string) (string, bool) {
	column, ok := lookupColumns[normalizeLookupField(field)]

	return column, ok
}

func normalizeLookupField(field string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', ' ':
			return -1
		}

		return r
	}, strings.ToLower(strings.TrimSpace(field)))
}

// StringField returns the field as text, empty when missing or not a string.
func (r AirtableRecord) StringField(name string) string {
	value, _ := r.Fields[name].(string)

	return value
}

// LinkedIDs returns the record ids held by a linked record field.
func (r AirtableRecord) LinkedIDs(name string) []string {
	raw, ok := r.Fields[name].([]any)
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(raw))
	for _, item := range raw {
		if id, ok := item.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

func (e *AirtableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause.Error())
	}

	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AirtableError) Unwrap() error {
	return e.Cause
}

func NewAirtableError(code, message string, cause error) *AirtableError {
	return &AirtableError{Code: code, Message: message, Cause: cause}
}
