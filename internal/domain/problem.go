package domain

import (
	"net/http"
	"strings"
	"time"
)

const (
	ProblemContentType = "application/problem+json"
	problemTypeBaseURI = "https://docs.visa-processing.io/problems/"
)

// ProblemDetails is an RFC 7807 error body extended with the service error code.
type ProblemDetails struct {
	Type      string       `json:"type"`
	Title     string       `json:"title"`
	Status    int          `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	Instance  string       `json:"instance,omitempty"`
	Code      string       `json:"code"`
	Timestamp time.Time    `json:"timestamp"`
	RequestID string       `json:"request_id,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
}

func NewProblemDetails(err *DomainError, instance, requestID string, now time.Time) ProblemDetails {
	status := err.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	detail := err.Message
	if status >= http.StatusInternalServerError && err.Code == CodeInternal {
		// Internal causes never leak to clients.
		detail = "an unexpected error occurred"
	}

	return ProblemDetails{
		Type:      problemTypeBaseURI + strings.ToLower(err.Code),
		Title:     ProblemTitle(err.Code),
		Status:    status,
		Detail:    detail,
		Instance:  instance,
		Code:      err.Code,
		Timestamp: now.UTC(),
		RequestID: requestID,
		Errors:    err.FieldErrors(),
	}
}

// ProblemTitle returns the human readable category of a problem code.
func ProblemTitle(code string) string {
	category, _, _ := strings.Cut(code, "-")

	switch category {
	case "AUTH":
		return "Authentication Error"
	case "VAL":
		return "Validation Error"
	case "RES":
		return "Resource Error"
	case "BIZ":
		return "Business Rule Violation"
	case "EXT":
		return "External Service Error"
	default:
		return "System Error"
	}
}
