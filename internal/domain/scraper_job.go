package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ScraperJobPending   ScraperJobStatus = "pending"
	ScraperJobRunning   ScraperJobStatus = "running"
	ScraperJobCompleted ScraperJobStatus = "completed"
	ScraperJobFailed    ScraperJobStatus = "failed"
)

type (
	ScraperJobStatus string

	ScraperJob struct {
		ID          uuid.UUID        `json:"id"`
		OrderID     *uuid.UUID       `json:"order_id,omitempty"`
		TargetURL   string           `json:"target_url"`
		Selector    string           `json:"selector"`
		Status      ScraperJobStatus `json:"status"`
		Attempts    int              `json:"attempts"`
		Result      json.RawMessage  `json:"result,omitempty"`
		Error       string           `json:"error,omitempty"`
		CreatedAt   time.Time        `json:"created_at"`
		UpdatedAt   time.Time        `json:"updated_at"`
		CompletedAt *time.Time       `json:"completed_at,omitempty"`
	}

	// ScrapeResult is what the portal page yielded.
	ScrapeResult struct {
		RawStatus  string      `json:"raw_status"`
		VisaStatus OrderStatus `json:"visa_status,omitempty"`
		Title      string      `json:"title,omitempty"`
		FetchedMS  int64       `json:"fetched_ms"`
		StatusCode int         `json:"status_code"`
	}
)

var portalStatusKeywords = []struct {
	keyword string
	status  OrderStatus
}{
	{"approved", OrderStatusApproved},
	{"granted", OrderStatusApproved},
	{"issued", OrderStatusApproved},
	{"rejected", OrderStatusRejected},
	{"refused", OrderStatusRejected},
	{"denied", OrderStatusRejected},
	{"in process", OrderStatusSubmitted},
	{"under review", OrderStatusSubmitted},
	{"submitted", OrderStatusSubmitted},
	{"received", OrderStatusSubmitted},
}

// MapPortalStatus turns free text from a visa portal into an order status.
func MapPortalStatus(raw string) (OrderStatus, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" {
		return "", false
	}

	for _, candidate := range portalStatusKeywords {
		if strings.Contains(text, candidate.keyword) {
			return candidate.status, true
		}
	}

	return "", false
}
