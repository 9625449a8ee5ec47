package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusPublished  OutboxStatus = "published"
	OutboxStatusFailed     OutboxStatus = "failed"

	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"

	AggregateOrder      = "order"
	AggregateWorkflow   = "workflow"
	AggregateScraperJob = "scraper_job"
	AggregateAuthHook   = "auth_hook"

	OutboxBatchPending   OutboxBatchKind = "pending"
	OutboxBatchRetryable OutboxBatchKind = "retryable"
)

type (
	OutboxStatus string
	Priority     string

	// OutboxBatchKind selects fresh events or failed events whose retry time has come.
	OutboxBatchKind string

	// OutboxEvent is a job waiting to be relayed to the broker.
	OutboxEvent struct {
		ID            uuid.UUID    `json:"id"`
		AggregateID   uuid.UUID    `json:"aggregate_id"`
		AggregateType string       `json:"aggregate_type"`
		JobName       string       `json:"job_name"`
		Queue         QueueName    `json:"queue"`
		Priority      Priority     `json:"priority"`
		RetryCount    int          `json:"retry_count"`
		MaxRetries    int          `json:"max_retries"`
		Status        OutboxStatus `json:"status"`
		Job           Job          `json:"job"`
		ErrorDetails  *string      `json:"error_details,omitempty"`
		CreatedAt     time.Time    `json:"created_at"`
		StartedAt     *time.Time   `json:"started_at,omitempty"`
		PublishedAt   *time.Time   `json:"published_at,omitempty"`
		NextRetryAt   *time.Time   `json:"next_retry_at,omitempty"`
	}

	// OutboxRelayResult tells whether an event reached the broker, and why not when it did not.
	OutboxRelayResult struct {
		Published bool
		Reason    string
	}
)

// PriorityForJob maps a broker priority onto the outbox relay priority.
func PriorityForJob(priority uint8) Priority {
	switch {
	case priority >= 9:
		return PriorityUrgent
	case priority >= 6:
		return PriorityHigh
	case priority >= 3:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// NewOutboxEvent wraps a job for the aggregate that produced it.
func NewOutboxEvent(aggregateType string, aggregateID uuid.UUID, job *Job) *OutboxEvent {
	return &OutboxEvent{
		ID:            uuid.New(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		JobName:       job.Name,
		Queue:         job.Queue,
		Priority:      PriorityForJob(job.Options.Priority),
		Status:        OutboxStatusPending,
		Job:           *job,
		CreatedAt:     time.Now().UTC(),
	}
}
