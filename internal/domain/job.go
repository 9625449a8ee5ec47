package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	QueueCritical         QueueName = "critical"
	QueueDefault          QueueName = "default"
	QueueBulk             QueueName = "bulk"
	QueueWhatsAppMessages QueueName = "whatsapp-messages"
	QueuePDF              QueueName = "pdf"
	QueueCBBSync          QueueName = "cbb-sync"
	QueueScraper          QueueName = "scraper"
)

const (
	JobWhatsAppSend           = "whatsapp.send"
	JobPDFGenerate            = "pdf.generate"
	JobScraperRun             = "scraper.run"
	JobCBBSyncContact         = "cbb.sync-contact"
	JobEmailSend              = "email.send"
	JobOpsAlert               = "alert.ops"
	JobCacheInvalidate        = "cache.invalidate"
	JobAirtableTrackCompleted = "airtable.track-completed"
)

const (
	BackoffExponential BackoffType = "exponential"
	BackoffFixed       BackoffType = "fixed"

	maxBackoffDelay = 24 * time.Hour
)

// AllQueues lists every queue in descending urgency.
var AllQueues = []QueueName{
	QueueCritical,
	QueueWhatsAppMessages,
	QueueDefault,
	QueueCBBSync,
	QueuePDF,
	QueueScraper,
	QueueBulk,
}

var jobDefinitions = map[string]JobDefinition{
	JobWhatsAppSend:           {Name: JobWhatsAppSend, Queue: QueueWhatsAppMessages},
	JobPDFGenerate:            {Name: JobPDFGenerate, Queue: QueuePDF},
	JobScraperRun:             {Name: JobScraperRun, Queue: QueueScraper},
	JobCBBSyncContact:         {Name: JobCBBSyncContact, Queue: QueueCBBSync},
	JobEmailSend:              {Name: JobEmailSend, Queue: QueueDefault},
	JobOpsAlert:               {Name: JobOpsAlert, Queue: QueueCritical},
	JobCacheInvalidate:        {Name: JobCacheInvalidate, Queue: QueueBulk},
	JobAirtableTrackCompleted: {Name: JobAirtableTrackCompleted, Queue: QueueBulk},
}

var queueDefaults = map[QueueName]JobOptions{
	QueueCritical:         {Attempts: 5, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 1000}, Priority: 10},
	QueueDefault:          {Attempts: 3, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 2000}, Priority: 5},
	QueueBulk:             {Attempts: 3, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 5000}, Priority: 1, RemoveOnComplete: true},
	QueueWhatsAppMessages: {Attempts: 5, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 3000}, Priority: 7},
	QueuePDF:              {Attempts: 3, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 5000}, Priority: 5},
	QueueCBBSync:          {Attempts: 5, Backoff: BackoffOptions{Type: BackoffExponential, Delay: 2000}, Priority: 5},
	QueueScraper:          {Attempts: 3, Backoff: BackoffOptions{Type: BackoffFixed, Delay: 30000}, Priority: 3},
}

type (
	QueueName   string
	BackoffType string

	JobDefinition struct {
		Name  string
		Queue QueueName
	}

	// BackoffOptions holds the retry delay in milliseconds.
	BackoffOptions struct {
		Type  BackoffType `json:"type"`
		Delay int64       `json:"delay"`
	}

	JobOptions struct {
		Attempts         int            `json:"attempts"`
		Backoff          BackoffOptions `json:"backoff"`
		Priority         uint8          `json:"priority"`
		DelayMS          int64          `json:"delay,omitempty"`
		RemoveOnComplete bool           `json:"remove_on_complete"`
	}

	// Job is the envelope every queue message carries.
	Job struct {
		ID           string          `json:"id"`
		Name         string          `json:"name"`
		Queue        QueueName       `json:"queue"`
		Payload      json.RawMessage `json:"payload"`
		Options      JobOptions      `json:"options"`
		AttemptsMade int             `json:"attempts_made"`
		OrderID      string          `json:"order_id,omitempty"`
		CreatedAt    time.Time       `json:"created_at"`
	}

	JobResult struct {
		Success    bool           `json:"success"`
		Data       map[string]any `json:"data,omitempty"`
		Error      string         `json:"error,omitempty"`
		ErrorCode  string         `json:"error_code,omitempty"`
		Retryable  bool           `json:"retryable"`
		DurationMS int64          `json:"duration_ms"`
	}

	// JobError classifies a processor failure as permanent or retryable.
	JobError struct {
		Code      string
		Message   string
		Permanent bool
		Cause     error
	}
)

func (q QueueName) String() string {
	return string(q)
}

func (q QueueName) Valid() bool {
	_, ok := queueDefaults[q]

	return ok
}

func LookupJobDefinition(name string) (JobDefinition, bool) {
	def, ok := jobDefinitions[name]

	return def, ok
}

// DefaultJobOptions returns the built-in options of a queue.
func DefaultJobOptions(queue QueueName) JobOptions {
	if opts, ok := queueDefaults[queue]; ok {
		return opts
	}

	return queueDefaults[QueueDefault]
}

// Merge returns o with every non zero field of override applied.
func (o JobOptions) Merge(override JobOptions) JobOptions {
	if override.Attempts > 0 {
		o.Attempts = override.Attempts
	}

	if override.Backoff.Type != "" {
		o.Backoff.Type = override.Backoff.Type
	}

	if override.Backoff.Delay > 0 {
		o.Backoff.Delay = override.Backoff.Delay
	}

	if override.Priority > 0 {
		o.Priority = override.Priority
	}

	if override.DelayMS > 0 {
		o.DelayMS = override.DelayMS
	}

	if override.RemoveOnComplete {
		o.RemoveOnComplete = true
	}

	return o
}

// BackoffDelay returns the wait before the next run after attemptsMade failures.
func (o JobOptions) BackoffDelay(attemptsMade int) time.Duration {
	base := time.Duration(o.Backoff.Delay) * time.Millisecond
	if base <= 0 {
		return 0
	}

	if o.Backoff.Type == BackoffFixed || attemptsMade <= 1 {
		return base
	}

	delay := base
	for i := 1; i < attemptsMade; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}

	return delay
}

func (o JobOptions) MaxAttempts() int {
	if o.Attempts <= 0 {
		return 1
	}

	return o.Attempts
}

// NewJob builds a job for a registered job name, queue and options fall back to the job definition.
func NewJob(name string, queue QueueName, payload any, opts JobOptions) (*Job, error) {
	def, ok := LookupJobDefinition(name)
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}

	if queue == "" {
		queue = def.Queue
	}

	if !queue.Valid() {
		return nil, fmt.Errorf("unknown queue %q", queue)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	return &Job{
		ID:        uuid.NewString(),
		Name:      name,
		Queue:     queue,
		Payload:   body,
		Options:   DefaultJobOptions(queue).Merge(opts),
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (j *Job) Decode(dest any) error {
	if err := json.Unmarshal(j.Payload, dest); err != nil {
		return PermanentJobError("INVALID_PAYLOAD", fmt.Sprintf("invalid %s payload", j.Name), err)
	}

	return nil
}

// Attempt is the 1-based number of the current run.
func (j *Job) Attempt() int {
	return j.AttemptsMade + 1
}

// CanRetry reports whether another run is allowed after the current one fails.
func (j *Job) CanRetry() bool {
	return j.Attempt() < j.Options.MaxAttempts()
}

func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}

	return e.Message
}

func (e *JobError) Unwrap() error {
	return e.Cause
}

func PermanentJobError(code, message string, cause error) *JobError {
	return &JobError{Code: code, Message: message, Permanent: true, Cause: cause}
}

func RetryableJobError(code, message string, cause error) *JobError {
	return &JobError{Code: code, Message: message, Permanent: false, Cause: cause}
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Permanent
	}

	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidRequest)
}

func SucceededResult(data map[string]any, duration time.Duration) JobResult {
	return JobResult{Success: true, Data: data, DurationMS: duration.Milliseconds()}
}

func FailedResult(err error, duration time.Duration) JobResult {
	result := JobResult{
		Success:    false,
		Error:      err.Error(),
		Retryable:  !IsPermanent(err),
		DurationMS: duration.Milliseconds(),
	}

	var jobErr *JobError
	if errors.As(err, &jobErr) {
		result.ErrorCode = jobErr.Code
	}

	return result
}
