package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type (
	LogLevel string

	// LogEntry is a persisted operational event, mostly job outcomes.
	LogEntry struct {
		ID        uuid.UUID       `json:"id"`
		Level     LogLevel        `json:"level"`
		Source    string          `json:"source"`
		Message   string          `json:"message"`
		Queue     string          `json:"queue,omitempty"`
		JobName   string          `json:"job_name,omitempty"`
		JobID     string          `json:"job_id,omitempty"`
		OrderID   string          `json:"order_id,omitempty"`
		Context   json.RawMessage `json:"context,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
	}

	LogFilter struct {
		Level   LogLevel
		Source  string
		Queue   string
		OrderID string
		Query   string
		Since   *time.Time
	}
)

func (l LogLevel) Valid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true
	}

	return false
}

// NewJobLogEntry records the outcome of a job run.
func NewJobLogEntry(job *Job, result JobResult) *LogEntry {
	level := LogLevelInfo
	message := job.Name + " completed"

	if !result.Success {
		level = LogLevelWarn
		message = job.Name + " failed: " + result.Error

		if !result.Retryable || !job.CanRetry() {
			level = LogLevelError
		}
	}

	ctx, _ := json.Marshal(map[string]any{
		"attempt":     job.Attempt(),
		"max":         job.Options.MaxAttempts(),
		"duration_ms": result.DurationMS,
		"error_code":  result.ErrorCode,
		"retryable":   result.Retryable,
		"data":        result.Data,
	})

	return &LogEntry{
		ID:        uuid.New(),
		Level:     level,
		Source:    "worker",
		Message:   message,
		Queue:     job.Queue.String(),
		JobName:   job.Name,
		JobID:     job.ID,
		OrderID:   job.OrderID,
		Context:   ctx,
		CreatedAt: time.Now().UTC(),
	}
}
