package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	TriggerOrderCreated       WorkflowTrigger = "order.created"
	TriggerOrderUpdated       WorkflowTrigger = "order.updated"
	TriggerOrderStatusChanged WorkflowTrigger = "order.status_changed"
)

type (
	WorkflowTrigger string

	Workflow struct {
		ID          uuid.UUID       `json:"id"`
		Name        string          `json:"name"`
		Description string          `json:"description,omitempty"`
		Trigger     WorkflowTrigger `json:"trigger"`
		Config      WorkflowConfig  `json:"config"`
		Enabled     bool            `json:"enabled"`
		Version     int             `json:"version"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	// WorkflowConfig is stored as JSON next to the workflow row.
	WorkflowConfig struct {
		Condition string           `json:"condition,omitempty"`
		Actions   []WorkflowAction `json:"actions"`
	}

	WorkflowAction struct {
		Job     string          `json:"job"`
		Queue   string          `json:"queue,omitempty"`
		DelayMS int64           `json:"delay_ms,omitempty"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	WorkflowPatch struct {
		Name        *string
		Description *string
		Trigger     *WorkflowTrigger
		Config      *WorkflowConfig
		Enabled     *bool
	}
)

func (t WorkflowTrigger) Valid() bool {
	switch t {
	case TriggerOrderCreated, TriggerOrderUpdated, TriggerOrderStatusChanged:
		return true
	}

	return false
}

// Validate checks the static shape of the config, conditions are compiled elsewhere.
func (c WorkflowConfig) Validate() []FieldError {
	var fields []FieldError

	if len(c.Actions) == 0 {
		fields = append(fields, FieldError{Field: "config.actions", Message: "at least one action is required"})
	}

	for i, action := range c.Actions {
		if _, ok := LookupJobDefinition(action.Job); !ok {
			fields = append(fields, FieldError{
				Field:   "config.actions[" + strconv.Itoa(i) + "].job",
				Message: "unknown job " + action.Job,
			})
		}

		if action.Queue != "" && !QueueName(action.Queue).Valid() {
			fields = append(fields, FieldError{
				Field:   "config.actions[" + strconv.Itoa(i) + "].queue",
				Message: "unknown queue " + action.Queue,
			})
		}

		if action.DelayMS < 0 {
			fields = append(fields, FieldError{
				Field:   "config.actions[" + strconv.Itoa(i) + "].delay_ms",
				Message: "must not be negative",
			})
		}
	}

	return fields
}

func (w *Workflow) Apply(patch WorkflowPatch) {
	if patch.Name != nil {
		w.Name = *patch.Name
	}

	if patch.Description != nil {
		w.Description = *patch.Description
	}

	if patch.Trigger != nil {
		w.Trigger = *patch.Trigger
	}

	if patch.Config != nil {
		w.Config = *patch.Config
	}

	if patch.Enabled != nil {
		w.Enabled = *patch.Enabled
	}
}

// Matches reports whether the workflow listens to the event type.
func (w *Workflow) Matches(trigger WorkflowTrigger) bool {
	if !w.Enabled {
		return false
	}

	if w.Trigger == trigger {
		return true
	}

	// Status changes are updates as well.
	return w.Trigger == TriggerOrderUpdated && trigger == TriggerOrderStatusChanged
}
