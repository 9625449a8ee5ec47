package domain

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from     OrderStatus
		to       OrderStatus
		expected bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusPending, true},
		{OrderStatusProcessing, OrderStatusSubmitted, true},
		{OrderStatusSubmitted, OrderStatusApproved, true},
		{OrderStatusApproved, OrderStatusCompleted, true},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusRejected, OrderStatusApproved, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestOrderApply(t *testing.T) {
	t.Parallel()

	order := &Order{Status: OrderStatusPending, PaymentStatus: PaymentStatusUnpaid}
	status := OrderStatusProcessing
	paid := PaymentStatusPaid
	email := "  Jane@Example.COM "
	phone := "+972 (50) 123-4567"

	previous, err := order.Apply(OrderPatch{
		Status:        &status,
		PaymentStatus: &paid,
		ClientEmail:   &email,
		ClientPhone:   &phone,
	})
	require.NoError(t, err)

	assert.Equal(t, OrderStatusPending, previous)
	assert.Equal(t, OrderStatusProcessing, order.Status)
	assert.True(t, order.IsPaid())
	assert.Equal(t, "jane@example.com", order.ClientEmail)
	assert.Equal(t, "972501234567", order.ClientPhone)
}

func TestOrderApplyRejectsInvalidTransition(t *testing.T) {
	t.Parallel()

	order := &Order{Status: OrderStatusCompleted}
	status := OrderStatusPending

	_, err := order.Apply(OrderPatch{Status: &status})
	require.Error(t, err)

	var domainErr *DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, CodeInvalidTransition, domainErr.Code)
	assert.Equal(t, http.StatusConflict, domainErr.StatusCode)
	assert.Equal(t, OrderStatusCompleted, order.Status)
}

func TestApiKeyUsability(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, (&ApiKey{}).Usable(now))
	assert.True(t, (&ApiKey{ExpiresAt: &future}).Usable(now))
	assert.False(t, (&ApiKey{ExpiresAt: &past}).Usable(now))
	assert.False(t, (&ApiKey{RevokedAt: &past}).Usable(now))

	key := &ApiKey{Scopes: []string{ScopeOrdersRead}}
	assert.True(t, key.HasScope(ScopeOrdersRead))
	assert.False(t, key.HasScope(ScopeOrdersWrite))
	assert.True(t, (&ApiKey{Scopes: []string{ScopeAdmin}}).HasScope(ScopeWebhooksWrite))
}

func TestWorkflowConfigValidate(t *testing.T) {
	t.Parallel()

	valid := WorkflowConfig{Actions: []WorkflowAction{{Job: JobWhatsAppSend}}}
	assert.Empty(t, valid.Validate())

	invalid := WorkflowConfig{Actions: []WorkflowAction{{Job: "launch.rocket", Queue: "moon", DelayMS: -1}}}
	fields := invalid.Validate()
	require.Len(t, fields, 3)
	assert.Equal(t, "config.actions[0].job", fields[0].Field)

	assert.Len(t, WorkflowConfig{}.Validate(), 1)
}

func TestWorkflowMatches(t *testing.T) {
	t.Parallel()

	wf := &Workflow{Trigger: TriggerOrderUpdated, Enabled: true}
	assert.True(t, wf.Matches(TriggerOrderUpdated))
	assert.True(t, wf.Matches(TriggerOrderStatusChanged))
	assert.False(t, wf.Matches(TriggerOrderCreated))

	wf.Enabled = false
	assert.False(t, wf.Matches(TriggerOrderUpdated))
}

func TestMapPortalStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      string
		expected OrderStatus
		ok       bool
	}{
		{"Visa GRANTED", OrderStatusApproved, true},
		{"Application refused", OrderStatusRejected, true},
		{"  Under Review ", OrderStatusSubmitted, true},
		{"", "", false},
		{"Unknown state", "", false},
	}

	for _, tc := range tests {
		status, ok := MapPortalStatus(tc.raw)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.Equal(t, tc.expected, status, tc.raw)
	}
}
