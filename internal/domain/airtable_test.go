package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupColumn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field  string
		column string
		ok     bool
	}{
		{field: "email", column: "Email", ok: true},
		{field: "Email", column: "Email", ok: true},
		{field: " EMAIL ", column: "Email", ok: true},
		{field: "phone", column: "Phone", ok: true},
		{field: "PHONE", column: "Phone", ok: true},
		{field: "orderId", column: "ID", ok: true},
		{field: "orderid", column: "ID", ok: true},
		{field: "order_id", column: "ID", ok: true},
		{field: "Order-ID", column: "ID", ok: true},
		{field: "id", column: "ID", ok: true},
		{field: "name", ok: false},
		{field: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			t.Parallel()

			column, ok := LookupColumn(tt.field)

			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.column, column)
		})
	}
}
