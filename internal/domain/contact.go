package domain

import "strings"

// Contact is a messaging recipient, Phone holds digits only.
type Contact struct {
	Phone     string
	FirstName string
	LastName  string
	Email     string
}

// NewContact builds the contact of an order's client.
func NewContact(order *Order) Contact {
	first, last, _ := strings.Cut(strings.TrimSpace(order.ClientName), " ")

	return Contact{
		Phone:     NormalizePhone(order.ClientPhone),
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Email:     order.ClientEmail,
	}
}
