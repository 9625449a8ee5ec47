package webhooks

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const defaultCurrency = "USD"

// candidatePaths lists, per order field, the dotted paths partners are known to
// use. The first non-empty value wins.
var candidatePaths = map[string][]string{
	"order_id": {
		"order_id", "orderId", "order.id", "order.order_id", "data.order_id", "data.orderId",
		"body.order_id", "body.orderId", "id",
	},
	"email": {
		"email", "client_email", "customer.email", "client.email", "contact.email",
		"order.email", "data.email", "data.client_email", "body.email",
	},
	"phone": {
		"phone", "client_phone", "whatsapp", "customer.phone", "client.phone", "contact.phone",
		"order.phone", "data.phone", "data.client_phone", "body.phone",
	},
	"name": {
		"name", "client_name", "full_name", "customer.name", "client.name", "contact.name",
		"order.customer_name", "data.name", "data.client_name", "body.name",
	},
	"first_name": {"first_name", "customer.first_name", "client.first_name", "data.first_name"},
	"last_name":  {"last_name", "customer.last_name", "client.last_name", "data.last_name"},
	"country": {
		"country", "destination", "destination_country", "visa.country", "order.country",
		"data.country", "data.destination", "body.country",
	},
	"visa_type": {
		"visa_type", "visaType", "visa.type", "product", "order.visa_type", "data.visa_type",
		"body.visa_type",
	},
	"amount": {
		"amount", "total", "payment.amount", "order.total", "order.amount", "data.amount",
		"body.amount",
	},
	"currency": {"currency", "payment.currency", "order.currency", "data.currency", "body.currency"},
	"payment_status": {
		"payment_status", "paymentStatus", "payment.status", "order.payment_status",
		"data.payment_status", "body.payment_status",
	},
	"travel_date": {
		"travel_date", "travelDate", "arrival_date", "visa.travel_date", "order.travel_date",
		"data.travel_date", "body.travel_date",
	},
}

var paymentStatusAliases = map[string]domain.PaymentStatus{
	"paid":      domain.PaymentStatusPaid,
	"succeeded": domain.PaymentStatusPaid,
	"success":   domain.PaymentStatusPaid,
	"completed": domain.PaymentStatusPaid,
	"captured":  domain.PaymentStatusPaid,
	"refunded":  domain.PaymentStatusRefunded,
	"failed":    domain.PaymentStatusFailed,
	"declined":  domain.PaymentStatusFailed,
	"unpaid":    domain.PaymentStatusUnpaid,
	"pending":   domain.PaymentStatusUnpaid,
}

// ExtractOrder maps a validated partner document onto an order. Amounts arrive in
// major units and are stored in minor units.
func ExtractOrder(source string, document map[string]any) (*domain.Order, error) {
	var fields []domain.FieldError

	order := &domain.Order{
		OrderID:       lookup(document, "order_id"),
		ClientEmail:   domain.NormalizeEmail(lookup(document, "email")),
		ClientPhone:   domain.NormalizePhone(lookup(document, "phone")),
		ClientName:    clientName(document),
		VisaType:      lookup(document, "visa_type"),
		Status:        domain.OrderStatusPending,
		Currency:      strings.ToUpper(lookup(document, "currency")),
		PaymentStatus: paymentStatus(lookup(document, "payment_status")),
		Source:        source,
	}

	if order.OrderID == "" {
		fields = append(fields, domain.FieldError{Field: "order_id", Message: "no order id found in payload"})
	}

	if order.ClientEmail == "" && order.ClientPhone == "" {
		fields = append(fields, domain.FieldError{Field: "email", Message: "either an email or a phone is required"})
	}

	if order.ClientEmail != "" && !domain.ValidEmail(order.ClientEmail) {
		fields = append(fields, domain.FieldError{Field: "email", Message: "invalid email address"})
	}

	if country := lookup(document, "country"); country != "" {
		order.Country, _ = domain.NormalizeCountry(country)
	}

	if order.Currency == "" {
		order.Currency = defaultCurrency
	}

	if raw := lookup(document, "amount"); raw != "" {
		amount, err := minorUnits(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: "amount", Message: err.Error()})
		}

		order.Amount = amount
	}

	if raw := lookup(document, "travel_date"); raw != "" {
		travelDate, err := parseDate(raw)
		if err != nil {
			fields = append(fields, domain.FieldError{Field: "travel_date", Message: err.Error()})
		} else {
			order.TravelDate = &travelDate
		}
	}

	if len(fields) > 0 {
		return nil, domain.NewValidationError(fmt.Sprintf("%s webhook is missing order data", source), fields...)
	}

	metadata, err := json.Marshal(map[string]any{"webhook": document})
	if err == nil {
		order.Metadata = metadata
	}

	return order, nil
}

func lookup(document map[string]any, field string) string {
	for _, path := range candidatePaths[field] {
		if value := valueAt(document, path); value != "" {
			return value
		}
	}

	return ""
}

// valueAt walks a dotted path and renders the leaf as a trimmed string.
func valueAt(document map[string]any, path string) string {
	var current any = document

	for _, segment := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return ""
		}

		current, ok = object[segment]
		if !ok {
			return ""
		}
	}

	switch value := current.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

func clientName(document map[string]any) string {
	if name := lookup(document, "name"); name != "" {
		return name
	}

	return strings.TrimSpace(lookup(document, "first_name") + " " + lookup(document, "last_name"))
}

func paymentStatus(raw string) domain.PaymentStatus {
	if status, ok := paymentStatusAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return status
	}

	return domain.PaymentStatusUnpaid
}

// maxAmount is the largest order amount accepted, in major units.
const maxAmount = 10_000_000

func minorUnits(raw string) (int64, error) {
	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(raw)

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}

	if value < 0 {
		return 0, fmt.Errorf("amount must not be negative")
	}

	if value > maxAmount {
		return 0, fmt.Errorf("amount must not exceed %d", maxAmount)
	}

	return int64(math.Round(value * 100)), nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339, "02/01/2006"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}
