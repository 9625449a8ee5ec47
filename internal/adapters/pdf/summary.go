package pdf

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var summaryTemplate = template.Must(
	template.New("order_summary.html").
		Funcs(template.FuncMap{
			"money": formatMoney,
			"date":  formatDate,
			"upper": strings.ToUpper,
		}).
		ParseFS(templateFS, "templates/order_summary.html"),
)

type summaryView struct {
	Order       *domain.Order
	CountryCode string
	GeneratedAt time.Time
}

// RenderOrderSummary renders the HTML summary sent to the PDF renderer.
func RenderOrderSummary(order *domain.Order, generatedAt time.Time) ([]byte, error) {
	code, _ := domain.NormalizeCountry(order.Country)

	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, summaryView{
		Order:       order,
		CountryCode: code,
		GeneratedAt: generatedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to render summary of order %s: %w", order.OrderID, err)
	}

	return buf.Bytes(), nil
}

// DocumentKey is the storage key of an order's summary.
func DocumentKey(order *domain.Order) string {
	return fmt.Sprintf("orders/%s/summary-%s.pdf", order.ID, order.OrderID)
}

func formatMoney(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}

	return fmt.Sprintf("%s%d.%02d %s", sign, minor/100, minor%100, strings.ToUpper(currency))
}

func formatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return "-"
	}

	return value.Format("02 Jan 2006")
}
