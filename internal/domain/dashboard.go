package domain

import "time"

type (
	DashboardStats struct {
		TotalOrders     int                   `json:"total_orders"`
		OrdersToday     int                   `json:"orders_today"`
		ByStatus        map[OrderStatus]int   `json:"by_status"`
		ByCountry       map[string]int        `json:"by_country"`
		Revenue         map[string]int64      `json:"revenue"`
		ErrorsLast24h   int                   `json:"errors_last_24h"`
		RecentFailures  []LogEntry            `json:"recent_failures"`
		GeneratedAt     time.Time             `json:"generated_at"`
		PaymentsByState map[PaymentStatus]int `json:"payments_by_state,omitempty"`
	}

	QueueStats struct {
		Name        string `json:"name"`
		Messages    int    `json:"messages"`
		Consumers   int    `json:"consumers"`
		Retrying    int    `json:"retrying"`
		DeadLetters int    `json:"dead_letters"`
	}

	BatchResult struct {
		Total     int          `json:"total"`
		Succeeded int          `json:"succeeded"`
		Failed    int          `json:"failed"`
		Errors    []BatchError `json:"errors,omitempty"`
	}

	BatchError struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
)

func (r *BatchResult) AddSuccess(n int) {
	r.Succeeded += n
}

func (r *BatchResult) AddFailure(id string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, BatchError{ID: id, Error: err.Error()})
}
