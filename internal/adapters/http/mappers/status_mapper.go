package mappers

import (
	"net/http"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

// HealthStatusToHTTPCode answers 503 only when the service is down, a degraded service still takes traffic.
func HealthStatusToHTTPCode(status domain.HealthStatus) int {
	switch status {
	case domain.HealthStatusOK, domain.HealthStatusDegraded:
		return http.StatusOK
	default:
		return http.StatusServiceUnavailable
	}
}

// IngestResultToHTTPCode tells a partner whether the webhook created or updated the order.
func IngestResultToHTTPCode(created bool) int {
	if created {
		return http.StatusCreated
	}

	return http.StatusOK
}
