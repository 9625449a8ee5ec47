package domain

import "time"

const (
	DependencyCheckStatusHealthy   DependencyCheckStatus = "healthy"
	DependencyCheckStatusDegraded  DependencyCheckStatus = "degraded"
	DependencyCheckStatusUnhealthy DependencyCheckStatus = "unhealthy"
	DependencyCheckStatusDisabled  DependencyCheckStatus = "disabled"

	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusDown     HealthStatus = "DOWN"
)

const (
	DependencyStorage = "storage"
	DependencyCache   = "cache"
	DependencyQueue   = "queue"
	DependencySearch  = "search"
)

type (
	DependencyCheckStatus string

	HealthStatus string

	// DependencyStatus is the outcome of probing one backing service.
	DependencyStatus struct {
		Status       DependencyCheckStatus `json:"status"`
		ResponseTime float64               `json:"response_time_ms"`
		LastChecked  time.Time             `json:"last_checked"`
		Error        string                `json:"error,omitempty"`
		Critical     bool                  `json:"-"`
	}

	HealthReport struct {
		Status       HealthStatus                `json:"status"`
		Version      string                      `json:"version"`
		Uptime       float64                     `json:"uptime_seconds"`
		Timestamp    time.Time                   `json:"timestamp"`
		Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
	}
)

// Aggregate derives the overall status: a failing critical dependency takes the
// service down, any other failure only degrades it.
func Aggregate(deps map[string]DependencyStatus) HealthStatus {
	status := HealthStatusOK

	for _, dep := range deps {
		switch dep.Status {
		case DependencyCheckStatusUnhealthy:
			if dep.Critical {
				return HealthStatusDown
			}

			status = HealthStatusDegraded
		case DependencyCheckStatusDegraded:
			status = HealthStatusDegraded
		}
	}

	return status
}
