package adapters

import (
	"context"
	"sync"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const defaultProbeTimeout = 2 * time.Second

// HealthChecker runs the dependency probes behind the health endpoints.
type HealthChecker struct {
	probes       []ports.HealthProbe
	version      string
	probeTimeout time.Duration
	startTime    time.Time
}

func NewHealthChecker(version string, probeTimeout time.Duration, probes ...ports.HealthProbe) *HealthChecker {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}

	return &HealthChecker{
		probes:       probes,
		version:      version,
		probeTimeout: probeTimeout,
		startTime:    time.Now(),
	}
}

// CheckLiveness only reports that the process answers, dependencies are not probed.
func (h *HealthChecker) CheckLiveness(_ context.Context) domain.HealthReport {
	return h.report(domain.HealthStatusOK, nil)
}

// CheckReadiness probes the critical dependencies only.
func (h *HealthChecker) CheckReadiness(ctx context.Context) domain.HealthReport {
	deps := h.run(ctx, func(probe ports.HealthProbe) bool { return probe.Critical() })

	return h.report(domain.Aggregate(deps), deps)
}

// CheckHealth probes every dependency.
func (h *HealthChecker) CheckHealth(ctx context.Context) domain.HealthReport {
	deps := h.run(ctx, func(ports.HealthProbe) bool { return true })

	return h.report(domain.Aggregate(deps), deps)
}

func (h *HealthChecker) report(status domain.HealthStatus, deps map[string]domain.DependencyStatus) domain.HealthReport {
	return domain.HealthReport{
		Status:       status,
		Version:      h.version,
		Uptime:       time.Since(h.startTime).Seconds(),
		Timestamp:    time.Now().UTC(),
		Dependencies: deps,
	}
}

func (h *HealthChecker) run(ctx context.Context, include func(ports.HealthProbe) bool) map[string]domain.DependencyStatus {
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make(map[string]domain.DependencyStatus, len(h.probes))
	)

	for _, probe := range h.probes {
		if !include(probe) {
			continue
		}

		wg.Add(1)

		go func() {
			defer wg.Done()

			status := h.check(ctx, probe)

			mu.Lock()
			deps[probe.Name()] = status
			mu.Unlock()
		}()
	}

	wg.Wait()

	return deps
}

func (h *HealthChecker) check(ctx context.Context, probe ports.HealthProbe) domain.DependencyStatus {
	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(ctx)

	status := domain.DependencyStatus{
		Status:       domain.DependencyCheckStatusHealthy,
		ResponseTime: float64(time.Since(start).Microseconds()) / 1000,
		LastChecked:  time.Now().UTC(),
		Critical:     probe.Critical(),
	}

	if err != nil {
		status.Status = domain.DependencyCheckStatusUnhealthy
		status.Error = err.Error()

		if ctx.Err() != nil {
			status.Error = "Health check timeout"
		}
	}

	return status
}

// Probe adapts a ping function to ports.HealthProbe.
type Probe struct {
	name     string
	critical bool
	check    func(ctx context.Context) error
}

func NewProbe(name string, critical bool, check func(ctx context.Context) error) Probe {
	return Probe{name: name, critical: critical, check: check}
}

func (p Probe) Name() string {
	return p.name
}

func (p Probe) Critical() bool {
	return p.critical
}

func (p Probe) Check(ctx context.Context) error {
	return p.check(ctx)
}
