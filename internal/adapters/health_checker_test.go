package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

func healthy(context.Context) error { return nil }

func failing(context.Context) error { return errors.New("connection refused") }

func TestHealthCheckerAggregation(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		probes     []Probe
		wantHealth domain.HealthStatus
		wantReady  domain.HealthStatus
	}{
		{
			name: "all healthy",
			probes: []Probe{
				NewProbe(domain.DependencyStorage, true, healthy),
				NewProbe(domain.DependencyCache, false, healthy),
			},
			wantHealth: domain.HealthStatusOK,
			wantReady:  domain.HealthStatusOK,
		},
		{
			name: "optional dependency down",
			probes: []Probe{
				NewProbe(domain.DependencyStorage, true, healthy),
				NewProbe(domain.DependencySearch, false, failing),
			},
			wantHealth: domain.HealthStatusDegraded,
			wantReady:  domain.HealthStatusOK,
		},
		{
			name: "critical dependency down",
			probes: []Probe{
				NewProbe(domain.DependencyStorage, true, failing),
				NewProbe(domain.DependencyCache, false, healthy),
			},
			wantHealth: domain.HealthStatusDown,
			wantReady:  domain.HealthStatusDown,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			checker := NewHealthChecker("1.2.3", time.Second)
			for _, probe := range tc.probes {
				checker.probes = append(checker.probes, probe)
			}

			health := checker.CheckHealth(context.Background())
			assert.Equal(t, tc.wantHealth, health.Status)
			assert.Len(t, health.Dependencies, len(tc.probes))
			assert.Equal(t, "1.2.3", health.Version)

			ready := checker.CheckReadiness(context.Background())
			assert.Equal(t, tc.wantReady, ready.Status)
			assert.Len(t, ready.Dependencies, 1)
		})
	}
}

func TestHealthCheckerTimesOutSlowProbes(t *testing.T) {
	t.Parallel()

	slow := NewProbe(domain.DependencyQueue, true, func(ctx context.Context) error {
		<-ctx.Done()

		return ctx.Err()
	})

	report := NewHealthChecker("dev", 20*time.Millisecond, slow).CheckHealth(context.Background())

	require.Contains(t, report.Dependencies, domain.DependencyQueue)
	assert.Equal(t, domain.HealthStatusDown, report.Status)
	assert.Equal(t, "Health check timeout", report.Dependencies[domain.DependencyQueue].Error)
}

func TestLivenessSkipsProbes(t *testing.T) {
	t.Parallel()

	report := NewHealthChecker("dev", time.Second, NewProbe(domain.DependencyStorage, true, failing)).
		CheckLiveness(context.Background())

	assert.Equal(t, domain.HealthStatusOK, report.Status)
	assert.Empty(t, report.Dependencies)
}
