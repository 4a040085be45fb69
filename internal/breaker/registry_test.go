// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package breaker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stratum-ai/stratum/internal/breaker"
	"github.com/stratum-ai/stratum/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreateIsLazyAndStable(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{})

	assert.Nil(t, r.Get("anthropic"))

	cb := r.GetOrCreate("anthropic")
	require.NotNil(t, cb)
	assert.Same(t, cb, r.GetOrCreate("anthropic"), "same breaker on repeat lookup")
	assert.Same(t, cb, r.Get("anthropic"))
}

func TestRegistry_SummaryClassification(t *testing.T) {
	tests := []struct {
		name  string
		total int
		open  int
		want  health.Status
	}{
		{name: "empty registry", total: 0, open: 0, want: health.StatusUnknown},
		{name: "all closed", total: 4, open: 0, want: health.StatusHealthy},
		{name: "under 30 percent open", total: 4, open: 1, want: health.StatusDegraded},
		{name: "at 30 percent open", total: 10, open: 3, want: health.StatusUnhealthy},
		{name: "majority open", total: 4, open: 3, want: health.StatusUnhealthy},
	}

	providers := []string{"anthropic", "google", "openai", "openrouter",
		"p5", "p6", "p7", "p8", "p9", "p10"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := breaker.NewRegistry(breaker.Config{})
			for i := 0; i < tt.total; i++ {
				cb := r.GetOrCreate(providers[i])
				if i < tt.open {
					cb.ForceOpen()
				}
			}

			s := r.Summary()
			assert.Equal(t, tt.want, s.Status)
			assert.Equal(t, tt.total, s.Total)
			assert.Equal(t, tt.open, s.Open)
		})
	}
}

func TestRegistry_ResetAll(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{FailureThreshold: 1})

	for _, name := range []string{"anthropic", "openai", "google"} {
		cb := r.GetOrCreate(name)
		require.Error(t, cb.Do(context.Background(), failing))
		require.True(t, cb.IsOpen())
	}

	r.ResetAll()

	for name, snap := range r.AllSnapshots() {
		assert.Equal(t, breaker.StateClosed, snap.State, name)
		assert.Zero(t, snap.FailureCount, name)
		assert.Zero(t, snap.TotalCalls, name)
		assert.Zero(t, snap.ConsecutiveFailures, name)
	}
	assert.Equal(t, health.StatusHealthy, r.Summary().Status)
}

func TestRegistry_SummaryKeysSorted(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{})
	r.GetOrCreate("openai")
	r.GetOrCreate("anthropic")
	r.GetOrCreate("google")

	assert.Equal(t, []string{"anthropic", "google", "openai"}, r.Summary().Keys)
}

func TestRegistry_MonitorMetrics(t *testing.T) {
	r := breaker.NewRegistry(breaker.Config{})
	r.GetOrCreate("anthropic")
	r.GetOrCreate("openai").ForceOpen()

	assert.Equal(t, "circuit_breakers", r.Component())

	metrics := r.Metrics()
	require.Len(t, metrics, 1)
	assert.Equal(t, "breaker_open_ratio", metrics[0].Name)
	assert.InDelta(t, 0.5, metrics[0].Value, 1e-9)
	assert.Equal(t, health.StatusDegraded, metrics[0].Status())
	assert.WithinDuration(t, time.Now(), metrics[0].RecordedAt, time.Minute)
}
