// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package router_test

import (
	"context"
	"testing"
	"time"

	"github.com/stratum-ai/stratum/internal/provider"
	"github.com/stratum-ai/stratum/internal/router"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter satisfies provider.Adapter for scoring tests; Execute and
// HealthCheck are never reached by the router.
type fakeAdapter struct {
	name   string
	models map[string]bool
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Execute(context.Context, provider.Request) (provider.Response, error) {
	return provider.Response{}, nil
}

func (f *fakeAdapter) SupportsModel(model string) bool { return f.models[model] }

func (f *fakeAdapter) HealthCheck(context.Context) provider.Status {
	return provider.Status{Available: true}
}

type fakeHealth map[string]provider.HealthRecord

func (f fakeHealth) Record(name string) provider.HealthRecord {
	if rec, ok := f[name]; ok {
		return rec
	}
	return provider.HealthRecord{Provider: name, Status: string(health.StatusHealthy), SuccessRate: 1.0}
}

type fakeEstimator map[string]float64

func (f fakeEstimator) EstimateCost(providerName, _ string, _ int) float64 {
	return f[providerName]
}

func register(r *router.Router, names ...string) {
	for _, n := range names {
		r.Register(n, &fakeAdapter{name: n, models: map[string]bool{}})
	}
}

func TestSelect_EmptyCandidateSet(t *testing.T) {
	r := router.New(fakeHealth{}, fakeEstimator{})

	_, err := r.Select(context.Background(), router.Requirements{})
	require.Error(t, err)
	assert.True(t, stratumerr.HasCode(err, stratumerr.CodeProviderNoneAvailable))
}

func TestSelect_UrgentPrefersHealthyFastReliable(t *testing.T) {
	hs := fakeHealth{
		"alpha": {
			Provider:        "alpha",
			Status:          string(health.StatusHealthy),
			AvgResponseTime: 500 * time.Millisecond,
			SuccessRate:     0.97,
		},
		"beta": {
			Provider:        "beta",
			Status:          string(health.StatusDegraded),
			AvgResponseTime: 6 * time.Second,
			SuccessRate:     0.80,
		},
	}
	r := router.New(hs, fakeEstimator{})
	register(r, "alpha", "beta")

	got, err := r.Select(context.Background(), router.Requirements{Priority: router.PriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, "alpha", got)
}

func TestSelect_ModelSupportBonusDecides(t *testing.T) {
	hs := fakeHealth{}
	r := router.New(hs, fakeEstimator{})
	r.Register("generalist", &fakeAdapter{name: "generalist", models: map[string]bool{"gpt-5": true}})
	r.Register("specialist", &fakeAdapter{name: "specialist", models: map[string]bool{"claude-opus": true}})

	got, err := r.Select(context.Background(), router.Requirements{Model: "claude-opus"})
	require.NoError(t, err)
	assert.Equal(t, "specialist", got)
}

func TestSelect_BudgetFitScoring(t *testing.T) {
	est := fakeEstimator{"cheap": 0.50, "pricey": 3.00}
	r := router.New(fakeHealth{}, est)
	register(r, "cheap", "pricey")

	// Budget of $2: cheap is well under (25+10), pricey is over (0).
	got, err := r.Select(context.Background(), router.Requirements{CostBudget: 2.0})
	require.NoError(t, err)
	assert.Equal(t, "cheap", got)
}

func TestSelect_LowPriorityCostBonus(t *testing.T) {
	r := router.New(fakeHealth{}, fakeEstimator{},
		router.WithCostEffectiveProviders("frugal"))
	register(r, "frugal", "deluxe")

	got, err := r.Select(context.Background(), router.Requirements{Priority: router.PriorityLow})
	require.NoError(t, err)
	assert.Equal(t, "frugal", got)
}

func TestSelect_TiesBreakLexicographically(t *testing.T) {
	r := router.New(fakeHealth{}, fakeEstimator{})
	register(r, "zeta", "alpha", "mike")

	for i := 0; i < 5; i++ {
		got, err := r.Select(context.Background(), router.Requirements{})
		require.NoError(t, err)
		assert.Equal(t, "alpha", got, "equal scores must select deterministically")
	}
}

func TestSelect_ResponseTimeTiers(t *testing.T) {
	tests := []struct {
		name    string
		fastAvg time.Duration
		slowAvg time.Duration
	}{
		{name: "sub-second beats three-second", fastAvg: 900 * time.Millisecond, slowAvg: 2 * time.Second},
		{name: "three-second beats five-second", fastAvg: 2 * time.Second, slowAvg: 4 * time.Second},
		{name: "five-second beats slower", fastAvg: 4 * time.Second, slowAvg: 9 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hs := fakeHealth{
				"fast": {Status: string(health.StatusHealthy), AvgResponseTime: tt.fastAvg, SuccessRate: 0.99},
				"slow": {Status: string(health.StatusHealthy), AvgResponseTime: tt.slowAvg, SuccessRate: 0.99},
			}
			r := router.New(hs, fakeEstimator{})
			register(r, "fast", "slow")

			got, err := r.Select(context.Background(), router.Requirements{})
			require.NoError(t, err)
			assert.Equal(t, "fast", got)
		})
	}
}

func TestRouter_GetUnknownProvider(t *testing.T) {
	r := router.New(fakeHealth{}, fakeEstimator{})

	_, err := r.Get("nope")
	require.Error(t, err)
	assert.True(t, stratumerr.IsNotFound(err))
}

func TestRouter_ProvidersSorted(t *testing.T) {
	r := router.New(fakeHealth{}, fakeEstimator{})
	register(r, "openai", "anthropic", "google")

	assert.Equal(t, []string{"anthropic", "google", "openai"}, r.Providers())
}
