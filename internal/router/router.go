// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package router selects a backend provider for a request by scoring
// every candidate on model support, cost fit, health, latency, and
// reliability. Selection happens once, before the call; the router never
// retries or fails over within a logical request.
package router

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
)

// Priority biases selection for a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityUrgent Priority = "urgent"
)

// Requirements describes what the caller needs from a provider.
type Requirements struct {
	Model           string   `json:"model,omitempty"`
	CostBudget      float64  `json:"cost_budget,omitempty"`
	EstimatedTokens int      `json:"estimated_tokens,omitempty"`
	Priority        Priority `json:"priority,omitempty"`
}

// CostEstimator predicts the cost of a request from historical usage.
type CostEstimator interface {
	EstimateCost(providerName, model string, estimatedTokens int) float64
}

// HealthSource exposes the derived per-provider health view.
type HealthSource interface {
	Record(providerName string) provider.HealthRecord
}

// Scoring weights. The response-time table is the canonical four-tier
// one; the reduced three-tier variant that used to exist alongside it
// was dropped.
const (
	scoreModelSupported  = 30
	scoreWithinBudget    = 25
	scoreWellUnderBudget = 10
	underBudgetRatio     = 0.8

	scoreHealthy   = 20
	scoreDegraded  = 10
	scoreUnhealthy = 2

	scorePriorityBonus   = 10
	urgentMinSuccessRate = 0.95
)

func responseTimeScore(avg time.Duration) int {
	switch {
	case avg < time.Second:
		return 30
	case avg < 3*time.Second:
		return 20
	case avg < 5*time.Second:
		return 10
	default:
		return 5
	}
}

func reliabilityScore(successRate float64) int {
	switch {
	case successRate >= 0.95:
		return 30
	case successRate >= 0.90:
		return 20
	case successRate >= 0.80:
		return 10
	default:
		return 5
	}
}

// Router scores and selects providers.
type Router struct {
	mu       sync.RWMutex
	adapters map[string]provider.Adapter

	healthSource  HealthSource
	costEstimator CostEstimator
	costEffective map[string]bool
}

// Option configures a Router.
type Option func(*Router)

// WithCostEffectiveProviders names the providers that receive the
// low-priority cost bonus. Default: openrouter.
func WithCostEffectiveProviders(names ...string) Option {
	return func(r *Router) {
		r.costEffective = make(map[string]bool, len(names))
		for _, n := range names {
			r.costEffective[n] = true
		}
	}
}

// New creates a Router backed by the given health and cost sources.
func New(healthSource HealthSource, costEstimator CostEstimator, opts ...Option) *Router {
	r := &Router{
		adapters:      make(map[string]provider.Adapter),
		healthSource:  healthSource,
		costEstimator: costEstimator,
		costEffective: map[string]bool{"openrouter": true},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider adapter as a selection candidate.
func (r *Router) Register(name string, a provider.Adapter) {
	r.mu.Lock()
	r.adapters[name] = a
	r.mu.Unlock()
}

// Get returns the adapter registered under name.
func (r *Router) Get(name string) (provider.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[name]
	if !ok {
		return nil, stratumerr.New(stratumerr.CodeProviderNotFound,
			"provider not registered: "+name,
			stratumerr.FieldProvider(name),
		)
	}
	return a, nil
}

// Providers lists registered provider names in lexicographic order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select returns the highest-scoring provider for the requirements.
// Ties break deterministically toward the lexicographically smaller
// name. An empty candidate set is an error.
func (r *Router) Select(_ context.Context, req Requirements) (string, error) {
	names := r.Providers()
	if len(names) == 0 {
		return "", stratumerr.New(stratumerr.CodeProviderNoneAvailable,
			"no providers registered")
	}

	best := ""
	bestScore := -1
	for _, name := range names {
		score := r.score(name, req)
		slog.Debug("scored provider", "provider", name, "score", score)
		if score > bestScore {
			best, bestScore = name, score
		}
	}

	slog.Info("selected provider",
		"provider", best,
		"score", bestScore,
		"model", req.Model,
		"priority", req.Priority,
	)
	return best, nil
}

func (r *Router) score(name string, req Requirements) int {
	r.mu.RLock()
	adapter := r.adapters[name]
	r.mu.RUnlock()

	score := 0

	if req.Model != "" && adapter.SupportsModel(req.Model) {
		score += scoreModelSupported
	}

	if req.CostBudget > 0 {
		est := r.costEstimator.EstimateCost(name, req.Model, req.EstimatedTokens)
		if est <= req.CostBudget {
			score += scoreWithinBudget
			if est < req.CostBudget*underBudgetRatio {
				score += scoreWellUnderBudget
			}
		}
	}

	rec := r.healthSource.Record(name)
	switch health.Status(rec.Status) {
	case health.StatusHealthy:
		score += scoreHealthy
	case health.StatusDegraded:
		score += scoreDegraded
	case health.StatusUnhealthy:
		score += scoreUnhealthy
	}

	score += responseTimeScore(rec.AvgResponseTime)
	score += reliabilityScore(rec.SuccessRate)

	switch req.Priority {
	case PriorityUrgent:
		if rec.SuccessRate > urgentMinSuccessRate {
			score += scorePriorityBonus
		}
	case PriorityLow:
		if r.costEffective[name] {
			score += scorePriorityBonus
		}
	}

	return score
}
