// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package breaker

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stratum-ai/stratum/pkg/health"
)

// degradedOpenRatio is the open-breaker ratio below which the fleet is
// merely degraded rather than unhealthy.
const degradedOpenRatio = 0.3

// Registry lazily creates and owns one breaker per provider key.
// Breakers live for the process lifetime.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	defaults Config
}

// Summary aggregates breaker states across the registry.
type Summary struct {
	Total            int           `json:"total"`
	Open             int           `json:"open"`
	HalfOpen         int           `json:"half_open"`
	Closed           int           `json:"closed"`
	Status           health.Status `json:"status"`
	HealthPercentage float64       `json:"health_percentage"`
	Keys             []string      `json:"keys"`
}

// NewRegistry creates an empty registry; defaults apply to every breaker
// it creates.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults.withDefaults(),
	}
}

// GetOrCreate returns the breaker for key, creating it on first use.
func (r *Registry) GetOrCreate(key string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[key]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[key]; ok {
		return cb
	}
	cb = New(key, r.defaults)
	r.breakers[key] = cb
	slog.Debug("created circuit breaker", "provider", key)
	return cb
}

// Get returns the breaker for key, or nil if none exists yet.
func (r *Registry) Get(key string) *CircuitBreaker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.breakers[key]
}

// AllSnapshots copies every breaker's state, keyed by provider.
func (r *Registry) AllSnapshots() map[string]Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Snapshot, len(r.breakers))
	for key, cb := range r.breakers {
		out[key] = cb.Snapshot()
	}
	return out
}

// Reset returns the named breaker to CLOSED, if it exists.
func (r *Registry) Reset(key string) {
	if cb := r.Get(key); cb != nil {
		cb.Reset()
		slog.Info("circuit breaker reset", "provider", key)
	}
}

// ResetAll returns every breaker to CLOSED with zeroed counters.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key, cb := range r.breakers {
		cb.Reset()
		slog.Info("circuit breaker reset", "provider", key)
	}
}

// Summary classifies the fleet: healthy when no breaker is open,
// degraded while fewer than 30% are open, unhealthy otherwise. An empty
// registry reports unknown.
func (r *Registry) Summary() Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Summary{Keys: make([]string, 0, len(r.breakers))}
	for key, cb := range r.breakers {
		s.Keys = append(s.Keys, key)
		s.Total++
		switch cb.State() {
		case StateOpen:
			s.Open++
		case StateHalfOpen:
			s.HalfOpen++
		default:
			s.Closed++
		}
	}
	sort.Strings(s.Keys)

	switch {
	case s.Total == 0:
		s.Status = health.StatusUnknown
	case s.Open == 0:
		s.Status = health.StatusHealthy
	case float64(s.Open) < float64(s.Total)*degradedOpenRatio:
		s.Status = health.StatusDegraded
	default:
		s.Status = health.StatusUnhealthy
	}
	if s.Total > 0 {
		s.HealthPercentage = float64(s.Total-s.Open) / float64(s.Total) * 100
	}
	return s
}

// Component names the registry for health monitoring.
func (r *Registry) Component() string { return "circuit_breakers" }

// Metrics exposes the fleet's open ratio for the health monitor.
func (r *Registry) Metrics() []health.Metric {
	s := r.Summary()

	openRatio := 0.0
	if s.Total > 0 {
		openRatio = float64(s.Open) / float64(s.Total)
	}

	return []health.Metric{
		{
			Name:              "breaker_open_ratio",
			Value:             openRatio,
			WarningThreshold:  degradedOpenRatio,
			CriticalThreshold: 1.0,
			Unit:              "ratio",
			RecordedAt:        time.Now(),
		},
	}
}
