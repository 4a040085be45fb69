// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package provider

import (
	"sync"
	"time"

	"github.com/stratum-ai/stratum/pkg/health"
)

// Failure-rate bands that downgrade a provider's derived status.
const (
	unhealthyFailureRate = 0.5
	degradedFailureRate  = 0.2
)

// Metrics accumulates per-provider request counters. One instance exists
// per registered provider; the derived HealthRecord is recomputed from the
// counters on every read.
type Metrics struct {
	mu sync.Mutex

	provider        string
	totalRequests   int64
	successRequests int64
	failedRequests  int64
	avgResponseTime time.Duration
	totalCost       float64
	lastRequestTime time.Time

	nowFunc func() time.Time
}

// NewMetrics creates an empty counter set for the named provider.
func NewMetrics(providerName string) *Metrics {
	return &Metrics{
		provider: providerName,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (m *Metrics) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.mu.Unlock()
}

// RecordSuccess folds a successful call into the counters. The average
// response time is a running mean over successful calls.
func (m *Metrics) RecordSuccess(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.successRequests++
	m.avgResponseTime = m.avgResponseTime +
		(elapsed-m.avgResponseTime)/time.Duration(m.successRequests)
	m.lastRequestTime = m.nowFunc()
}

// RecordFailure folds a failed call into the counters.
func (m *Metrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.failedRequests++
	m.lastRequestTime = m.nowFunc()
}

// AddCost accumulates spend attributed to this provider.
func (m *Metrics) AddCost(cost float64) {
	m.mu.Lock()
	m.totalCost += cost
	m.mu.Unlock()
}

// Reset zeroes all counters.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests = 0
	m.successRequests = 0
	m.failedRequests = 0
	m.avgResponseTime = 0
	m.totalCost = 0
	m.lastRequestTime = time.Time{}
}

// Record derives the provider's current health view. A provider with no
// traffic yet is healthy; otherwise the failure rate decides.
func (m *Metrics) Record() HealthRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := HealthRecord{
		Provider:        m.provider,
		Status:          string(health.StatusHealthy),
		TotalRequests:   m.totalRequests,
		AvgResponseTime: m.avgResponseTime,
		TotalCost:       m.totalCost,
		LastRequestTime: m.lastRequestTime,
	}

	if m.totalRequests == 0 {
		rec.SuccessRate = 1.0
		return rec
	}

	rec.SuccessRate = float64(m.successRequests) / float64(m.totalRequests)
	rec.FailureRate = float64(m.failedRequests) / float64(m.totalRequests)

	switch {
	case rec.FailureRate > unhealthyFailureRate:
		rec.Status = string(health.StatusUnhealthy)
	case rec.FailureRate > degradedFailureRate:
		rec.Status = string(health.StatusDegraded)
	}

	return rec
}
