// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package cost

import "time"

// AggregateStats accumulates cost over one grouping dimension.
type AggregateStats struct {
	TotalCost         float64 `json:"total_cost"`
	TotalRequests     int64   `json:"total_requests"`
	TotalTokens       int64   `json:"total_tokens"`
	AvgCostPerRequest float64 `json:"avg_cost_per_request"`
	CostPerToken      float64 `json:"cost_per_token"`
}

// WindowStats accumulates cost over a fixed trailing window.
type WindowStats struct {
	TotalCost     float64 `json:"total_cost"`
	TotalRequests int64   `json:"total_requests"`
	TotalTokens   int64   `json:"total_tokens"`
}

// Analytics is a full cost breakdown: lifetime totals, per-provider and
// per-model aggregates ("provider/model" keys), trailing windows, and
// every budget's status.
type Analytics struct {
	GeneratedAt       time.Time                 `json:"generated_at"`
	TotalRequests     int64                     `json:"total_requests"`
	TotalCost         float64                   `json:"total_cost"`
	AvgCostPerRequest float64                   `json:"avg_cost_per_request"`
	Providers         map[string]AggregateStats `json:"providers"`
	Models            map[string]AggregateStats `json:"models"`
	Windows           map[string]WindowStats    `json:"windows"`
	Budgets           map[string]Budget         `json:"budgets"`
}

// trailingWindows names the fixed analytics windows.
var trailingWindows = map[string]time.Duration{
	"last_hour":  time.Hour,
	"last_day":   24 * time.Hour,
	"last_week":  7 * 24 * time.Hour,
	"last_month": 30 * 24 * time.Hour,
}

// Analytics returns the cost breakdown, recomputing at most once per
// CacheTTL; tracking calls invalidate the cache immediately.
func (t *Tracker) Analytics() Analytics {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	if t.cached != nil && now.Sub(t.cachedAt) < t.cfg.CacheTTL {
		return *t.cached
	}

	a := Analytics{
		GeneratedAt:   now,
		TotalRequests: t.totalRequests,
		TotalCost:     t.totalCost,
		Providers:     make(map[string]AggregateStats),
		Models:        make(map[string]AggregateStats),
		Windows:       make(map[string]WindowStats),
		Budgets:       make(map[string]Budget, len(t.budgets)),
	}
	if t.totalRequests > 0 {
		a.AvgCostPerRequest = t.totalCost / float64(t.totalRequests)
	}

	for _, e := range t.entries {
		p := a.Providers[e.Provider]
		p.TotalCost += e.Cost
		p.TotalRequests++
		p.TotalTokens += int64(e.TotalTokens)
		a.Providers[e.Provider] = p

		mk := e.Provider + "/" + e.Model
		m := a.Models[mk]
		m.TotalCost += e.Cost
		m.TotalRequests++
		m.TotalTokens += int64(e.TotalTokens)
		a.Models[mk] = m

		for name, span := range trailingWindows {
			if e.Timestamp.Before(now.Add(-span)) {
				continue
			}
			w := a.Windows[name]
			w.TotalCost += e.Cost
			w.TotalRequests++
			w.TotalTokens += int64(e.TotalTokens)
			a.Windows[name] = w
		}
	}

	for key, stats := range a.Providers {
		a.Providers[key] = finalize(stats)
	}
	for key, stats := range a.Models {
		a.Models[key] = finalize(stats)
	}
	for key, b := range t.budgets {
		a.Budgets[key] = *b
	}

	t.cached = &a
	t.cachedAt = now
	return a
}

func finalize(s AggregateStats) AggregateStats {
	if s.TotalRequests > 0 {
		s.AvgCostPerRequest = s.TotalCost / float64(s.TotalRequests)
	}
	if s.TotalTokens > 0 {
		s.CostPerToken = s.TotalCost / float64(s.TotalTokens)
	}
	return s
}
