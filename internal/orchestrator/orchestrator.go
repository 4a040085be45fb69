// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package orchestrator is the caller-facing facade: it routes requests
// to a provider, runs the call through that provider's circuit breaker,
// and folds the result into metrics and cost accounting. One selection
// per logical request; there is no retry or failover inside Execute.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stratum-ai/stratum/internal/breaker"
	"github.com/stratum-ai/stratum/internal/cost"
	"github.com/stratum-ai/stratum/internal/monitor"
	"github.com/stratum-ai/stratum/internal/provider"
	"github.com/stratum-ai/stratum/internal/router"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
)

// Request is a completion request plus its routing constraints.
type Request struct {
	provider.Request

	CostBudget float64         `json:"cost_budget,omitempty"`
	Priority   router.Priority `json:"priority,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
}

func (r Request) requirements() router.Requirements {
	return router.Requirements{
		Model:           r.Model,
		CostBudget:      r.CostBudget,
		EstimatedTokens: r.MaxTokens,
		Priority:        r.Priority,
	}
}

// Outcome is the structured result of one Execute call. Err is set on
// failure; batch callers read it instead of handling a returned error
// so a single failed request never aborts the batch.
type Outcome struct {
	Success   bool              `json:"success"`
	Provider  string            `json:"provider"`
	RequestID string            `json:"request_id"`
	Response  provider.Response `json:"response"`
	Err       error             `json:"-"`
	Error     string            `json:"error,omitempty"`
	Cost      float64           `json:"cost"`
	Elapsed   time.Duration     `json:"elapsed"`
}

// Orchestrator wires the router, breaker registry, cost tracker, and
// health monitor behind one API. It is the router's health source: the
// per-provider records it derives feed back into scoring.
type Orchestrator struct {
	router   *router.Router
	breakers *breaker.Registry
	tracker  *cost.Tracker
	monitor  *monitor.Monitor

	mu      sync.RWMutex
	metrics map[string]*provider.Metrics
}

// New creates an Orchestrator. The router is built internally so the
// orchestrator can serve as its health source.
func New(breakers *breaker.Registry, tracker *cost.Tracker, mon *monitor.Monitor, opts ...router.Option) *Orchestrator {
	o := &Orchestrator{
		breakers: breakers,
		tracker:  tracker,
		monitor:  mon,
		metrics:  make(map[string]*provider.Metrics),
	}
	o.router = router.New(o, tracker, opts...)
	return o
}

// RegisterProvider adds an adapter as a routing candidate and creates
// its counters and circuit breaker.
func (o *Orchestrator) RegisterProvider(a provider.Adapter) {
	name := a.Name()
	o.router.Register(name, a)
	o.breakers.GetOrCreate(name)

	o.mu.Lock()
	if _, ok := o.metrics[name]; !ok {
		o.metrics[name] = provider.NewMetrics(name)
	}
	o.mu.Unlock()
	slog.Info("registered provider", "provider", name)
}

// Providers lists registered provider names.
func (o *Orchestrator) Providers() []string { return o.router.Providers() }

func (o *Orchestrator) metricsFor(name string) *provider.Metrics {
	o.mu.RLock()
	m, ok := o.metrics[name]
	o.mu.RUnlock()
	if ok {
		return m
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if m, ok := o.metrics[name]; ok {
		return m
	}
	m = provider.NewMetrics(name)
	o.metrics[name] = m
	return m
}

// Route selects the best provider for the requirements without calling
// it.
func (o *Orchestrator) Route(ctx context.Context, req router.Requirements) (string, error) {
	return o.router.Select(ctx, req)
}

// Execute routes the request, checks its budget, runs the adapter
// through the provider's breaker, and records the result. The outcome
// carries the error instead of returning it.
func (o *Orchestrator) Execute(ctx context.Context, req Request) Outcome {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	out := Outcome{RequestID: req.RequestID}

	name, err := o.Route(ctx, req.requirements())
	if err != nil {
		return out.fail(err)
	}
	out.Provider = name

	if err := o.checkBudget(name, req.CostBudget); err != nil {
		return out.fail(err)
	}

	adapter, err := o.router.Get(name)
	if err != nil {
		return out.fail(err)
	}

	start := time.Now()
	var resp provider.Response
	err = o.CallThroughBreaker(ctx, name, func(ctx context.Context) error {
		r, callErr := adapter.Execute(ctx, req.Request)
		resp = r
		return callErr
	})
	out.Elapsed = time.Since(start)

	metrics := o.metricsFor(name)
	if err != nil {
		metrics.RecordFailure()
		slog.Warn("provider call failed",
			"provider", name,
			"model", req.Model,
			"kind", provider.KindOf(err),
			"request_id", req.RequestID,
		)
		return out.fail(err)
	}

	metrics.RecordSuccess(out.Elapsed)
	metrics.AddCost(resp.CostUSD)
	o.tracker.TrackUsage(ctx, name, resp.Model, resp.Usage, resp.CostUSD, req.RequestID)

	out.Success = true
	out.Response = resp
	out.Cost = resp.CostUSD
	return out
}

func (out Outcome) fail(err error) Outcome {
	out.Err = err
	out.Error = err.Error()
	return out
}

// checkBudget fails fast when a request's declared budget no longer
// fits the remaining allowance of any budget covering the provider.
func (o *Orchestrator) checkBudget(providerName string, costBudget float64) error {
	if costBudget <= 0 {
		return nil
	}
	for key, b := range o.tracker.AllBudgets() {
		if b.Provider != cost.ScopeAll && b.Provider != providerName {
			continue
		}
		if b.Remaining() < costBudget {
			return stratumerr.New(stratumerr.CodeBudgetExceeded,
				"remaining budget below request budget",
				stratumerr.FieldProvider(providerName),
				stratumerr.FieldBudgetKey(key),
				stratumerr.Field("remaining", b.Remaining()),
				stratumerr.Field("requested", costBudget),
			)
		}
	}
	return nil
}

// CallThroughBreaker runs fn under the named provider's circuit
// breaker, for callers that already routed.
func (o *Orchestrator) CallThroughBreaker(ctx context.Context, providerName string, fn func(context.Context) error) error {
	return o.breakers.GetOrCreate(providerName).Do(ctx, fn)
}

// Record implements the router's health source: the derived record for
// one provider, reported unavailable while its breaker is open.
func (o *Orchestrator) Record(providerName string) provider.HealthRecord {
	rec := o.metricsFor(providerName).Record()
	if cb := o.breakers.Get(providerName); cb != nil && cb.IsOpen() {
		rec.Status = provider.StatusUnavailable
	}
	return rec
}

// ProviderHealth is the externally visible health view for one
// provider.
func (o *Orchestrator) ProviderHealth(providerName string) (provider.HealthRecord, error) {
	if _, err := o.router.Get(providerName); err != nil {
		return provider.HealthRecord{}, err
	}
	return o.Record(providerName), nil
}

// AllProviderHealth maps every registered provider to its health view.
func (o *Orchestrator) AllProviderHealth() map[string]provider.HealthRecord {
	out := make(map[string]provider.HealthRecord)
	for _, name := range o.router.Providers() {
		out[name] = o.Record(name)
	}
	return out
}

// TrackUsage records externally executed usage against the budgets.
func (o *Orchestrator) TrackUsage(ctx context.Context, providerName, model string, usage provider.Usage, costUSD float64, requestID string) cost.Entry {
	o.metricsFor(providerName).AddCost(costUSD)
	return o.tracker.TrackUsage(ctx, providerName, model, usage, costUSD, requestID)
}

// SetBudget delegates to the cost tracker.
func (o *Orchestrator) SetBudget(providerName string, period cost.Period, limit, alertThreshold float64) (string, error) {
	return o.tracker.SetBudget(providerName, period, limit, alertThreshold)
}

// BudgetStatus delegates to the cost tracker.
func (o *Orchestrator) BudgetStatus(key string) (cost.Budget, error) {
	return o.tracker.BudgetStatus(key)
}

// AllBudgets delegates to the cost tracker.
func (o *Orchestrator) AllBudgets() map[string]cost.Budget { return o.tracker.AllBudgets() }

// RemainingBudget delegates to the cost tracker.
func (o *Orchestrator) RemainingBudget(providerName string) float64 {
	return o.tracker.RemainingBudget(providerName)
}

// Analytics delegates to the cost tracker.
func (o *Orchestrator) Analytics() cost.Analytics { return o.tracker.Analytics() }

// Recommendations delegates to the cost tracker.
func (o *Orchestrator) Recommendations() []cost.Recommendation {
	return o.tracker.Recommendations()
}

// HealthCheck aggregates the monitor's latest view of every component.
func (o *Orchestrator) HealthCheck() monitor.Report { return o.monitor.Check() }

// Alerts delegates to the monitor.
func (o *Orchestrator) Alerts(activeOnly bool) []health.Alert {
	return o.monitor.Alerts(activeOnly)
}

// ResolveAlert delegates to the monitor.
func (o *Orchestrator) ResolveAlert(id string) error { return o.monitor.ResolveAlert(id) }

// BreakerSummary delegates to the breaker registry.
func (o *Orchestrator) BreakerSummary() breaker.Summary { return o.breakers.Summary() }

// ResetBreakers returns every breaker to CLOSED.
func (o *Orchestrator) ResetBreakers() { o.breakers.ResetAll() }

// ResetBreaker returns one provider's breaker to CLOSED.
func (o *Orchestrator) ResetBreaker(providerName string) { o.breakers.Reset(providerName) }
