// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package cost tracks per-request spend, enforces named calendar budgets,
// and derives analytics and optimization recommendations. All state is
// in-memory for the process lifetime; one lock guards the entry log and
// the budget map since both are touched by every completed request.
package cost

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stratum-ai/stratum/internal/notify"
	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
)

// ScopeAll is the budget scope matching every provider.
const ScopeAll = "all"

// Entry is an immutable record of token usage and dollar cost for one
// completed request.
type Entry struct {
	Timestamp        time.Time `json:"timestamp"`
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	Cost             float64   `json:"cost"`
	RequestID        string    `json:"request_id"`
}

// Budget caps spend for a provider scope over one calendar window.
// CurrentUsage is seeded from history once at creation and incremented
// as matching entries arrive; it is never re-derived from the log.
type Budget struct {
	Provider       string    `json:"provider"`
	Period         Period    `json:"period"`
	Limit          float64   `json:"limit"`
	CurrentUsage   float64   `json:"current_usage"`
	AlertThreshold float64   `json:"alert_threshold"`
	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
}

// Remaining is the unspent budget, never negative.
func (b Budget) Remaining() float64 {
	if b.CurrentUsage >= b.Limit {
		return 0
	}
	return b.Limit - b.CurrentUsage
}

// PercentUsed is the used fraction of the limit.
func (b Budget) PercentUsed() float64 {
	if b.Limit <= 0 {
		return 0
	}
	return b.CurrentUsage / b.Limit
}

// Exceeded reports whether usage has reached the limit.
func (b Budget) Exceeded() bool { return b.CurrentUsage >= b.Limit }

// ShouldAlert reports whether usage has reached the alert threshold.
func (b Budget) ShouldAlert() bool { return b.PercentUsed() >= b.AlertThreshold }

func (b Budget) matches(providerName string) bool {
	return b.Provider == ScopeAll || b.Provider == providerName
}

// Config tunes the tracker.
type Config struct {
	// MaxEntries caps the entry log; the oldest entries are evicted first.
	MaxEntries int
	// CacheTTL bounds analytics staleness between tracking calls.
	CacheTTL time.Duration
	// DefaultAlertThreshold applies when SetBudget receives zero.
	DefaultAlertThreshold float64
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:            10000,
		CacheTTL:              5 * time.Minute,
		DefaultAlertThreshold: 0.8,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.DefaultAlertThreshold <= 0 || c.DefaultAlertThreshold > 1 {
		c.DefaultAlertThreshold = d.DefaultAlertThreshold
	}
	return c
}

// Tracker is the budget and cost accounting core.
type Tracker struct {
	cfg  Config
	sink notify.Sink

	mu            sync.Mutex
	entries       []Entry
	budgets       map[string]*Budget
	totalRequests int64
	totalCost     float64

	cached   *Analytics
	cachedAt time.Time

	nowFunc func() time.Time
}

// NewTracker creates a Tracker delivering budget alerts to sink. A nil
// sink falls back to the structured log.
func NewTracker(cfg Config, sink notify.Sink) *Tracker {
	if sink == nil {
		sink = notify.LogSink{}
	}
	return &Tracker{
		cfg:     cfg.withDefaults(),
		sink:    sink,
		budgets: make(map[string]*Budget),
		nowFunc: time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (t *Tracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.nowFunc = fn
	t.mu.Unlock()
}

// TrackUsage appends a cost entry, charges every matching budget, and
// fires a budget alert for each budget at or over its alert threshold.
// Alerts are level-triggered: they fire on every call while the
// condition holds. An empty requestID gets a generated one.
func (t *Tracker) TrackUsage(ctx context.Context, providerName, model string, usage provider.Usage, costUSD float64, requestID string) Entry {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	t.mu.Lock()
	entry := Entry{
		Timestamp:        t.nowFunc(),
		Provider:         providerName,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		Cost:             costUSD,
		RequestID:        requestID,
	}

	t.entries = append(t.entries, entry)
	if len(t.entries) > t.cfg.MaxEntries {
		t.entries = t.entries[len(t.entries)-t.cfg.MaxEntries:]
	}

	t.totalRequests++
	t.totalCost += costUSD

	var breached []Budget
	for _, b := range t.budgets {
		if !b.matches(providerName) {
			continue
		}
		b.CurrentUsage += costUSD
		if b.ShouldAlert() {
			breached = append(breached, *b)
		}
	}

	t.cached = nil
	t.mu.Unlock()

	for _, b := range breached {
		t.alertBudget(ctx, b)
	}

	slog.Debug("tracked usage",
		"provider", providerName,
		"model", model,
		"cost", fmt.Sprintf("%.4f", costUSD),
		"tokens", usage.TotalTokens,
		"request_id", requestID,
	)
	return entry
}

func (t *Tracker) alertBudget(ctx context.Context, b Budget) {
	severity := health.SeverityWarning
	if b.Exceeded() {
		severity = health.SeverityError
	}

	t.sink.Notify(ctx, notify.Event{
		Type:      "budget_alert",
		Severity:  severity,
		Component: "cost_tracker",
		Message: fmt.Sprintf("budget %s_%s at %.1f%% of $%.2f limit",
			b.Provider, b.Period, b.PercentUsed()*100, b.Limit),
		Fields: map[string]any{
			"provider":      b.Provider,
			"period":        string(b.Period),
			"limit":         b.Limit,
			"current_usage": b.CurrentUsage,
			"exceeded":      b.Exceeded(),
		},
		Timestamp: time.Now(),
	})
}

// SetBudget creates (or replaces) the budget for the provider scope and
// period, seeding current usage from in-window history. It returns the
// budget key.
func (t *Tracker) SetBudget(providerName string, period Period, limit, alertThreshold float64) (string, error) {
	if limit <= 0 {
		return "", stratumerr.Errorf(stratumerr.CodeRequestInvalid,
			"budget limit must be positive, got %g", limit)
	}
	if alertThreshold < 0 || alertThreshold > 1 {
		return "", stratumerr.Errorf(stratumerr.CodeRequestInvalid,
			"alert threshold must be in [0, 1], got %g", alertThreshold)
	}
	if alertThreshold == 0 {
		alertThreshold = t.cfg.DefaultAlertThreshold
	}

	key := fmt.Sprintf("%s_%s", providerName, period)

	t.mu.Lock()
	defer t.mu.Unlock()

	start, end := period.Window(t.nowFunc())

	seeded := 0.0
	for _, e := range t.entries {
		if e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		if providerName == ScopeAll || e.Provider == providerName {
			seeded += e.Cost
		}
	}

	t.budgets[key] = &Budget{
		Provider:       providerName,
		Period:         period,
		Limit:          limit,
		CurrentUsage:   seeded,
		AlertThreshold: alertThreshold,
		PeriodStart:    start,
		PeriodEnd:      end,
	}
	t.cached = nil

	slog.Info("budget set",
		"key", key,
		"limit", limit,
		"seeded_usage", seeded,
		"period_start", start,
		"period_end", end,
	)
	return key, nil
}

// BudgetStatus returns a copy of the named budget.
func (t *Tracker) BudgetStatus(key string) (Budget, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.budgets[key]
	if !ok {
		return Budget{}, stratumerr.New(stratumerr.CodeBudgetNotFound,
			"budget not found: "+key,
			stratumerr.FieldBudgetKey(key),
		)
	}
	return *b, nil
}

// AllBudgets copies every budget keyed by provider_period.
func (t *Tracker) AllBudgets() map[string]Budget {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Budget, len(t.budgets))
	for k, b := range t.budgets {
		out[k] = *b
	}
	return out
}

// RemainingBudget returns the tightest remaining amount across budgets
// matching the provider scope, or 0 when no budget matches.
func (t *Tracker) RemainingBudget(providerName string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining, found := 0.0, false
	for _, b := range t.budgets {
		if !b.matches(providerName) {
			continue
		}
		if !found || b.Remaining() < remaining {
			remaining = b.Remaining()
			found = true
		}
	}
	return remaining
}

// EstimateCost predicts a request's cost from the historical cost per
// token of the provider/model pair. Unknown pairs estimate to 0.
func (t *Tracker) EstimateCost(providerName, model string, estimatedTokens int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	totalCost, totalTokens := 0.0, 0
	for _, e := range t.entries {
		if e.Provider != providerName {
			continue
		}
		if model != "" && e.Model != model {
			continue
		}
		totalCost += e.Cost
		totalTokens += e.TotalTokens
	}
	if totalTokens == 0 {
		return 0
	}
	return totalCost / float64(totalTokens) * float64(estimatedTokens)
}

// Entries copies the current entry log, oldest first.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Totals reports the lifetime request count and spend.
func (t *Tracker) Totals() (requests int64, costUSD float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalRequests, t.totalCost
}

// Component names the tracker for health monitoring.
func (t *Tracker) Component() string { return "cost_tracker" }

// Metrics exposes the worst budget utilization for the health monitor.
func (t *Tracker) Metrics() []health.Metric {
	t.mu.Lock()
	worst := 0.0
	for _, b := range t.budgets {
		if u := b.PercentUsed(); u > worst {
			worst = u
		}
	}
	t.mu.Unlock()

	return []health.Metric{
		{
			Name:              "budget_utilization",
			Value:             worst,
			WarningThreshold:  0.8,
			CriticalThreshold: 1.0,
			Unit:              "ratio",
			RecordedAt:        time.Now(),
		},
	}
}
