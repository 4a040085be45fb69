// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package monitor polls registered components for health metrics on a
// fixed interval, aggregates them into per-component and overall status,
// and raises alerts when a metric crosses its thresholds.
package monitor

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/stratum-ai/stratum/internal/notify"
	"github.com/stratum-ai/stratum/pkg/health"
)

// Source exposes a component's health metrics to the monitor. Metric
// values follow the "higher is worse" convention against their
// thresholds.
type Source interface {
	Component() string
	Metrics() []health.Metric
}

// Config tunes the monitor.
type Config struct {
	// Interval between polling sweeps.
	Interval time.Duration
	// HistoryLimit caps the retained snapshots per component.
	HistoryLimit int
	// MetricRetention bounds how long raw metrics are kept.
	MetricRetention time.Duration
	// AlertRetention bounds how long resolved alerts are kept.
	AlertRetention time.Duration
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        60 * time.Second,
		HistoryLimit:    1000,
		MetricRetention: 24 * time.Hour,
		AlertRetention:  30 * 24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.MetricRetention <= 0 {
		c.MetricRetention = d.MetricRetention
	}
	if c.AlertRetention <= 0 {
		c.AlertRetention = d.AlertRetention
	}
	return c
}

// Snapshot is one polled observation of a component.
type Snapshot struct {
	Component string          `json:"component"`
	Status    health.Status   `json:"status"`
	Metrics   []health.Metric `json:"metrics"`
	PolledAt  time.Time       `json:"polled_at"`
}

// Report is the aggregated view across all components.
type Report struct {
	Overall    health.Status            `json:"overall"`
	Components map[string]health.Status `json:"components"`
	CheckedAt  time.Time                `json:"checked_at"`
}

// Monitor owns the polling loop and the alert store.
type Monitor struct {
	cfg  Config
	sink notify.Sink

	mu      sync.Mutex
	sources []Source
	latest  map[string]Snapshot
	history map[string][]Snapshot
	alerts  *alertStore

	cancel  context.CancelFunc
	done    chan struct{}
	nowFunc func() time.Time
}

// New creates a stopped Monitor. A nil sink falls back to the
// structured log.
func New(cfg Config, sink notify.Sink) *Monitor {
	if sink == nil {
		sink = notify.LogSink{}
	}
	m := &Monitor{
		cfg:     cfg.withDefaults(),
		sink:    sink,
		latest:  make(map[string]Snapshot),
		history: make(map[string][]Snapshot),
		nowFunc: time.Now,
	}
	m.alerts = newAlertStore(m.cfg.AlertRetention)
	return m
}

// SetNowFunc overrides the time source (for testing).
func (m *Monitor) SetNowFunc(fn func() time.Time) {
	m.mu.Lock()
	m.nowFunc = fn
	m.alerts.nowFunc = fn
	m.mu.Unlock()
}

// Register adds a component source. Safe while the loop is running.
func (m *Monitor) Register(src Source) {
	m.mu.Lock()
	m.sources = append(m.sources, src)
	m.mu.Unlock()
	slog.Debug("registered health source", "component", src.Component())
}

// Start launches the polling loop. The first sweep runs immediately so
// status is populated before the first interval elapses.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.done != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)

		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		m.Sweep(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep(ctx)
			}
		}
	}()
	slog.Info("health monitor started", "interval", m.cfg.Interval)
}

// Stop cancels the loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("health monitor stopped")
}

// Sweep polls every source once, records snapshots, raises alerts for
// threshold breaches, and prunes stale data.
func (m *Monitor) Sweep(ctx context.Context) {
	m.mu.Lock()
	sources := make([]Source, len(m.sources))
	copy(sources, m.sources)
	now := m.nowFunc()
	m.mu.Unlock()

	var raised []notify.Event
	for _, src := range sources {
		metrics := src.Metrics()
		snap := Snapshot{
			Component: src.Component(),
			Status:    componentStatus(metrics),
			Metrics:   metrics,
			PolledAt:  now,
		}

		m.mu.Lock()
		m.latest[snap.Component] = snap
		hist := append(m.history[snap.Component], snap)
		if len(hist) > m.cfg.HistoryLimit {
			hist = hist[len(hist)-m.cfg.HistoryLimit:]
		}
		m.history[snap.Component] = hist

		for _, metric := range metrics {
			if ev, ok := m.alerts.observe(snap.Component, metric); ok {
				raised = append(raised, ev)
			}
		}
		m.pruneLocked(now)
		m.mu.Unlock()
	}

	for _, ev := range raised {
		m.sink.Notify(ctx, ev)
	}
}

// pruneLocked drops metrics past MetricRetention and resolved alerts
// past AlertRetention. Caller holds m.mu.
func (m *Monitor) pruneLocked(now time.Time) {
	metricCutoff := now.Add(-m.cfg.MetricRetention)
	for component, hist := range m.history {
		idx := 0
		for idx < len(hist) && hist[idx].PolledAt.Before(metricCutoff) {
			idx++
		}
		if idx > 0 {
			m.history[component] = hist[idx:]
		}
	}
	m.alerts.prune(now)
}

// componentStatus derives a status from one sweep's metrics: any
// critical breach is critical, any warning breach degrades.
func componentStatus(metrics []health.Metric) health.Status {
	if len(metrics) == 0 {
		return health.StatusUnknown
	}
	status := health.StatusHealthy
	for _, metric := range metrics {
		switch metric.Status() {
		case health.StatusCritical:
			return health.StatusCritical
		case health.StatusDegraded:
			status = health.StatusDegraded
		}
	}
	return status
}

// Check aggregates the latest snapshots: critical if any component is
// critical, unhealthy past half the fleet unhealthy, degraded past 30%
// degraded. Each status counts toward its own tally only.
func (m *Monitor) Check() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := Report{
		Components: make(map[string]health.Status, len(m.latest)),
		CheckedAt:  m.nowFunc(),
	}
	if len(m.latest) == 0 {
		report.Overall = health.StatusUnknown
		return report
	}

	unhealthy, degraded := 0, 0
	for component, snap := range m.latest {
		report.Components[component] = snap.Status
		switch snap.Status {
		case health.StatusCritical:
			report.Overall = health.StatusCritical
		case health.StatusUnhealthy:
			unhealthy++
		case health.StatusDegraded:
			degraded++
		}
	}
	if report.Overall == health.StatusCritical {
		return report
	}

	total := float64(len(m.latest))
	switch {
	case float64(unhealthy)/total > 0.5:
		report.Overall = health.StatusUnhealthy
	case float64(degraded)/total > 0.3:
		report.Overall = health.StatusDegraded
	default:
		report.Overall = health.StatusHealthy
	}
	return report
}

// Latest returns the most recent snapshot per component, sorted by
// component name.
func (m *Monitor) Latest() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.latest))
	for _, snap := range m.latest {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Component < out[j].Component })
	return out
}

// History returns the retained snapshots for one component, oldest
// first.
func (m *Monitor) History(component string) []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	hist := m.history[component]
	out := make([]Snapshot, len(hist))
	copy(out, hist)
	return out
}

// Alerts lists alerts, newest first. With activeOnly set, resolved
// alerts are skipped.
func (m *Monitor) Alerts(activeOnly bool) []health.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts.list(activeOnly)
}

// ResolveAlert marks the alert resolved.
func (m *Monitor) ResolveAlert(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.alerts.resolve(id)
}
