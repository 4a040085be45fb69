// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/stratum-ai/stratum/internal/notify"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
)

// alertStore keeps alerts keyed by ID with edge-triggered raising: a
// breached metric opens at most one active alert per component/metric
// pair until that alert is resolved.
type alertStore struct {
	retention time.Duration
	alerts    map[string]*health.Alert
	active    map[string]string // component/metric -> alert ID
	nowFunc   func() time.Time
}

func newAlertStore(retention time.Duration) *alertStore {
	return &alertStore{
		retention: retention,
		alerts:    make(map[string]*health.Alert),
		active:    make(map[string]string),
		nowFunc:   time.Now,
	}
}

// observe inspects one metric and opens an alert on breach. It returns
// the notify event to deliver when a new alert was raised.
func (s *alertStore) observe(component string, metric health.Metric) (notify.Event, bool) {
	status := metric.Status()
	key := component + "/" + metric.Name

	if status == health.StatusHealthy {
		// Breach cleared: the active marker drops so the next breach
		// raises a fresh alert. The alert itself stays until resolved.
		delete(s.active, key)
		return notify.Event{}, false
	}
	if _, open := s.active[key]; open {
		return notify.Event{}, false
	}

	severity := health.SeverityWarning
	if status == health.StatusCritical {
		severity = health.SeverityCritical
	}

	alert := &health.Alert{
		ID:       uuid.NewString(),
		Severity: severity,
		Message: fmt.Sprintf("%s %s at %.3f (warning %.3f, critical %.3f)",
			component, metric.Name, metric.Value,
			metric.WarningThreshold, metric.CriticalThreshold),
		Component: component,
		CreatedAt: s.nowFunc(),
	}
	s.alerts[alert.ID] = alert
	s.active[key] = alert.ID

	return notify.Event{
		Type:      "health_alert",
		Severity:  severity,
		Component: component,
		Message:   alert.Message,
		Fields: map[string]any{
			"alert_id": alert.ID,
			"metric":   metric.Name,
			"value":    metric.Value,
		},
		Timestamp: alert.CreatedAt,
	}, true
}

func (s *alertStore) resolve(id string) error {
	alert, ok := s.alerts[id]
	if !ok {
		return stratumerr.New(stratumerr.CodeAlertNotFound, "alert not found: "+id)
	}
	if alert.Resolved {
		return nil
	}
	now := s.nowFunc()
	alert.Resolved = true
	alert.ResolvedAt = &now

	for key, activeID := range s.active {
		if activeID == id {
			delete(s.active, key)
		}
	}
	return nil
}

func (s *alertStore) list(activeOnly bool) []health.Alert {
	out := make([]health.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		if activeOnly && alert.Resolved {
			continue
		}
		out = append(out, *alert)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// prune drops resolved alerts older than the retention window.
func (s *alertStore) prune(now time.Time) {
	cutoff := now.Add(-s.retention)
	for id, alert := range s.alerts {
		if alert.Resolved && alert.ResolvedAt != nil && alert.ResolvedAt.Before(cutoff) {
			delete(s.alerts, id)
		}
	}
}
