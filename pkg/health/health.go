// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package health

import "time"

// Status is a coarse health classification shared by components,
// providers, and the system as a whole.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusCritical  Status = "critical"
	StatusUnknown   Status = "unknown"
)

// Severity is the urgency level of an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Metric is a named measurement compared against warning/critical
// thresholds. By contract, higher values are worse: a metric whose
// value meets or exceeds a threshold has breached it, so rates that
// improve as they grow (success rate) are reported inverted (failure
// rate).
type Metric struct {
	Name              string    `json:"name"`
	Value             float64   `json:"value"`
	WarningThreshold  float64   `json:"warning_threshold"`
	CriticalThreshold float64   `json:"critical_threshold"`
	Unit              string    `json:"unit,omitempty"`
	RecordedAt        time.Time `json:"recorded_at"`
}

// Status derives the metric's health purely from its value and thresholds.
func (m Metric) Status() Status {
	switch {
	case m.Value >= m.CriticalThreshold:
		return StatusCritical
	case m.Value >= m.WarningThreshold:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// Alert is a raised health or budget condition. Alerts stay active until
// explicitly resolved; resolved alerts are eventually pruned.
type Alert struct {
	ID         string     `json:"id"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Component  string     `json:"component"`
	CreatedAt  time.Time  `json:"created_at"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}
