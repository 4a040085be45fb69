// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package notify delivers budget and health alerts to external sinks.
// Delivery is fire-and-forget: a sink failure is logged and never blocks
// the request path.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
	"github.com/stratum-ai/stratum/pkg/health"
)

// Event is one alert notification.
type Event struct {
	Type      string          `json:"type"`
	Severity  health.Severity `json:"severity"`
	Component string          `json:"component"`
	Message   string          `json:"message"`
	Fields    map[string]any  `json:"fields,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Sink receives alert events.
type Sink interface {
	Notify(ctx context.Context, ev Event)
}

// LogSink writes events to the structured log. It is the default sink
// when no webhooks are configured.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, ev Event) {
	slog.Warn("alert",
		"type", ev.Type,
		"severity", ev.Severity,
		"component", ev.Component,
		"message", ev.Message,
	)
}

// WebhookSink POSTs events as JSON to each configured URL.
type WebhookSink struct {
	urls   []string
	client *http.Client
}

// NewWebhookSink creates a sink for the given URLs. A nil client uses a
// 10s-timeout default.
func NewWebhookSink(urls []string, client *http.Client) *WebhookSink {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookSink{urls: urls, client: client}
}

// Notify posts the event to every webhook. Failures are logged; nothing
// is retried.
func (w *WebhookSink) Notify(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encoding alert event", "error", err)
		return
	}

	for _, url := range w.urls {
		if err := w.post(ctx, url, body); err != nil {
			slog.Error("delivering alert", "url", url, "error", err)
			continue
		}
		slog.Debug("delivered alert", "url", url, "type", ev.Type)
	}
}

func (w *WebhookSink) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return stratumerr.Wrap(err, stratumerr.CodeNotifyDeliveryFailure, "building alert request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return stratumerr.Wrap(err, stratumerr.CodeNotifyDeliveryFailure, "posting alert")
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		return stratumerr.Errorf(stratumerr.CodeNotifyDeliveryFailure,
			"webhook rejected event with status %d", resp.StatusCode)
	}
	return nil
}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Notify(ctx, ev)
	}
}
