// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package provider

import (
	"context"
	"errors"
	"net/http"
	"time"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Adapter is the capability interface every vendor integration implements.
// An adapter owns its vendor's request/response translation and
// authentication; the resilience core only sees this surface.
type Adapter interface {
	Name() string
	Execute(ctx context.Context, req Request) (Response, error)
	SupportsModel(model string) bool
	HealthCheck(ctx context.Context) Status
}

// Request is a vendor-neutral completion request.
type Request struct {
	Model       string         `json:"model"`
	Prompt      string         `json:"prompt"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Temperature float32        `json:"temperature,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Response is a vendor-neutral completion response. CostUSD is the
// adapter's own pricing of the reported usage; zero when the vendor has
// no published price for the model.
type Response struct {
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Content  string  `json:"content"`
	Usage    Usage   `json:"usage"`
	CostUSD  float64 `json:"cost_usd"`
}

// Usage is the token accounting for one completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Status is an adapter-reported availability probe result.
type Status struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

// StatusUnavailable marks a provider whose circuit breaker is open. It
// extends the health.Status set, which has no notion of fail-fast.
const StatusUnavailable = "unavailable"

// HealthRecord is the derived per-provider health view. It is computed
// from accumulated counters and never stored separately.
type HealthRecord struct {
	Provider        string        `json:"provider"`
	Status          string        `json:"status"`
	TotalRequests   int64         `json:"total_requests"`
	SuccessRate     float64       `json:"success_rate"`
	FailureRate     float64       `json:"failure_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	TotalCost       float64       `json:"total_cost"`
	LastRequestTime time.Time     `json:"last_request_time"`
}

// Kind classifies a provider call failure. Adapters attach the kind to
// every error they return, so the core never parses error text.
type Kind string

const (
	KindTimeout          Kind = "timeout"
	KindRateLimit        Kind = "rate_limit"
	KindAuthFailure      Kind = "auth_failure"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindModelUnavailable Kind = "model_unavailable"
	KindInvalidRequest   Kind = "invalid_request"
	KindServerError      Kind = "server_error"
	KindUnknown          Kind = "unknown"
)

// Kinds lists every classifiable failure kind, in tally order.
func Kinds() []Kind {
	return []Kind{
		KindTimeout,
		KindRateLimit,
		KindAuthFailure,
		KindQuotaExceeded,
		KindModelUnavailable,
		KindInvalidRequest,
		KindServerError,
	}
}

var kindCodes = map[Kind]stratumerr.Code{
	KindTimeout:          stratumerr.CodeProviderCallTimeout,
	KindRateLimit:        stratumerr.CodeProviderCallRateLimit,
	KindAuthFailure:      stratumerr.CodeProviderCallAuthFailure,
	KindQuotaExceeded:    stratumerr.CodeProviderCallQuotaExceeded,
	KindModelUnavailable: stratumerr.CodeProviderCallModelUnavailable,
	KindInvalidRequest:   stratumerr.CodeProviderCallInvalidRequest,
	KindServerError:      stratumerr.CodeProviderCallServerError,
}

var codeKinds = func() map[stratumerr.Code]Kind {
	m := make(map[stratumerr.Code]Kind, len(kindCodes))
	for k, c := range kindCodes {
		m[c] = k
	}
	return m
}()

// CodeFor maps a failure kind to its error code.
func CodeFor(k Kind) stratumerr.Code {
	if c, ok := kindCodes[k]; ok {
		return c
	}
	return stratumerr.CodeProviderCallFailure
}

// KindOf extracts the failure kind carried by an error's code.
// Errors without a provider.call code report KindUnknown.
func KindOf(err error) Kind {
	if k, ok := codeKinds[stratumerr.CodeOf(err)]; ok {
		return k
	}
	return KindUnknown
}

// KindFromHTTPStatus classifies a vendor HTTP status code.
func KindFromHTTPStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthFailure
	case status == http.StatusPaymentRequired:
		return KindQuotaExceeded
	case status == http.StatusNotFound:
		return KindModelUnavailable
	case status == http.StatusTooManyRequests:
		return KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return KindInvalidRequest
	case status >= 500:
		return KindServerError
	default:
		return KindUnknown
	}
}

// ClassifyHTTP wraps a vendor error using its HTTP status for the kind.
// Context cancellation and deadline errors always classify as timeout.
func ClassifyHTTP(err error, status int, providerName string) error {
	if err == nil {
		return nil
	}
	kind := KindFromHTTPStatus(status)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = KindTimeout
	}
	return Failure(err, kind, providerName)
}

// Failure wraps an underlying vendor error with its classified kind, so
// the breaker and metrics can count it exactly while callers still see
// the original cause through Unwrap.
func Failure(err error, kind Kind, providerName string) error {
	if err == nil {
		return nil
	}
	return stratumerr.Wrap(err, CodeFor(kind), "provider call failed",
		stratumerr.FieldProvider(providerName),
		stratumerr.Field("kind", string(kind)),
	)
}
