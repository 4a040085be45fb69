// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeCircuitOpen Code = "breaker.circuit.open"

	CodeProviderNotFound      Code = "provider.registry.not_found"
	CodeProviderNoneAvailable Code = "provider.routing.none_available"

	CodeProviderCallTimeout          Code = "provider.call.timeout"
	CodeProviderCallRateLimit        Code = "provider.call.rate_limit"
	CodeProviderCallAuthFailure      Code = "provider.call.auth_failure"
	CodeProviderCallQuotaExceeded    Code = "provider.call.quota_exceeded"
	CodeProviderCallModelUnavailable Code = "provider.call.model_unavailable"
	CodeProviderCallInvalidRequest   Code = "provider.call.invalid_request"
	CodeProviderCallServerError      Code = "provider.call.server_error"
	CodeProviderCallFailure          Code = "provider.call.failure"

	CodeBudgetExceeded Code = "budget.exceeded"
	CodeBudgetNotFound Code = "budget.not_found"

	CodeAlertNotFound Code = "monitor.alert.not_found"

	CodeRequestInvalid Code = "request.invalid"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"
	CodeServerInternalFailure Code = "server.internal.failure"

	CodeNotifyDeliveryFailure Code = "notify.delivery.failure"

	CodeCLISetupFailure      Code = "cli.setup.failure"
	CodeCLIRequestFailure    Code = "cli.request.failure"
	CodeCLIGatewayNotRunning Code = "cli.gateway.not_running"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldModel(value string) Attr {
	return Field("model", value)
}

func FieldRequestID(value string) Attr {
	return Field("request_id", value)
}

func FieldBudgetKey(value string) Attr {
	return Field("budget_key", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsCircuitOpen reports whether err is a fast-fail from an open breaker.
func IsCircuitOpen(err error) bool {
	return HasCode(err, CodeCircuitOpen)
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_value" || r == "invalid_request"
}

func IsBudgetExceeded(err error) bool {
	r := reason(CodeOf(err))
	return r == "exceeded" || r == "quota_exceeded"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

// IsProviderCall reports whether err originated from a provider adapter call.
func IsProviderCall(err error) bool {
	return strings.HasPrefix(string(CodeOf(err)), "provider.call.")
}

func HTTPStatus(err error) int {
	switch {
	case IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case HasCode(err, CodeProviderNoneAvailable):
		return http.StatusServiceUnavailable
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsBudgetExceeded(err):
		return http.StatusTooManyRequests
	case HasCode(err, CodeProviderCallRateLimit):
		return http.StatusTooManyRequests
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsProviderCall(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
