// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

func TestNew_CarriesCodeAndFields(t *testing.T) {
	err := stratumerr.New(
		stratumerr.CodeProviderNotFound,
		"no such provider",
		stratumerr.FieldProvider("openai"),
		stratumerr.Field("model", "gpt-4.1"),
	)

	require.Error(t, err)
	assert.Equal(t, stratumerr.CodeProviderNotFound, stratumerr.CodeOf(err))
	assert.True(t, stratumerr.HasCode(err, stratumerr.CodeProviderNotFound))

	fields := stratumerr.FieldsOf(err)
	assert.Equal(t, "openai", fields["provider"])
	assert.Equal(t, "gpt-4.1", fields["model"])
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := stratumerr.Wrap(cause, stratumerr.CodeProviderCallFailure, "calling anthropic")

	assert.Equal(t, stratumerr.CodeProviderCallFailure, stratumerr.CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "calling anthropic")
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.NoError(t, stratumerr.Wrap(nil, stratumerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, stratumerr.Wrapf(nil, stratumerr.CodeServerInternalFailure, "ignored %d", 1))
	assert.NoError(t, stratumerr.With(nil, stratumerr.FieldProvider("x")))
}

func TestWrapf_FormatsMessage(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := stratumerr.Wrapf(cause, stratumerr.CodeConfigLoadReadFailure, "reading %s", "/etc/stratum.yaml")

	assert.Contains(t, err.Error(), "/etc/stratum.yaml")
	assert.Equal(t, stratumerr.CodeConfigLoadReadFailure, stratumerr.CodeOf(err))
}

func TestWith_KeepsExistingCode(t *testing.T) {
	err := stratumerr.New(stratumerr.CodeBudgetExceeded, "over limit")
	err = stratumerr.With(err, stratumerr.FieldBudgetKey("anthropic_monthly"))

	assert.Equal(t, stratumerr.CodeBudgetExceeded, stratumerr.CodeOf(err))
	assert.Equal(t, "anthropic_monthly", stratumerr.FieldsOf(err)["budget_key"])
}

func TestCodeOf_PlainError(t *testing.T) {
	assert.Equal(t, stratumerr.Code(""), stratumerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, stratumerr.Code(""), stratumerr.CodeOf(nil))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
		want bool
	}{
		{"circuit open", stratumerr.New(stratumerr.CodeCircuitOpen, "open"), stratumerr.IsCircuitOpen, true},
		{"not found via budget", stratumerr.New(stratumerr.CodeBudgetNotFound, "missing"), stratumerr.IsNotFound, true},
		{"not found via alert", stratumerr.New(stratumerr.CodeAlertNotFound, "missing"), stratumerr.IsNotFound, true},
		{"invalid request", stratumerr.New(stratumerr.CodeRequestInvalid, "bad"), stratumerr.IsInvalidInput, true},
		{"invalid config value", stratumerr.New(stratumerr.CodeConfigValidateInvalidValue, "bad"), stratumerr.IsInvalidInput, true},
		{"budget exceeded", stratumerr.New(stratumerr.CodeBudgetExceeded, "over"), stratumerr.IsBudgetExceeded, true},
		{"quota exceeded counts", stratumerr.New(stratumerr.CodeProviderCallQuotaExceeded, "over"), stratumerr.IsBudgetExceeded, true},
		{"timeout", stratumerr.New(stratumerr.CodeProviderCallTimeout, "slow"), stratumerr.IsTimeout, true},
		{"provider call", stratumerr.New(stratumerr.CodeProviderCallServerError, "500"), stratumerr.IsProviderCall, true},
		{"not provider call", stratumerr.New(stratumerr.CodeProviderNotFound, "missing"), stratumerr.IsProviderCall, false},
		{"plain error never matches", stderrors.New("plain"), stratumerr.IsCircuitOpen, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.pred(tc.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"circuit open", stratumerr.New(stratumerr.CodeCircuitOpen, "open"), http.StatusServiceUnavailable},
		{"none available", stratumerr.New(stratumerr.CodeProviderNoneAvailable, "none"), http.StatusServiceUnavailable},
		{"not found", stratumerr.New(stratumerr.CodeBudgetNotFound, "missing"), http.StatusNotFound},
		{"invalid", stratumerr.New(stratumerr.CodeRequestInvalid, "bad"), http.StatusBadRequest},
		{"budget exceeded", stratumerr.New(stratumerr.CodeBudgetExceeded, "over"), http.StatusTooManyRequests},
		{"rate limit", stratumerr.New(stratumerr.CodeProviderCallRateLimit, "429"), http.StatusTooManyRequests},
		{"timeout", stratumerr.New(stratumerr.CodeProviderCallTimeout, "slow"), http.StatusGatewayTimeout},
		{"provider call", stratumerr.New(stratumerr.CodeProviderCallAuthFailure, "401"), http.StatusBadGateway},
		{"unclassified", stderrors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stratumerr.HTTPStatus(tc.err))
		})
	}
}

func TestJoin(t *testing.T) {
	e1 := stderrors.New("first")
	e2 := stderrors.New("second")

	err := stratumerr.Join(e1, e2)
	assert.ErrorIs(t, err, e1)
	assert.ErrorIs(t, err, e2)
	assert.Equal(t, stratumerr.CodeServerInternalFailure, stratumerr.CodeOf(err))
}
