// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

func TestFailure_CarriesKindAndCause(t *testing.T) {
	cause := errors.New("upstream exploded")
	err := provider.Failure(cause, provider.KindServerError, "anthropic")

	require.Error(t, err)
	assert.Equal(t, provider.KindServerError, provider.KindOf(err))
	assert.True(t, stratumerr.HasCode(err, stratumerr.CodeProviderCallServerError))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "anthropic", stratumerr.FieldsOf(err)["provider"])

	assert.NoError(t, provider.Failure(nil, provider.KindTimeout, "anthropic"))
}

func TestKindOf_UnclassifiedErrors(t *testing.T) {
	assert.Equal(t, provider.KindUnknown, provider.KindOf(errors.New("plain")))
	assert.Equal(t, provider.KindUnknown,
		provider.KindOf(stratumerr.New(stratumerr.CodeBudgetExceeded, "nope")))
}

func TestKindFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   provider.Kind
	}{
		{http.StatusUnauthorized, provider.KindAuthFailure},
		{http.StatusForbidden, provider.KindAuthFailure},
		{http.StatusPaymentRequired, provider.KindQuotaExceeded},
		{http.StatusNotFound, provider.KindModelUnavailable},
		{http.StatusTooManyRequests, provider.KindRateLimit},
		{http.StatusRequestTimeout, provider.KindTimeout},
		{http.StatusGatewayTimeout, provider.KindTimeout},
		{http.StatusBadRequest, provider.KindInvalidRequest},
		{http.StatusInternalServerError, provider.KindServerError},
		{http.StatusBadGateway, provider.KindServerError},
		{0, provider.KindUnknown},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.kind, provider.KindFromHTTPStatus(tc.status), "status %d", tc.status)
	}
}

func TestClassifyHTTP_ContextErrorsAreTimeouts(t *testing.T) {
	err := provider.ClassifyHTTP(context.DeadlineExceeded, http.StatusInternalServerError, "openai")
	assert.Equal(t, provider.KindTimeout, provider.KindOf(err))

	err = provider.ClassifyHTTP(context.Canceled, 0, "openai")
	assert.Equal(t, provider.KindTimeout, provider.KindOf(err))
}

func TestKinds_CoversEveryClassifiedCode(t *testing.T) {
	for _, kind := range provider.Kinds() {
		code := provider.CodeFor(kind)
		assert.NotEqual(t, stratumerr.CodeProviderCallFailure, code, "kind %s must map to its own code", kind)
	}
}
