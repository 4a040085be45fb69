// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package google_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/internal/provider/google"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := google.New(context.Background(), google.Config{})
	assert.Error(t, err)
}

func TestSupportsModel(t *testing.T) {
	a, err := google.New(context.Background(), google.Config{APIKey: "test-key"})
	require.NoError(t, err)

	assert.True(t, a.SupportsModel("gemini-2.5-pro"))
	assert.True(t, a.SupportsModel("gemini-3-preview"))
	assert.False(t, a.SupportsModel("claude-sonnet-4-5"))
}
