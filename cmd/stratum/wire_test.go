// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratum-ai/stratum/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Listen:          "127.0.0.1:0",
			ShutdownTimeout: time.Second,
		},
		Monitor: config.MonitorConfig{Interval: time.Minute},
	}
}

func TestWireStack(t *testing.T) {
	cfg := testConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"anthropic":  {APIKey: "test-key-anthropic"},
		"openai":     {APIKey: "test-key-openai"},
		"openrouter": {APIKey: "test-key-openrouter"},
	}

	stack, err := WireStack(context.Background(), cfg)
	require.NoError(t, err)

	assert.NotNil(t, stack.Orchestrator)
	assert.NotNil(t, stack.Monitor)
	assert.NotNil(t, stack.Server)

	summary := stack.Orchestrator.BreakerSummary()
	assert.Equal(t, 3, summary.Total, "every provider gets a breaker")
	assert.Equal(t, []string{"anthropic", "openai", "openrouter"}, summary.Keys)
}

func TestWireStack_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Providers = map[string]config.ProviderConfig{
		"unknown-provider": {APIKey: "some-key"},
	}

	_, err := WireStack(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown-provider")
}

func TestWireStack_InstallsBudgets(t *testing.T) {
	cfg := testConfig()
	cfg.Budgets = []config.BudgetConfig{
		{Provider: "anthropic", Period: "monthly", LimitUSD: 100, AlertThreshold: 0.8},
		{Provider: "all", Period: "daily", LimitUSD: 25, AlertThreshold: 0.9},
	}

	stack, err := WireStack(context.Background(), cfg)
	require.NoError(t, err)

	budgets := stack.Orchestrator.AllBudgets()
	assert.Len(t, budgets, 2)
	assert.Contains(t, budgets, "anthropic_monthly")
	assert.Contains(t, budgets, "all_daily")
}

func TestWireStack_RejectsBadBudgetPeriod(t *testing.T) {
	cfg := testConfig()
	cfg.Budgets = []config.BudgetConfig{
		{Provider: "anthropic", Period: "fortnightly", LimitUSD: 100},
	}

	_, err := WireStack(context.Background(), cfg)
	assert.Error(t, err)
}

func TestStack_GracefulShutdown(t *testing.T) {
	stack, err := WireStack(context.Background(), testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	stack.Monitor.Start(ctx)
	defer stack.Monitor.Stop()

	err = stack.Server.Start(ctx)
	assert.NoError(t, err)
}
