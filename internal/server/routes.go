// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/stratum-ai/stratum/internal/breaker"
	"github.com/stratum-ai/stratum/internal/cost"
	"github.com/stratum-ai/stratum/internal/monitor"
	"github.com/stratum-ai/stratum/internal/provider"
	"github.com/stratum-ai/stratum/internal/router"
	"github.com/stratum-ai/stratum/pkg/health"
)

func (s *Server) registerRoutes() {
	// Routing
	huma.Register(s.api, huma.Operation{
		OperationID: "route-request",
		Method:      http.MethodPost,
		Path:        "/v1/route",
		Summary:     "Select the best provider for a request",
		Tags:        []string{"routing"},
	}, s.handleRoute)

	// Cost tracking
	huma.Register(s.api, huma.Operation{
		OperationID: "track-usage",
		Method:      http.MethodPost,
		Path:        "/v1/usage",
		Summary:     "Record token usage and cost for a completed request",
		Tags:        []string{"cost"},
	}, s.handleTrackUsage)

	huma.Register(s.api, huma.Operation{
		OperationID: "set-budget",
		Method:      http.MethodPut,
		Path:        "/v1/budgets",
		Summary:     "Create or replace a budget",
		Tags:        []string{"cost"},
	}, s.handleSetBudget)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-budgets",
		Method:      http.MethodGet,
		Path:        "/v1/budgets",
		Summary:     "List all budgets",
		Tags:        []string{"cost"},
	}, s.handleListBudgets)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-budget",
		Method:      http.MethodGet,
		Path:        "/v1/budgets/{key}",
		Summary:     "Get one budget's status",
		Tags:        []string{"cost"},
	}, s.handleGetBudget)

	huma.Register(s.api, huma.Operation{
		OperationID: "cost-analytics",
		Method:      http.MethodGet,
		Path:        "/v1/analytics",
		Summary:     "Cost analytics breakdown",
		Tags:        []string{"cost"},
	}, s.handleAnalytics)

	huma.Register(s.api, huma.Operation{
		OperationID: "cost-recommendations",
		Method:      http.MethodGet,
		Path:        "/v1/recommendations",
		Summary:     "Cost optimization recommendations",
		Tags:        []string{"cost"},
	}, s.handleRecommendations)

	// Health
	huma.Register(s.api, huma.Operation{
		OperationID: "providers-health",
		Method:      http.MethodGet,
		Path:        "/v1/providers/health",
		Summary:     "Per-provider health records",
		Tags:        []string{"health"},
	}, s.handleProvidersHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "system-health",
		Method:      http.MethodGet,
		Path:        "/v1/health",
		Summary:     "Aggregated system health",
		Tags:        []string{"health"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-alerts",
		Method:      http.MethodGet,
		Path:        "/v1/alerts",
		Summary:     "List health and budget alerts",
		Tags:        []string{"health"},
	}, s.handleAlerts)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolve-alert",
		Method:      http.MethodPost,
		Path:        "/v1/alerts/{id}/resolve",
		Summary:     "Resolve an alert",
		Tags:        []string{"health"},
	}, s.handleResolveAlert)

	// Breakers
	huma.Register(s.api, huma.Operation{
		OperationID: "reset-breakers",
		Method:      http.MethodPost,
		Path:        "/v1/breakers/reset",
		Summary:     "Reset circuit breakers to CLOSED",
		Tags:        []string{"breakers"},
	}, s.handleResetBreakers)
}

// --- Request/Response types for huma ---

type routeInput struct {
	Body struct {
		Model           string  `json:"model,omitempty" doc:"Required model"`
		CostBudget      float64 `json:"cost_budget,omitempty" doc:"Max acceptable cost in USD"`
		EstimatedTokens int     `json:"estimated_tokens,omitempty" doc:"Expected token volume"`
		Priority        string  `json:"priority,omitempty" enum:"low,normal,urgent" doc:"Request priority"`
	}
}
type routeOutput struct {
	Body struct {
		Provider string `json:"provider" doc:"Selected provider"`
	}
}

type trackUsageInput struct {
	Body struct {
		Provider         string  `json:"provider" minLength:"1" doc:"Provider name"`
		Model            string  `json:"model" doc:"Model used"`
		PromptTokens     int     `json:"prompt_tokens" doc:"Prompt tokens"`
		CompletionTokens int     `json:"completion_tokens" doc:"Completion tokens"`
		TotalTokens      int     `json:"total_tokens" doc:"Total tokens"`
		CostUSD          float64 `json:"cost_usd" doc:"Cost in USD"`
		RequestID        string  `json:"request_id,omitempty" doc:"Caller request ID"`
	}
}
type trackUsageOutput struct {
	Body cost.Entry
}

type setBudgetInput struct {
	Body struct {
		Provider       string  `json:"provider" minLength:"1" doc:"Provider name or \"all\""`
		Period         string  `json:"period" enum:"daily,weekly,monthly,quarterly,yearly" doc:"Budget period"`
		LimitUSD       float64 `json:"limit_usd" doc:"Spend limit in USD"`
		AlertThreshold float64 `json:"alert_threshold,omitempty" doc:"Alert at this used fraction"`
	}
}
type setBudgetOutput struct {
	Body struct {
		Key    string      `json:"key" doc:"Budget key (provider_period)"`
		Budget cost.Budget `json:"budget"`
	}
}

type listBudgetsOutput struct {
	Body struct {
		Budgets map[string]cost.Budget `json:"budgets"`
	}
}

type budgetKeyInput struct {
	Key string `path:"key"`
}
type getBudgetOutput struct {
	Body cost.Budget
}

type analyticsOutput struct {
	Body cost.Analytics
}

type recommendationsOutput struct {
	Body struct {
		Recommendations []cost.Recommendation `json:"recommendations"`
	}
}

type providersHealthOutput struct {
	Body struct {
		Providers map[string]provider.HealthRecord `json:"providers"`
		Breakers  breaker.Summary                  `json:"breakers"`
	}
}

type healthOutput struct {
	Body monitor.Report
}

type alertsInput struct {
	Active bool `query:"active" doc:"Only unresolved alerts"`
}
type alertsOutput struct {
	Body struct {
		Alerts []health.Alert `json:"alerts"`
	}
}

type resolveAlertInput struct {
	ID string `path:"id"`
}
type resolveAlertOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

type resetBreakersInput struct {
	Body struct {
		Provider string `json:"provider,omitempty" doc:"Reset one provider's breaker; empty resets all"`
	}
}
type resetBreakersOutput struct {
	Body breaker.Summary
}

// --- Handlers ---

func (s *Server) handleRoute(ctx context.Context, input *routeInput) (*routeOutput, error) {
	name, err := s.orch.Route(ctx, router.Requirements{
		Model:           input.Body.Model,
		CostBudget:      input.Body.CostBudget,
		EstimatedTokens: input.Body.EstimatedTokens,
		Priority:        router.Priority(input.Body.Priority),
	})
	if err != nil {
		return nil, apiError(err)
	}
	out := &routeOutput{}
	out.Body.Provider = name
	return out, nil
}

func (s *Server) handleTrackUsage(ctx context.Context, input *trackUsageInput) (*trackUsageOutput, error) {
	entry := s.orch.TrackUsage(ctx, input.Body.Provider, input.Body.Model,
		provider.Usage{
			PromptTokens:     input.Body.PromptTokens,
			CompletionTokens: input.Body.CompletionTokens,
			TotalTokens:      input.Body.TotalTokens,
		},
		input.Body.CostUSD, input.Body.RequestID,
	)
	return &trackUsageOutput{Body: entry}, nil
}

func (s *Server) handleSetBudget(_ context.Context, input *setBudgetInput) (*setBudgetOutput, error) {
	period, err := cost.ParsePeriod(input.Body.Period)
	if err != nil {
		return nil, apiError(err)
	}

	key, err := s.orch.SetBudget(input.Body.Provider, period, input.Body.LimitUSD, input.Body.AlertThreshold)
	if err != nil {
		return nil, apiError(err)
	}

	budget, err := s.orch.BudgetStatus(key)
	if err != nil {
		return nil, apiError(err)
	}

	out := &setBudgetOutput{}
	out.Body.Key = key
	out.Body.Budget = budget
	return out, nil
}

func (s *Server) handleListBudgets(_ context.Context, _ *struct{}) (*listBudgetsOutput, error) {
	out := &listBudgetsOutput{}
	out.Body.Budgets = s.orch.AllBudgets()
	return out, nil
}

func (s *Server) handleGetBudget(_ context.Context, input *budgetKeyInput) (*getBudgetOutput, error) {
	budget, err := s.orch.BudgetStatus(input.Key)
	if err != nil {
		return nil, apiError(err)
	}
	return &getBudgetOutput{Body: budget}, nil
}

func (s *Server) handleAnalytics(_ context.Context, _ *struct{}) (*analyticsOutput, error) {
	return &analyticsOutput{Body: s.orch.Analytics()}, nil
}

func (s *Server) handleRecommendations(_ context.Context, _ *struct{}) (*recommendationsOutput, error) {
	out := &recommendationsOutput{}
	out.Body.Recommendations = s.orch.Recommendations()
	return out, nil
}

func (s *Server) handleProvidersHealth(_ context.Context, _ *struct{}) (*providersHealthOutput, error) {
	out := &providersHealthOutput{}
	out.Body.Providers = s.orch.AllProviderHealth()
	out.Body.Breakers = s.orch.BreakerSummary()
	return out, nil
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*healthOutput, error) {
	return &healthOutput{Body: s.orch.HealthCheck()}, nil
}

func (s *Server) handleAlerts(_ context.Context, input *alertsInput) (*alertsOutput, error) {
	out := &alertsOutput{}
	out.Body.Alerts = s.orch.Alerts(input.Active)
	return out, nil
}

func (s *Server) handleResolveAlert(_ context.Context, input *resolveAlertInput) (*resolveAlertOutput, error) {
	if err := s.orch.ResolveAlert(input.ID); err != nil {
		return nil, apiError(err)
	}
	out := &resolveAlertOutput{}
	out.Body.Status = "resolved"
	return out, nil
}

func (s *Server) handleResetBreakers(_ context.Context, input *resetBreakersInput) (*resetBreakersOutput, error) {
	if input.Body.Provider != "" {
		s.orch.ResetBreaker(input.Body.Provider)
	} else {
		s.orch.ResetBreakers()
	}
	return &resetBreakersOutput{Body: s.orch.BreakerSummary()}, nil
}
