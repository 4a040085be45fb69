// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package openai adapts the OpenAI Chat Completions API to the provider
// interface.
package openai

import (
	"context"
	"errors"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Config holds OpenAI provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// pricing is USD per million tokens: prompt, completion.
var pricing = map[string][2]float64{
	"gpt-4.1":      {2.00, 8.00},
	"gpt-4.1-mini": {0.40, 1.60},
	"gpt-4o":       {2.50, 10.00},
	"gpt-4o-mini":  {0.15, 0.60},
}

// Adapter implements provider.Adapter using the OpenAI API.
type Adapter struct {
	client openaisdk.Client
}

// New creates an OpenAI adapter. The API key is required.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, stratumerr.New(stratumerr.CodeConfigValidateInvalidValue,
			"openai: missing api_key in config",
			stratumerr.FieldProvider("openai"),
		)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Adapter{client: openaisdk.NewClient(opts...)}, nil
}

func (a *Adapter) Name() string { return "openai" }

// SupportsModel reports whether the model is a known OpenAI model.
func (a *Adapter) SupportsModel(model string) bool {
	_, ok := pricing[model]
	return ok || strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o")
}

// Execute runs one completion request.
func (a *Adapter) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage(req.Prompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = param.NewOpt(float64(req.Temperature))
	}

	completion, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Response{}, provider.ClassifyHTTP(err, statusOf(err), "openai")
	}

	var content string
	if len(completion.Choices) > 0 {
		content = completion.Choices[0].Message.Content
	}

	usage := provider.Usage{
		PromptTokens:     int(completion.Usage.PromptTokens),
		CompletionTokens: int(completion.Usage.CompletionTokens),
		TotalTokens:      int(completion.Usage.TotalTokens),
	}

	return provider.Response{
		Provider: "openai",
		Model:    req.Model,
		Content:  content,
		Usage:    usage,
		CostUSD:  costOf(req.Model, usage),
	}, nil
}

// HealthCheck probes the models endpoint.
func (a *Adapter) HealthCheck(ctx context.Context) provider.Status {
	_, err := a.client.Models.List(ctx)
	if err != nil {
		return provider.Status{Available: false, Message: err.Error()}
	}
	return provider.Status{Available: true, Message: "ok"}
}

func statusOf(err error) int {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func costOf(model string, usage provider.Usage) float64 {
	price, ok := pricing[model]
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)*price[0]/1e6 +
		float64(usage.CompletionTokens)*price[1]/1e6
}
