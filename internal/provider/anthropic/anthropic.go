// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package anthropic adapts the Anthropic Messages API to the provider
// interface.
package anthropic

import (
	"context"
	"errors"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Config holds Anthropic provider configuration.
type Config struct {
	APIKey  string
	BaseURL string // optional, useful for testing against a mock server
}

// pricing is USD per million tokens: prompt, completion.
var pricing = map[string][2]float64{
	"claude-opus-4-6":   {15.00, 75.00},
	"claude-sonnet-4-5": {3.00, 15.00},
	"claude-haiku-4-5":  {1.00, 5.00},
}

// Adapter implements provider.Adapter using the Anthropic Messages API.
type Adapter struct {
	client anthropicsdk.Client
}

// New creates an Anthropic adapter. The API key is required.
func New(cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, stratumerr.New(stratumerr.CodeConfigValidateInvalidValue,
			"anthropic: missing api_key in config",
			stratumerr.FieldProvider("anthropic"),
		)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Adapter{client: anthropicsdk.NewClient(opts...)}, nil
}

func (a *Adapter) Name() string { return "anthropic" }

// SupportsModel reports whether the model is a known Anthropic model.
func (a *Adapter) SupportsModel(model string) bool {
	_, ok := pricing[model]
	return ok || strings.HasPrefix(model, "claude-")
}

// Execute runs one completion request.
func (a *Adapter) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: maxTokens,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(float64(req.Temperature))
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return provider.Response{}, provider.ClassifyHTTP(err, statusOf(err), "anthropic")
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	usage := provider.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}

	return provider.Response{
		Provider: "anthropic",
		Model:    req.Model,
		Content:  content.String(),
		Usage:    usage,
		CostUSD:  costOf(req.Model, usage),
	}, nil
}

// HealthCheck reports whether the API answers at all, using a minimal
// request that an auth or availability problem would reject.
func (a *Adapter) HealthCheck(ctx context.Context) provider.Status {
	_, err := a.client.Models.List(ctx, anthropicsdk.ModelListParams{})
	if err != nil {
		return provider.Status{Available: false, Message: err.Error()}
	}
	return provider.Status{Available: true, Message: "ok"}
}

func statusOf(err error) int {
	var apiErr *anthropicsdk.Error
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
