// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package google adapts the Google Gemini API to the provider
// interface.
package google

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Config holds Google provider configuration.
type Config struct {
	APIKey string
}

// pricing is USD per million tokens: prompt, completion.
var pricing = map[string][2]float64{
	"gemini-2.5-pro":   {1.25, 10.00},
	"gemini-2.5-flash": {0.30, 2.50},
}

// Adapter implements provider.Adapter using the Google Gemini API.
type Adapter struct {
	client *genai.Client
}

// New creates a Google adapter. The API key is required.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if cfg.APIKey == "" {
		return nil, stratumerr.New(stratumerr.CodeConfigValidateInvalidValue,
			"google: missing api_key in config",
			stratumerr.FieldProvider("google"),
		)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, stratumerr.Wrapf(err, stratumerr.CodeConfigValidateInvalidValue,
			"google: creating client")
	}

	return &Adapter{client: client}, nil
}

func (a *Adapter) Name() string { return "google" }

// SupportsModel reports whether the model is a known Gemini model.
func (a *Adapter) SupportsModel(model string) bool {
	_, ok := pricing[model]
	return ok || strings.HasPrefix(model, "gemini-")
}

// Execute runs one completion request.
func (a *Adapter) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(req.Temperature)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: req.Prompt}}},
	}

	result, err := a.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return provider.Response{}, provider.ClassifyHTTP(err, statusOf(err), "google")
	}

	usage := provider.Usage{}
	if result.UsageMetadata != nil {
		usage.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}

	return provider.Response{
		Provider: "google",
		Model:    req.Model,
		Content:  result.Text(),
		Usage:    usage,
		CostUSD:  costOf(req.Model, usage),
	}, nil
}

// HealthCheck runs a token count, the cheapest call that exercises auth
// and model availability.
func (a *Adapter) HealthCheck(ctx context.Context) provider.Status {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: "ping"}}},
	}
	_, err := a.client.Models.CountTokens(ctx, "gemini-2.5-flash", contents, nil)
	if err != nil {
		return provider.Status{Available: false, Message: err.Error()}
	}
	return provider.Status{Available: true, Message: "ok"}
}

func statusOf(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
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
