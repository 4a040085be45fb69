// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

package main

import (
	"context"
	"log/slog"
	"sort"

	"github.com/stratum-ai/stratum/internal/breaker"
	"github.com/stratum-ai/stratum/internal/config"
	"github.com/stratum-ai/stratum/internal/cost"
	"github.com/stratum-ai/stratum/internal/monitor"
	"github.com/stratum-ai/stratum/internal/notify"
	"github.com/stratum-ai/stratum/internal/orchestrator"
	"github.com/stratum-ai/stratum/internal/provider"
	anthropicprov "github.com/stratum-ai/stratum/internal/provider/anthropic"
	googleprov "github.com/stratum-ai/stratum/internal/provider/google"
	openaiprov "github.com/stratum-ai/stratum/internal/provider/openai"
	openrouterprov "github.com/stratum-ai/stratum/internal/provider/openrouter"
	"github.com/stratum-ai/stratum/internal/router"
	"github.com/stratum-ai/stratum/internal/server"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Stack holds all wired subsystems and manages their lifecycle.
type Stack struct {
	Orchestrator *orchestrator.Orchestrator
	Monitor      *monitor.Monitor
	Server       *server.Server
}

// WireStack creates all subsystems and wires them together.
func WireStack(ctx context.Context, cfg *config.Config) (*Stack, error) {
	sink := buildSink(cfg)

	registry := breaker.NewRegistry(breakerConfig(cfg.Breaker))
	tracker := cost.NewTracker(cost.Config{}, sink)
	mon := monitor.New(monitor.Config{Interval: cfg.Monitor.Interval}, sink)

	var opts []router.Option
	if len(cfg.Router.CostEffectiveProviders) > 0 {
		opts = append(opts, router.WithCostEffectiveProviders(cfg.Router.CostEffectiveProviders...))
	}
	orch := orchestrator.New(registry, tracker, mon, opts...)

	if err := registerProviders(ctx, cfg, orch); err != nil {
		return nil, err
	}

	for i, b := range cfg.Budgets {
		period, err := cost.ParsePeriod(b.Period)
		if err != nil {
			return nil, stratumerr.Wrapf(err, stratumerr.CodeCLISetupFailure,
				"installing budget %d", i)
		}
		if _, err := tracker.SetBudget(b.Provider, period, b.LimitUSD, b.AlertThreshold); err != nil {
			return nil, stratumerr.Wrapf(err, stratumerr.CodeCLISetupFailure,
				"installing budget %d", i)
		}
	}

	// The breaker fleet and budget utilization feed the health loop.
	mon.Register(registry)
	mon.Register(tracker)

	srv, err := server.New(server.Config{
		ListenAddr:      cfg.Server.Listen,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, orch)
	if err != nil {
		return nil, stratumerr.Wrapf(err, stratumerr.CodeCLISetupFailure, "creating server")
	}

	return &Stack{
		Orchestrator: orch,
		Monitor:      mon,
		Server:       srv,
	}, nil
}

// registerProviders builds an adapter for every configured provider, in
// name order so startup logs are stable.
func registerProviders(ctx context.Context, cfg *config.Config, orch *orchestrator.Orchestrator) error {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := cfg.Providers[name]

		var (
			adapter provider.Adapter
			err     error
		)
		switch name {
		case "anthropic":
			adapter, err = anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		case "openai":
			adapter, err = openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		case "google":
			adapter, err = googleprov.New(ctx, googleprov.Config{APIKey: pc.APIKey})
		case "openrouter":
			adapter, err = openrouterprov.New(openrouterprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
		default:
			return stratumerr.Errorf(stratumerr.CodeCLISetupFailure,
				"unknown provider %q in config", name)
		}
		if err != nil {
			return stratumerr.Wrapf(err, stratumerr.CodeCLISetupFailure,
				"configuring provider %q", name)
		}

		orch.RegisterProvider(adapter)
	}

	if len(names) == 0 {
		slog.Warn("no providers configured, routing will fail until one is added")
	}
	return nil
}

func buildSink(cfg *config.Config) notify.Sink {
	if len(cfg.Notify.Webhooks) == 0 {
		return notify.LogSink{}
	}
	return notify.Multi{
		notify.LogSink{},
		notify.NewWebhookSink(cfg.Notify.Webhooks, nil),
	}
}

func breakerConfig(bc config.BreakerConfig) breaker.Config {
	return breaker.Config{
		FailureThreshold:         bc.FailureThreshold,
		RecoveryTimeout:          bc.RecoveryTimeout,
		HalfOpenTestRequests:     bc.HalfOpenTestRequests,
		HalfOpenSuccessThreshold: bc.HalfOpenSuccessNeeded,
		SlowCallThreshold:        bc.SlowCallThreshold,
		SlowCallRateThreshold:    bc.SlowCallRateThreshold,
		MaxFailureRate:           bc.MaxFailureRate,
	}
}
