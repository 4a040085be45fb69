// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package config loads and validates the Stratum configuration from a
// file, environment variables (prefix STRATUM_), and defaults, in that
// descending precedence.
package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// Config is the top-level Stratum configuration.
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Breaker   BreakerConfig             `mapstructure:"breaker"`
	Budgets   []BudgetConfig            `mapstructure:"budgets"`
	Monitor   MonitorConfig             `mapstructure:"monitor"`
	Notify    NotifyConfig              `mapstructure:"notify"`
	Router    RouterConfig              `mapstructure:"router"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ProviderConfig holds credentials and endpoint for one AI provider.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// BreakerConfig tunes the per-provider circuit breakers.
type BreakerConfig struct {
	FailureThreshold      int           `mapstructure:"failure_threshold"`
	RecoveryTimeout       time.Duration `mapstructure:"recovery_timeout"`
	HalfOpenTestRequests  int           `mapstructure:"half_open_test_requests"`
	HalfOpenSuccessNeeded int           `mapstructure:"half_open_success_needed"`
	SlowCallThreshold     time.Duration `mapstructure:"slow_call_threshold"`
	SlowCallRateThreshold float64       `mapstructure:"slow_call_rate_threshold"`
	MaxFailureRate        float64       `mapstructure:"max_failure_rate"`
}

// BudgetConfig declares one budget to install at startup.
type BudgetConfig struct {
	Provider       string  `mapstructure:"provider"`
	Period         string  `mapstructure:"period"`
	LimitUSD       float64 `mapstructure:"limit_usd"`
	AlertThreshold float64 `mapstructure:"alert_threshold"`
}

// MonitorConfig tunes the background health monitor.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// NotifyConfig routes alerts to external webhooks.
type NotifyConfig struct {
	Webhooks []string `mapstructure:"webhooks"`
}

// RouterConfig tunes provider selection.
type RouterConfig struct {
	CostEffectiveProviders []string `mapstructure:"cost_effective_providers"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8385")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.recovery_timeout", "60s")
	v.SetDefault("breaker.half_open_test_requests", 3)
	v.SetDefault("breaker.half_open_success_needed", 2)
	v.SetDefault("breaker.slow_call_threshold", "10s")
	v.SetDefault("breaker.slow_call_rate_threshold", 0.6)
	v.SetDefault("breaker.max_failure_rate", 0.5)
	v.SetDefault("monitor.interval", "60s")
	v.SetDefault("router.cost_effective_providers", []string{"openrouter"})

	// Environment
	v.SetEnvPrefix("STRATUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, stratumerr.Errorf(stratumerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns all
// validation errors found rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateBreaker()...)
	errs = append(errs, c.validateBudgets()...)
	errs = append(errs, c.validateMonitor()...)
	errs = append(errs, c.validateNotify()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q", portStr))
	} else if port < 1 || port > 65535 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d", port))
	}

	return errs
}

func (c *Config) validateBreaker() []error {
	var errs []error
	b := c.Breaker

	if b.FailureThreshold <= 0 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.failure_threshold must be greater than 0, got %d", b.FailureThreshold))
	}
	if b.RecoveryTimeout <= 0 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.recovery_timeout must be greater than 0, got %s", b.RecoveryTimeout))
	}
	if b.HalfOpenTestRequests <= 0 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.half_open_test_requests must be greater than 0, got %d", b.HalfOpenTestRequests))
	}
	if b.HalfOpenSuccessNeeded <= 0 || b.HalfOpenSuccessNeeded > b.HalfOpenTestRequests {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.half_open_success_needed must be in [1, half_open_test_requests], got %d",
			b.HalfOpenSuccessNeeded,
		))
	}
	if b.SlowCallRateThreshold <= 0 || b.SlowCallRateThreshold > 1 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.slow_call_rate_threshold must be in (0, 1], got %g", b.SlowCallRateThreshold))
	}
	if b.MaxFailureRate <= 0 || b.MaxFailureRate > 1 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: breaker.max_failure_rate must be in (0, 1], got %g", b.MaxFailureRate))
	}

	return errs
}

func (c *Config) validateBudgets() []error {
	var errs []error

	validPeriods := map[string]bool{
		"daily": true, "weekly": true, "monthly": true, "quarterly": true, "yearly": true,
	}
	for i, b := range c.Budgets {
		if b.Provider == "" {
			errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
				"config: budgets[%d].provider must not be empty", i))
		}
		if !validPeriods[b.Period] {
			errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
				"config: budgets[%d].period must be one of [daily, weekly, monthly, quarterly, yearly], got %q",
				i, b.Period,
			))
		}
		if b.LimitUSD <= 0 {
			errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
				"config: budgets[%d].limit_usd must be greater than 0, got %g", i, b.LimitUSD))
		}
		if b.AlertThreshold < 0 || b.AlertThreshold > 1 {
			errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
				"config: budgets[%d].alert_threshold must be in [0, 1], got %g", i, b.AlertThreshold))
		}
	}

	return errs
}

func (c *Config) validateMonitor() []error {
	var errs []error

	if c.Monitor.Interval <= 0 {
		errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
			"config: monitor.interval must be greater than 0, got %s", c.Monitor.Interval))
	}

	return errs
}

func (c *Config) validateNotify() []error {
	var errs []error

	for i, raw := range c.Notify.Webhooks {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, stratumerr.Errorf(stratumerr.CodeConfigValidateInvalidValue,
				"config: notify.webhooks[%d] must be an absolute URL, got %q", i, raw))
		}
	}

	return errs
}
