// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stratum Contributors

// Package breaker implements per-provider circuit breaking for AI service
// calls. A breaker trips OPEN on consecutive failures, a high failure
// rate, or a high slow-call rate, fast-fails while open, and probes
// recovery through a bounded HALF_OPEN trial window.
package breaker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/stratum-ai/stratum/internal/provider"
	stratumerr "github.com/stratum-ai/stratum/pkg/errors"
)

// State is the breaker's position in the CLOSED/OPEN/HALF_OPEN machine.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config tunes a breaker's trip and recovery behavior.
type Config struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker, and the minimum sample size for the rate checks.
	FailureThreshold int
	// RecoveryTimeout is how long after the last failure an open breaker
	// waits before admitting trial calls.
	RecoveryTimeout time.Duration
	// HalfOpenTestRequests caps the calls admitted while half-open.
	HalfOpenTestRequests int
	// HalfOpenSuccessThreshold is the consecutive successes needed to close.
	HalfOpenSuccessThreshold int
	// SlowCallThreshold classifies a call as slow. It is a post-hoc signal,
	// not an enforced deadline.
	SlowCallThreshold time.Duration
	// SlowCallRateThreshold is the slow-call ratio that trips the breaker.
	SlowCallRateThreshold float64
	// MaxFailureRate is the failure ratio that trips the breaker.
	MaxFailureRate float64
}

// DefaultConfig mirrors the production defaults.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:         5,
		RecoveryTimeout:          60 * time.Second,
		HalfOpenTestRequests:     3,
		HalfOpenSuccessThreshold: 2,
		SlowCallThreshold:        10 * time.Second,
		SlowCallRateThreshold:    0.6,
		MaxFailureRate:           0.5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
	if c.HalfOpenTestRequests <= 0 {
		c.HalfOpenTestRequests = d.HalfOpenTestRequests
	}
	if c.HalfOpenSuccessThreshold <= 0 {
		c.HalfOpenSuccessThreshold = d.HalfOpenSuccessThreshold
	}
	if c.SlowCallThreshold <= 0 {
		c.SlowCallThreshold = d.SlowCallThreshold
	}
	if c.SlowCallRateThreshold <= 0 {
		c.SlowCallRateThreshold = d.SlowCallRateThreshold
	}
	if c.MaxFailureRate <= 0 {
		c.MaxFailureRate = d.MaxFailureRate
	}
	return c
}

// responseTimeHistory is the ring capacity for recent call durations.
const responseTimeHistory = 100

// CircuitBreaker guards calls to a single provider endpoint. The mutex
// covers bookkeeping only; the wrapped call always runs outside it so
// concurrent callers serialize on counter updates, never on I/O.
type CircuitBreaker struct {
	key string
	cfg Config

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	failureCount        int
	slowCallCount       int
	totalCalls          int
	halfOpenTests       int
	halfOpenSuccesses   int
	lastFailure         time.Time
	responseTimes       durationRing
	failureKinds        map[provider.Kind]int64

	nowFunc func() time.Time
}

// Snapshot is a point-in-time copy of a breaker's state and counters.
type Snapshot struct {
	Key                 string           `json:"key"`
	State               State            `json:"state"`
	ConsecutiveFailures int              `json:"consecutive_failures"`
	FailureCount        int              `json:"failure_count"`
	SlowCallCount       int              `json:"slow_call_count"`
	TotalCalls          int              `json:"total_calls"`
	FailureRate         float64          `json:"failure_rate"`
	SlowCallRate        float64          `json:"slow_call_rate"`
	HalfOpenTests       int              `json:"half_open_tests"`
	HalfOpenSuccesses   int              `json:"half_open_successes"`
	LastFailure         time.Time        `json:"last_failure"`
	AvgResponseTime     time.Duration    `json:"avg_response_time"`
	FailureKinds        map[string]int64 `json:"failure_kinds"`
}

// New creates a closed breaker for the given provider key. Zero-valued
// config fields fall back to DefaultConfig.
func New(key string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		key:           key,
		cfg:           cfg.withDefaults(),
		state:         StateClosed,
		responseTimes: newDurationRing(responseTimeHistory),
		failureKinds:  make(map[provider.Kind]int64),
		nowFunc:       time.Now,
	}
}

// SetNowFunc overrides the time source (for testing).
func (cb *CircuitBreaker) SetNowFunc(fn func() time.Time) {
	cb.mu.Lock()
	cb.nowFunc = fn
	cb.mu.Unlock()
}

// Do executes fn under the breaker. While the breaker is open and the
// recovery timeout has not elapsed, it fails fast with a circuit.open
// error without invoking fn. fn's error is returned unchanged after the
// outcome is recorded.
func (cb *CircuitBreaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	start := cb.now()
	err := fn(ctx)
	elapsed := cb.now().Sub(start)

	if err != nil {
		cb.onFailure(elapsed, err)
		return err
	}
	cb.onSuccess(elapsed)
	return nil
}

// admit decides whether a call may proceed, applying the lazy
// OPEN → HALF_OPEN transition when the recovery timeout has elapsed.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.nowFunc().Sub(cb.lastFailure) < cb.cfg.RecoveryTimeout {
			return stratumerr.New(stratumerr.CodeCircuitOpen,
				"circuit breaker is open",
				stratumerr.FieldProvider(cb.key),
				stratumerr.Field("last_failure", cb.lastFailure),
			)
		}
		cb.state = StateHalfOpen
		cb.halfOpenTests = 0
		cb.halfOpenSuccesses = 0
		slog.Info("circuit breaker half-open", "provider", cb.key)
		fallthrough
	case StateHalfOpen:
		if cb.halfOpenTests >= cb.cfg.HalfOpenTestRequests {
			return stratumerr.New(stratumerr.CodeCircuitOpen,
				"circuit breaker half-open trial window exhausted",
				stratumerr.FieldProvider(cb.key),
			)
		}
		cb.halfOpenTests++
	}

	return nil
}

func (cb *CircuitBreaker) onSuccess(elapsed time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	cb.consecutiveFailures = 0
	cb.responseTimes.push(elapsed)
	if elapsed > cb.cfg.SlowCallThreshold {
		cb.slowCallCount++
	}

	if cb.state == StateHalfOpen {
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.cfg.HalfOpenSuccessThreshold {
			cb.resetLocked()
			slog.Info("circuit breaker closed", "provider", cb.key)
		}
		return
	}

	// In CLOSED state a success forgives one recorded failure.
	if cb.failureCount > 0 {
		cb.failureCount--
	}
}

func (cb *CircuitBreaker) onFailure(elapsed time.Duration, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	cb.failureCount++
	cb.consecutiveFailures++
	cb.lastFailure = cb.nowFunc()
	cb.responseTimes.push(elapsed)
	if elapsed > cb.cfg.SlowCallThreshold {
		cb.slowCallCount++
	}

	if kind := provider.KindOf(err); kind != provider.KindUnknown {
		cb.failureKinds[kind]++
	}

	switch cb.state {
	case StateHalfOpen:
		// A single trial failure reopens immediately.
		cb.state = StateOpen
		slog.Warn("circuit breaker reopened after half-open failure", "provider", cb.key)
	case StateClosed:
		if reason := cb.tripReasonLocked(); reason != "" {
			cb.state = StateOpen
			slog.Warn("circuit breaker opened", "provider", cb.key, "reason", reason)
		}
	}
}

// tripReasonLocked evaluates the CLOSED → OPEN conditions. The rate
// checks only engage once the sample reaches FailureThreshold calls.
func (cb *CircuitBreaker) tripReasonLocked() string {
	if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
		return "consecutive_failures"
	}
	if cb.totalCalls >= cb.cfg.FailureThreshold {
		if float64(cb.failureCount)/float64(cb.totalCalls) >= cb.cfg.MaxFailureRate {
			return "failure_rate"
		}
		if float64(cb.slowCallCount)/float64(cb.totalCalls) >= cb.cfg.SlowCallRateThreshold {
			return "slow_call_rate"
		}
	}
	return ""
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) IsOpen() bool     { return cb.State() == StateOpen }
func (cb *CircuitBreaker) IsHalfOpen() bool { return cb.State() == StateHalfOpen }
func (cb *CircuitBreaker) IsClosed() bool   { return cb.State() == StateClosed }

// Reset returns the breaker to CLOSED with all counters zeroed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.resetLocked()
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) resetLocked() {
	cb.state = StateClosed
	cb.consecutiveFailures = 0
	cb.failureCount = 0
	cb.slowCallCount = 0
	cb.totalCalls = 0
	cb.halfOpenTests = 0
	cb.halfOpenSuccesses = 0
	cb.responseTimes.clear()
	cb.failureKinds = make(map[provider.Kind]int64)
}

// ForceOpen trips the breaker manually. The recovery timeout starts now.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	cb.state = StateOpen
	cb.lastFailure = cb.nowFunc()
	cb.mu.Unlock()
	slog.Warn("circuit breaker forced open", "provider", cb.key)
}

// Snapshot copies the breaker's state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Snapshot{
		Key:                 cb.key,
		State:               cb.state,
		ConsecutiveFailures: cb.consecutiveFailures,
		FailureCount:        cb.failureCount,
		SlowCallCount:       cb.slowCallCount,
		TotalCalls:          cb.totalCalls,
		HalfOpenTests:       cb.halfOpenTests,
		HalfOpenSuccesses:   cb.halfOpenSuccesses,
		LastFailure:         cb.lastFailure,
		AvgResponseTime:     cb.responseTimes.average(),
		FailureKinds:        make(map[string]int64, len(cb.failureKinds)),
	}
	if cb.totalCalls > 0 {
		s.FailureRate = float64(cb.failureCount) / float64(cb.totalCalls)
		s.SlowCallRate = float64(cb.slowCallCount) / float64(cb.totalCalls)
	}
	for k, n := range cb.failureKinds {
		s.FailureKinds[string(k)] = n
	}
	return s
}

func (cb *CircuitBreaker) now() time.Time {
	cb.mu.Lock()
	fn := cb.nowFunc
	cb.mu.Unlock()
	return fn()
}

// durationRing is a fixed-capacity ring of recent call durations; once
// full, each push drops the oldest sample.
type durationRing struct {
	buf  []time.Duration
	next int
	full bool
}

func newDurationRing(capacity int) durationRing {
	return durationRing{buf: make([]time.Duration, capacity)}
}

func (r *durationRing) push(d time.Duration) {
	r.buf[r.next] = d
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *durationRing) len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

func (r *durationRing) average() time.Duration {
	n := r.len()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < n; i++ {
		sum += r.buf[i]
	}
	return sum / time.Duration(n)
}

func (r *durationRing) clear() {
	r.next = 0
	r.full = false
}
