// Package authorization drives the external consent step of a booking flow
// and detects its completion by polling the agent's state endpoint.
package authorization

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Defaults matching the agent's consent window.
const (
	DefaultInterval      = 5 * time.Second
	DefaultMaxAttempts   = 12
	DefaultExpectedState = "BOOKING_AUTHORIZED"
)

// Outcome is the terminal (or current) state of an authorization wait.
type Outcome string

const (
	OutcomePending       Outcome = "pending"
	OutcomeAuthorized    Outcome = "authorized"
	OutcomeTimedOut      Outcome = "timed_out"
	OutcomeCancelled     Outcome = "cancelled"
	OutcomeTriggerFailed Outcome = "trigger_failed"
)

// IsTerminal reports whether the outcome ends the wait.
func (o Outcome) IsTerminal() bool {
	return o != OutcomePending
}

// StatusFetcher reads the agent state tags of a thread.
type StatusFetcher interface {
	FetchStates(ctx context.Context, threadID string) ([]string, error)
}

// Result summarizes a finished wait.
type Result struct {
	Outcome  Outcome
	Attempts int
}

// Config holds the configuration for a Poller.
type Config struct {
	Fetcher     StatusFetcher
	Trigger     Trigger
	Interval    time.Duration
	MaxAttempts int
	Logger      *zerolog.Logger
}

// Poller waits for a thread to report an expected state tag.
type Poller struct {
	fetcher     StatusFetcher
	trigger     Trigger
	interval    time.Duration
	maxAttempts int
	logger      zerolog.Logger
}

// NewPoller creates a new Poller.
func NewPoller(cfg *Config) (*Poller, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("status fetcher is required")
	}

	trigger := cfg.Trigger
	if trigger == nil {
		trigger = BrowserTrigger{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Poller{
		fetcher:     cfg.Fetcher,
		trigger:     trigger,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

// Await triggers the authorization step once and then polls the thread's
// state every interval, at most maxAttempts times. onAuthorized runs exactly
// once, and only when expectedState shows up. Failed polls are logged and
// retried. Await returns when the state matched, the attempts ran out, the
// trigger failed or ctx was cancelled; no poll is issued after it returns.
func (p *Poller) Await(ctx context.Context, threadID, authorizationURL, expectedState string, onAuthorized func()) Result {
	return p.await(ctx, threadID, authorizationURL, expectedState, onAuthorized, nil)
}

func (p *Poller) await(ctx context.Context, threadID, authorizationURL, expectedState string, onAuthorized func(), progress func(int)) Result {
	logger := p.logger.With().
		Str("thread_id", threadID).
		Str("expected_state", expectedState).
		Logger()

	if err := p.trigger.Trigger(ctx, authorizationURL); err != nil {
		logger.Error().Err(err).Msg("failed to trigger authorization")
		return Result{Outcome: OutcomeTriggerFailed}
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info().Int("attempts", attempts).Msg("authorization wait cancelled")
			return Result{Outcome: OutcomeCancelled, Attempts: attempts}
		case <-ticker.C:
		}

		attempts++
		if progress != nil {
			progress(attempts)
		}

		matched, err := p.poll(ctx, threadID, expectedState)
		switch {
		case err != nil && ctx.Err() != nil:
			return Result{Outcome: OutcomeCancelled, Attempts: attempts}
		case err != nil:
			logger.Warn().Err(err).Int("attempt", attempts).Msg("authorization status check failed")
		case matched:
			logger.Info().Int("attempts", attempts).Msg("authorization confirmed")
			if onAuthorized != nil {
				onAuthorized()
			}
			return Result{Outcome: OutcomeAuthorized, Attempts: attempts}
		}

		if attempts >= p.maxAttempts {
			logger.Warn().Int("attempts", attempts).Msg("authorization check timed out")
			return Result{Outcome: OutcomeTimedOut, Attempts: attempts}
		}
	}
}

// poll issues one status request, bounded by the poll interval.
func (p *Poller) poll(ctx context.Context, threadID, expectedState string) (bool, error) {
	pollCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	states, err := p.fetcher.FetchStates(pollCtx, threadID)
	if err != nil {
		return false, err
	}
	for _, state := range states {
		if state == expectedState {
			return true, nil
		}
	}
	return false, nil
}
