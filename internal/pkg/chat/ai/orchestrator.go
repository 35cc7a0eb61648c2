package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ITA-Loopin/loopin-be-performance-test-sub000/internal/metrics"
)

// Orchestrator drives providers with the failure policy: bounded retry with
// exponential backoff against the primary, then failover to the secondary,
// then a terminal error. It never retries indefinitely.
type Orchestrator struct {
	primary     Provider
	secondary   Provider // may be nil
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

// NewOrchestrator builds the failover chain. secondary may be nil.
func NewOrchestrator(primary, secondary Provider, maxAttempts int, backoff time.Duration, log zerolog.Logger) *Orchestrator {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &Orchestrator{
		primary:     primary,
		secondary:   secondary,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		log:         log.With().Str("component", "ai").Logger(),
	}
}

// Generate returns a recommendation or, once every provider's budget is spent,
// an error wrapping ErrProvidersExhausted.
func (o *Orchestrator) Generate(ctx context.Context, req Request) (Recommendation, error) {
	rec, primaryErr := o.attempt(ctx, o.primary, req)
	if primaryErr == nil {
		return rec, nil
	}
	if ctx.Err() != nil {
		// Cancellation is not exhaustion; the caller retries the whole call.
		return Recommendation{}, ctx.Err()
	}

	if o.secondary == nil {
		return Recommendation{}, fmt.Errorf("%w: %v", ErrProvidersExhausted, primaryErr)
	}

	metrics.ProviderFailovers.Inc()
	o.log.Warn().Err(primaryErr).Str("provider", o.primary.Name()).Msg("failing over to secondary provider")

	rec, secondaryErr := o.attempt(ctx, o.secondary, req)
	if secondaryErr == nil {
		return rec, nil
	}
	if ctx.Err() != nil {
		return Recommendation{}, ctx.Err()
	}
	return Recommendation{}, fmt.Errorf("%w: primary: %v; secondary: %v", ErrProvidersExhausted, primaryErr, secondaryErr)
}

func (o *Orchestrator) attempt(ctx context.Context, p Provider, req Request) (Recommendation, error) {
	delay := o.backoff
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		rec, err := p.Complete(ctx, req)
		if err == nil {
			metrics.ProviderAttempts.WithLabelValues(p.Name(), "ok").Inc()
			return rec, nil
		}
		metrics.ProviderAttempts.WithLabelValues(p.Name(), "error").Inc()
		lastErr = err
		o.log.Warn().Err(err).Str("provider", p.Name()).Int("attempt", attempt).Msg("model call failed")

		if attempt == o.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Recommendation{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return Recommendation{}, lastErr
}
