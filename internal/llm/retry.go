package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const maxBackoff = 2 * time.Minute

// RetryingProvider retries rate-limited and 5xx completions with
// exponential backoff. Other failures are returned immediately.
type RetryingProvider struct {
	provider   Provider
	maxRetries int
	backoff    time.Duration
}

// NewRetryingProvider wraps provider so that a retryable failure is attempted
// at most maxRetries more times, waiting backoff (doubling) in between.
func NewRetryingProvider(provider Provider, maxRetries int, backoff time.Duration) Provider {
	if maxRetries <= 0 {
		return provider
	}
	return &RetryingProvider{
		provider:   provider,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (r *RetryingProvider) Name() string {
	return r.provider.Name()
}

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	attempt := 0
	op := func() (*CompletionResponse, error) {
		attempt++
		resp, err := r.provider.Complete(ctx, req)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return resp, err
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("llm completion failed, retrying",
			"provider", r.provider.Name(),
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
	}
	return backoff.RetryNotifyWithData(op, r.policy(ctx), notify)
}

// policy doubles the wait from r.backoff up to maxBackoff, without jitter,
// for at most r.maxRetries retries.
func (r *RetryingProvider) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.backoff
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = maxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.maxRetries)), ctx)
}
