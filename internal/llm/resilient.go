package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// Policy tunes the guards placed around a provider. A zero field turns its
// guard off.
type Policy struct {
	// RatePerSecond admits this many requests per second with a burst of
	// three times the rate. Refused requests fail with ErrRateLimited.
	RatePerSecond int

	// MaxConcurrent caps completions running at once; twice as many wait.
	MaxConcurrent int

	// RetryAttempts is the total number of tries for 429 and 5xx replies.
	RetryAttempts int
	RetryDelay    time.Duration

	// FailureThreshold consecutive failures open the breaker for OpenFor.
	FailureThreshold int
	OpenFor          time.Duration

	Logger *slog.Logger
}

// DefaultPolicy suits a single learner: a hint or chat turn every few
// seconds, with a tolerant retry for overloaded APIs.
func DefaultPolicy() Policy {
	return Policy{
		RatePerSecond:    2,
		MaxConcurrent:    4,
		RetryAttempts:    3,
		RetryDelay:       2 * time.Second,
		FailureThreshold: 3,
		OpenFor:          time.Minute,
	}
}

type call func(ctx context.Context) (*Response, error)

// ResilientProvider guards a provider's completions with a rate limit,
// circuit breaker, retries and a bulkhead. Streams pass the rate limit
// only.
type ResilientProvider struct {
	provider Provider
	limiter  ratelimit.RateLimiter
	stages   []func(call) call
	logger   *slog.Logger
}

// NewResilientProvider wraps provider according to policy.
func NewResilientProvider(provider Provider, policy Policy) *ResilientProvider {
	logger := policy.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rp := &ResilientProvider{provider: provider, logger: logger}

	if policy.RatePerSecond > 0 {
		rp.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     policy.RatePerSecond,
			Burst:    policy.RatePerSecond * 3,
			Interval: time.Second,
		})
	}

	// Outermost first: the breaker sees one outcome per retried call.
	if policy.FailureThreshold > 0 {
		threshold := policy.FailureThreshold
		openFor := policy.OpenFor
		if openFor <= 0 {
			openFor = time.Minute
		}
		breaker := circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    10 * time.Second,
			Timeout:     openFor,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= threshold
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				logger.Warn("provider circuit changed", "provider", provider.Name(), "from", from.String(), "to", to.String())
			},
		})
		rp.stages = append(rp.stages, func(next call) call {
			return func(ctx context.Context) (*Response, error) {
				return breaker.Execute(ctx, next)
			}
		})
	}

	if policy.RetryAttempts > 1 {
		delay := policy.RetryDelay
		if delay <= 0 {
			delay = time.Second
		}
		retrier := retry.New[*Response](retry.Config{
			MaxAttempts:   policy.RetryAttempts,
			InitialDelay:  delay,
			MaxDelay:      30 * delay,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   retryable,
		})
		rp.stages = append(rp.stages, func(next call) call {
			return func(ctx context.Context) (*Response, error) {
				return retrier.Do(ctx, next)
			}
		})
	}

	if policy.MaxConcurrent > 0 {
		slots := bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: policy.MaxConcurrent,
			MaxQueue:      policy.MaxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
		rp.stages = append(rp.stages, func(next call) call {
			return func(ctx context.Context) (*Response, error) {
				return slots.Execute(ctx, next)
			}
		})
	}

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) SupportsStreaming() bool {
	return p.provider.SupportsStreaming()
}

func (p *ResilientProvider) admit(ctx context.Context) error {
	if p.limiter != nil && !p.limiter.Allow(ctx, p.provider.Name()) {
		p.logger.Debug("provider request refused by local rate limit", "provider", p.provider.Name())
		return fmt.Errorf("%w for provider %s", ErrRateLimited, p.provider.Name())
	}
	return nil
}

func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := p.admit(ctx); err != nil {
		return nil, err
	}
	fn := call(func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	})
	for i := len(p.stages) - 1; i >= 0; i-- {
		fn = p.stages[i](fn)
	}
	return fn(ctx)
}

// GenerateStream is rate limited but neither retried nor queued: content
// already forwarded cannot be replayed.
func (p *ResilientProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	if err := p.admit(ctx); err != nil {
		return nil, err
	}
	return p.provider.GenerateStream(ctx, req)
}

// Close releases the rate limiter and the wrapped provider.
func (p *ResilientProvider) Close() error {
	var errs []error
	if p.limiter != nil {
		errs = append(errs, p.limiter.Close())
	}
	if c, ok := p.provider.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// retryable reports whether a provider reply is worth another attempt.
func retryable(err error) bool {
	switch StatusCode(err) {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
