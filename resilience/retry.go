package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffStrategy defines how delays increase between retries.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear increases delay linearly.
	BackoffLinear
	// BackoffConstant uses the same delay for all retries.
	BackoffConstant
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	// Default: 1s
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the factor for exponential backoff.
	// Default: 2.0
	Multiplier float64

	// Strategy is the backoff strategy.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% random delay.
	Jitter bool

	// RetryIf decides whether to retry after failureCount failures.
	// Default: IsTransient(err).
	RetryIf func(failureCount int, err error) bool

	// OnRetry is called before sleeping ahead of each retry.
	OnRetry func(failureCount int, err error, delay time.Duration)
}

// Retry re-runs failed operations with backoff.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry handler. Zero fields take their defaults.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(_ int, err error) bool { return IsTransient(err) }
	}
	return &Retry{config: config}
}

// NoRetry returns a Retry that runs the operation exactly once.
func NoRetry() *Retry {
	return NewRetry(RetryConfig{MaxAttempts: 1})
}

// Execute runs op until it succeeds, RetryIf declines, attempts run out or
// ctx ends. The last operation error is returned as is.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var failures int
	for {
		err := op(ctx)
		if err == nil {
			return nil
		}
		failures++

		if failures >= r.config.MaxAttempts || !r.config.RetryIf(failures, err) {
			return err
		}

		delay := r.Delay(failures)
		if r.config.OnRetry != nil {
			r.config.OnRetry(failures, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Delay returns the wait before the retry that follows failureCount failures.
func (r *Retry) Delay(failureCount int) time.Duration {
	if failureCount < 1 {
		failureCount = 1
	}

	var delay time.Duration
	switch r.config.Strategy {
	case BackoffConstant:
		delay = r.config.InitialDelay
	case BackoffLinear:
		delay = r.config.InitialDelay * time.Duration(failureCount)
	default:
		factor := math.Pow(r.config.Multiplier, float64(failureCount-1))
		delay = time.Duration(float64(r.config.InitialDelay) * factor)
	}

	if delay > r.config.MaxDelay || delay < 0 {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
