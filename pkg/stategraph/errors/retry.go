package errors

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig describes how often and how patiently a call is repeated.
// The zero value makes a single attempt.
type RetryConfig struct {
	MaxAttempts int // total attempts, first one included

	InitialBackoff time.Duration
	MaxBackoff     time.Duration // 0 means uncapped
	BackoffFactor  float64       // growth per retry; below 1 keeps the delay flat
	Jitter         float64       // fraction of the delay randomized either way

	// RetryableFunc replaces IsRetryable when set.
	RetryableFunc func(error) bool

	// OnRetry runs after a failed attempt, before the wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetry backs off from one second up to thirty over three attempts.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2,
	Jitter:         0.1,
}

// NoRetry runs the call once.
var NoRetry = RetryConfig{MaxAttempts: 1}

// Delay is the wait after the given failed attempt (1-based), before jitter.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if c.InitialBackoff <= 0 {
		return 0
	}
	factor := math.Max(c.BackoffFactor, 1)
	d := float64(c.InitialBackoff) * math.Pow(factor, float64(max(attempt-1, 0)))
	if c.MaxBackoff > 0 {
		d = math.Min(d, float64(c.MaxBackoff))
	}
	return time.Duration(d)
}

func (c RetryConfig) jittered(attempt int) time.Duration {
	d := c.Delay(attempt)
	if c.Jitter <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * c.Jitter
	return time.Duration(float64(d) + spread*(2*rand.Float64()-1))
}

func (c RetryConfig) attempts() int {
	return max(c.MaxAttempts, 1)
}

func (c RetryConfig) retryable(err error) bool {
	if c.RetryableFunc != nil {
		return c.RetryableFunc(err)
	}
	return IsRetryable(err)
}

// RetryResult is what Do reports back.
type RetryResult[T any] struct {
	Value    T
	Err      error // last error, or ctx.Err() when cancelled
	Attempts int
	Duration time.Duration
}

// Do calls fn until it succeeds, returns an error that is not retryable,
// runs out of attempts, or ctx ends. fn sees the 1-based attempt number.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context, attempt int) (T, error)) RetryResult[T] {
	start := time.Now()
	var res RetryResult[T]
	done := func(err error) RetryResult[T] {
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	for {
		if err := ctx.Err(); err != nil {
			return done(err)
		}

		res.Attempts++
		var err error
		res.Value, err = fn(ctx, res.Attempts)
		switch {
		case err == nil:
			return done(nil)
		case res.Attempts >= cfg.attempts() || !cfg.retryable(err):
			return done(err)
		}

		wait := cfg.jittered(res.Attempts)
		if cfg.OnRetry != nil {
			cfg.OnRetry(res.Attempts, wait, err)
		}
		if err := sleep(ctx, wait); err != nil {
			return done(err)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryOption adjusts a RetryConfig.
type RetryOption func(*RetryConfig)

// NewRetryConfig starts from DefaultRetry and applies opts.
func NewRetryConfig(opts ...RetryOption) RetryConfig {
	cfg := DefaultRetry
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func WithMaxAttempts(n int) RetryOption {
	return func(c *RetryConfig) { c.MaxAttempts = n }
}

func WithInitialBackoff(d time.Duration) RetryOption {
	return func(c *RetryConfig) { c.InitialBackoff = d }
}

func WithMaxBackoff(d time.Duration) RetryOption {
	return func(c *RetryConfig) { c.MaxBackoff = d }
}

func WithBackoffFactor(f float64) RetryOption {
	return func(c *RetryConfig) { c.BackoffFactor = f }
}

func WithJitter(j float64) RetryOption {
	return func(c *RetryConfig) { c.Jitter = j }
}

// WithRetryableFunc decides retryability instead of IsRetryable.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(c *RetryConfig) { c.RetryableFunc = fn }
}
