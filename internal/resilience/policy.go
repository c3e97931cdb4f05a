// Package resilience retries remote lookups that fail for transient reasons.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy describes how often and how patiently a call is retried.
type Policy struct {
	// Attempts is the total number of tries. 1 disables retries.
	Attempts int
	// Base is the delay before the first retry.
	Base time.Duration
	// Cap bounds any single delay.
	Cap time.Duration
	// Factor grows the delay after each retry.
	Factor float64
	// Jitter spreads each delay by +/- this fraction.
	Jitter float64
	// Retryable overrides IsTransient.
	Retryable func(error) bool
	// Notify runs before each sleep.
	Notify func(attempt int, err error)
}

// SingleAttempt never retries.
func SingleAttempt() Policy {
	return Policy{Attempts: 1}
}

// LookupPolicy returns the policy used for fingerprint lookups given the
// configured attempt count.
func LookupPolicy(attempts int) Policy {
	p := Policy{
		Attempts: attempts,
		Base:     250 * time.Millisecond,
		Cap:      10 * time.Second,
		Factor:   2,
		Jitter:   0.2,
	}
	if attempts > 1 {
		p.Notify = LogRetry("lookup")
	}
	return p
}

func (p Policy) normalized() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Base <= 0 {
		p.Base = 250 * time.Millisecond
	}
	if p.Cap <= 0 {
		p.Cap = 10 * time.Second
	}
	if p.Factor < 1 {
		p.Factor = 2
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait before retry number n (0-based).
func (p Policy) Delay(n int) time.Duration {
	p = p.normalized()
	d := math.Min(float64(p.Base)*math.Pow(p.Factor, float64(n)), float64(p.Cap))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(d, 0))
}

// Call runs fn until it succeeds, returns a non-retryable error, runs out of
// attempts or ctx is done. The last error is returned.
func Call[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	p = p.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt+1 >= p.Attempts {
			return zero, err
		}

		if p.Notify != nil {
			p.Notify(attempt+1, err)
		}

		t := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}

// Run is Call for functions without a result.
func Run(ctx context.Context, p Policy, fn func(context.Context) error) error {
	_, err := Call(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// LogRetry returns a Notify callback that logs each retry.
func LogRetry(operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("resilience: retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
