package rpc

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds every resilient read.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration // delay before attempt n+1 is n * BaseDelay
	AttemptTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      1 * time.Second,
		AttemptTimeout: 20 * time.Second,
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetrierConfig holds configuration for a Retrier
type RetrierConfig struct {
	Policy RetryPolicy
	Sleep  SleepFunc // tests inject a recorder here
	Logger *logrus.Logger
}

// Retrier re-runs read-only remote calls with linear backoff.
type Retrier struct {
	policy RetryPolicy
	sleep  SleepFunc
	logger *logrus.Logger
}

func NewRetrier(cfg RetrierConfig) *Retrier {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Policy.MaxAttempts < 1 {
		cfg.Policy.MaxAttempts = 1
	}

	return &Retrier{
		policy: cfg.Policy,
		sleep:  cfg.Sleep,
		logger: cfg.Logger,
	}
}

func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Retry runs fn until it succeeds or the attempt budget is spent. The final
// error matches both errs.ErrNetworkExhausted and the last failure.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		var v T
		err := r.once(ctx, func(c context.Context) error {
			var callErr error
			v, callErr = fn(c)
			return callErr
		})
		if err == nil {
			return v, nil
		}
		lastErr = err

		// caller gave up, don't burn the remaining budget
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		backoff := time.Duration(attempt) * r.policy.BaseDelay
		r.logger.WithFields(logrus.Fields{
			"op":           op,
			"attempt":      attempt,
			"max_attempts": r.policy.MaxAttempts,
			"backoff":      backoff,
		}).WithError(err).Warn("remote call failed, retrying")

		if err := r.sleep(ctx, backoff); err != nil {
			return zero, err
		}
	}

	r.logger.WithFields(logrus.Fields{
		"op":       op,
		"attempts": r.policy.MaxAttempts,
	}).WithError(lastErr).Error("remote call retries exhausted")

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", op, errs.ErrNetworkExhausted, r.policy.MaxAttempts, lastErr)
}

func (r *Retrier) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.policy.AttemptTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, r.policy.AttemptTimeout)
	defer cancel()
	return fn(attemptCtx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
