package executor

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	streamyerrors "github.com/alexisbeaulieu97/featherbox/pkg/errors"
)

// RetryPolicy configures the exponential back-off applied to retryable
// action errors (spec §4.6 "Retry policy").
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy matches spec.md's stated defaults: up to 3 attempts,
// starting at a 1 second base delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// withRetry runs fn, retrying only FeatherBoxError-classified retryable
// errors up to policy.MaxAttempts total attempts with exponential
// back-off. onAttempt is invoked before every attempt (including the
// first) with its 1-based attempt number, for logging. Non-retryable
// errors and context cancellation stop retrying immediately.
func withRetry(ctx context.Context, policy RetryPolicy, onAttempt func(attempt int), fn func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = policy.BaseDelay
	bo.Multiplier = 2
	bounded := backoff.WithMaxRetries(bo, uint64(maxInt(policy.MaxAttempts-1, 0)))
	withCtx := backoff.WithContext(bounded, ctx)

	attempt := 0
	op := func() error {
		attempt++
		if onAttempt != nil {
			onAttempt(attempt)
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(op, withCtx)
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func isRetryable(err error) bool {
	var fbe *streamyerrors.FeatherBoxError
	if errors.As(err, &fbe) {
		return fbe.Retryable()
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
