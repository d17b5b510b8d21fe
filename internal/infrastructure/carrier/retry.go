package carrier

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shopkart/fulfillment/internal/domain/fulfillment"
)

// BackoffPolicy bounds a retry loop. The delay doubles after every failed
// attempt.
type BackoffPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultBackoff is the policy used by carrier calls that opt into retries
var DefaultBackoff = BackoffPolicy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond}

// RetryWithBackoff runs op up to policy.MaxAttempts times, doubling the delay
// between attempts. Only errors the classifier accepts are retried; anything
// else fails immediately. The context cancels the wait between attempts.
func RetryWithBackoff(ctx context.Context, policy BackoffPolicy, retryable func(error) bool, op func(ctx context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}
	delay := policy.InitialDelay

	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return err
}

// IsRetryable classifies carrier failures for RetryWithBackoff: auth
// rejections and server-side failures are retryable, while other 4xx client
// errors fail immediately because repeating them cannot change the outcome.
func IsRetryable(err error) bool {
	var apiErr *fulfillment.CarrierAPIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized {
			return true
		}
		return apiErr.StatusCode < 400 || apiErr.StatusCode >= 500
	}

	var authErr *fulfillment.AuthenticationError
	if errors.As(err, &authErr) {
		return false
	}

	// Network-level failures without a status code are worth retrying.
	return true
}
