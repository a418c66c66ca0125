package shopify

import (
	"context"
	"errors"
	"time"

	goshopify "github.com/bold-commerce/go-shopify/v4"
)

// RetryPolicy bounds the retry loop for authenticated calls made with a
// freshly exchanged token. Token activation on Shopify's side can lag the
// exchange by a few seconds, surfacing as 401s that resolve on their own.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy mirrors the activation-lag window observed in
// production: up to 5 attempts, 2 seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, Delay: 2 * time.Second}
}

// withAuthRetry runs fn, retrying on 401 responses per the policy. Any
// other error is terminal.
func withAuthRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !isUnauthorized(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(policy.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func isUnauthorized(err error) bool {
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return respErr.GetStatus() == 401
	}
	return false
}
