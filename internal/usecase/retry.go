package usecase

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetries is how often a recoverable call is retried.
const DefaultRetries = 2

// retryInitialInterval is the first backoff delay; tests shorten it.
var retryInitialInterval = 500 * time.Millisecond

// retry runs op once plus up to retries more times with exponential backoff.
func retry(ctx context.Context, retries int, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = retryInitialInterval
	b.MaxElapsedTime = time.Minute
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(retries, 0))), ctx))
}

// permanent stops retry without further attempts; retry returns err unwrapped.
func permanent(err error) error {
	return backoff.Permanent(err)
}
