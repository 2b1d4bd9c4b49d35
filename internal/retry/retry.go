package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/avstrong/stays/internal/apperror"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,                      //nolint:gomnd
		InitialInterval: 200 * time.Millisecond, //nolint:gomnd
		MaxInterval:     2 * time.Second,        //nolint:gomnd
	}
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// Not-found results are final and returned as is.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxElapsedTime = 0

	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	op := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if apperror.IsNotFoundError(err) != nil {
			return backoff.Permanent(err)
		}

		return err
	}

	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx))
}
