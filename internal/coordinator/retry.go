package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/stacklok/toolhive-assetsync/internal/config"
	"github.com/stacklok/toolhive-assetsync/internal/naming"
	"github.com/stacklok/toolhive-assetsync/internal/syncerr"
)

// backOffFactory returns a fresh backoff policy for one retried call
type backOffFactory func() backoff.BackOff

func exponentialBackOff(cfg *config.RetryConfig) backOffFactory {
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.GetInitialInterval()
		b.MaxInterval = cfg.GetMaxInterval()
		return b
	}
}

// retry runs fn until it succeeds, fails with a non-retryable code or runs out of attempts
func retry[T any](
	ctx context.Context, c *defaultCoordinator, key naming.ResourceKey, op string, fn func() (T, error),
) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !syncerr.CodeOf(err).Retryable() {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.config.Retry.GetMaxAttempts()),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.Warn("Retrying after transient failure",
				"resource", key.String(),
				"operation", op,
				"retry_in", next,
				"error", err)
		}),
	)
}
