package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// connectTries is how many pings a fresh connection gets before Open fails.
const connectTries = 3

// connectBackOff paces the pings. Tests swap it for a faster one.
var connectBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}

// pingUntilReady pings a freshly opened database until it answers, giving
// up after connectTries or when ctx is done. Only the open path retries;
// Select, Insert, Update and Delete are single attempts.
func pingUntilReady(ctx context.Context, ping func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		return struct{}{}, ping(ctx)
	}, backoff.WithBackOff(connectBackOff()), backoff.WithMaxTries(connectTries))
	if err != nil {
		return fmt.Errorf("database not ready after %d attempt(s): %w", attempts, err)
	}
	return nil
}
