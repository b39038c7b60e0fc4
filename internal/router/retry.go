package router

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/bayardsearch/bayard/internal/metrics"
)

// Write-side fan-out retries: 5 tries with exponential backoff bounded
// to [500ms, 3s].
const writeMaxTries = 5

func writeBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 3 * time.Second
	return b
}

// retryWrite retries op up to writeMaxTries times with exponential backoff,
// returning the first success or op's last error after exhaustion. Every
// attempt after the first is reported to sink under op name name.
func retryWrite(ctx context.Context, sink metrics.Sink, name string, op func() error) error {
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if attempt > 0 {
			sink.IncRouterRetry(name)
		}
		attempt++
		return struct{}{}, op()
	}, backoff.WithBackOff(writeBackOff()), backoff.WithMaxTries(writeMaxTries))
	return err
}

// Read-side retries: 5 tries with a 0-100 microsecond jitter between
// them — deliberately tiny, since rotating to the next replica (not
// retrying the same one) is the load-spreading mechanism.
const searchMaxTries = 5

func searchJitter() time.Duration {
	return time.Duration(rand.Int63n(100)) * time.Microsecond
}

// sleepJitter waits out one micros-scale backoff interval or returns early
// if ctx is done.
func sleepJitter(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(searchJitter()):
		return nil
	}
}
