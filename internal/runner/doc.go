// Package runner drives repeated calls of one request template for the bench
// command.
//
// The runner package executes a [Requester] concurrently with:
//   - Configurable concurrency levels
//   - Pacing in calls per second, uniformly spaced or following a Poisson process
//   - Duration-based and count-based termination
//
// # Basic Usage
//
//	opts := runner.Options{
//		Concurrency:   10,
//		TotalRequests: 1000,
//		Duration:      time.Minute,
//		RatePerSecond: 100,
//		Requester: runner.RequesterFunc(func(ctx context.Context) error {
//			_, err := users.Request(ctx, in, nil)
//			return err
//		}),
//	}
//	result := runner.New(opts).Run(ctx)
//
// # Middleware
//
//   - [WithLogging]: Log failed calls with zap
//   - [WithRetry]: Retry with backoff; [Transient] is a ready-made predicate
package runner
