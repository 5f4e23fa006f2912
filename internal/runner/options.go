package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Requester executes one call of a bench run. It returns an error for failed calls.
type Requester interface {
	Do(ctx context.Context) error
}

// RequesterFunc adapts a function to Requester.
type RequesterFunc func(ctx context.Context) error

func (f RequesterFunc) Do(ctx context.Context) error { return f(ctx) }

// ArrivalModel selects how calls are spaced when a rate is set.
type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

// Options configure the Runner.
type Options struct {
	Concurrency    int                         // number of worker goroutines
	TotalRequests  int                         // total calls to execute (0 means unlimited until Duration)
	Duration       time.Duration               // overall time limit (0 means no duration cap)
	RatePerSecond  int                         // pacing (0 means unlimited)
	ArrivalModel   ArrivalModel                // uniform or poisson spacing
	RandomSeed     int64                       // seed of the poisson sampler
	Requester      Requester                   // call executor (required)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler func() float64              // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
