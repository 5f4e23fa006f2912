package main

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/torosent/confreq/internal/feeder"
	"github.com/torosent/confreq/internal/output"
	"github.com/torosent/confreq/internal/runner"
	"github.com/torosent/confreq/internal/threshold"
	"github.com/torosent/confreq/pkg/request"
)

const (
	progressInterval = time.Second
	baseRetryDelay   = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
)

type benchFlags struct {
	callFlags
	count       int
	duration    time.Duration
	rate        int
	concurrency int
	arrival     string
	retries     int
	jsonOutput  bool
	progress    bool
	feed        string
	thresholds  []string
}

func newBenchCommand(a *app) *cobra.Command {
	var flags benchFlags
	cmd := &cobra.Command{
		Use:   "bench <endpoint>",
		Short: "Call an endpoint repeatedly and report latency percentiles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd.Context(), a, args[0], flags)
		},
	}
	flags.register(cmd.Flags())
	fs := cmd.Flags()
	fs.IntVarP(&flags.count, "count", "n", 100, "Number of calls (0 means until --duration)")
	fs.DurationVarP(&flags.duration, "duration", "d", 0, "Stop after this long (0 means no limit)")
	fs.IntVarP(&flags.rate, "rate", "r", 0, "Calls per second (0 means unlimited)")
	fs.IntVarP(&flags.concurrency, "concurrency", "c", 1, "Number of concurrent callers")
	fs.StringVar(&flags.arrival, "arrival", string(runner.ArrivalModelUniform), "Call spacing under --rate: uniform or poisson")
	fs.IntVar(&flags.retries, "retries", 0, "Retries of transient failures per call")
	fs.BoolVar(&flags.jsonOutput, "json", false, "Print the report as JSON")
	fs.BoolVar(&flags.progress, "progress", false, "Show live progress on stderr")
	fs.StringVar(&flags.feed, "feed", "", "CSV or JSON dataset; each call takes the next record as params and fills {{field}} in the body")
	fs.StringArrayVar(&flags.thresholds, "threshold", nil, "Assertion such as 'latency:p99 < 250' or 'failures:rate < 0.01' (repeatable)")
	return cmd
}

func runBench(ctx context.Context, a *app, name string, flags benchFlags) error {
	if flags.count == 0 && flags.duration == 0 {
		return fmt.Errorf("bench needs --count or --duration")
	}
	arrival := runner.ArrivalModel(strings.ToLower(flags.arrival))
	if arrival != runner.ArrivalModelUniform && arrival != runner.ArrivalModelPoisson {
		return fmt.Errorf("--arrival must be uniform or poisson, got %q", flags.arrival)
	}

	thresholds, err := threshold.ParseMultiple(flags.thresholds)
	if err != nil {
		return err
	}

	t, err := a.endpoint(name)
	if err != nil {
		return err
	}
	in, err := flags.input()
	if err != nil {
		return err
	}
	opts, err := flags.callOptions()
	if err != nil {
		return err
	}

	var dataset *feeder.Dataset
	if flags.feed != "" {
		if dataset, err = feeder.Load(flags.feed); err != nil {
			return err
		}
	}
	// Resolve once up front so configuration errors fail the command, not every call.
	if _, err := t.RequestInfo(fedInput(in, dataset, firstRecord(dataset)), opts); err != nil {
		return err
	}

	var call runner.Requester = runner.RequesterFunc(func(ctx context.Context) error {
		callIn := in
		if dataset != nil {
			record, err := dataset.Next(ctx)
			if err != nil {
				return err
			}
			callIn = fedInput(in, dataset, record)
		}
		_, err := t.Request(ctx, callIn, opts)
		return err
	})
	call = runner.WithLogging(call, a.logger)
	if flags.retries > 0 {
		call = runner.WithRetry(call, newRetryPolicy(flags.retries))
	}

	r := runner.New(runner.Options{
		Concurrency:   flags.concurrency,
		TotalRequests: flags.count,
		Duration:      flags.duration,
		RatePerSecond: flags.rate,
		ArrivalModel:  arrival,
		Requester:     call,
	})

	if flags.progress {
		progress := output.NewProgressReporter(a.collector, progressInterval, a.stderr)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(a.stderr)
		}()
	}

	result := r.Run(ctx)
	stats := a.collector.Stats(result.Duration)
	results := threshold.NewEvaluator(thresholds).Evaluate(stats)

	if flags.jsonOutput {
		if err := output.PrintJSONReport(a.stdout, stats, results); err != nil {
			return err
		}
	} else {
		output.PrintReport(a.stdout, stats)
		output.PrintThresholds(a.stdout, results)
	}

	if failed := threshold.Failed(results); failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	if len(results) == 0 && result.Errors > 0 {
		return fmt.Errorf("%d of %d calls failed", result.Errors, result.Total)
	}
	return nil
}

func firstRecord(ds *feeder.Dataset) feeder.Record {
	if ds == nil {
		return nil
	}
	return ds.First()
}

// fedInput layers a dataset record over the flag input.
func fedInput(in request.Input, ds *feeder.Dataset, record feeder.Record) request.Input {
	if ds == nil {
		return in
	}
	return request.Input{
		Params: feeder.Merge(in.Params, record),
		Body:   feeder.Expand(in.Body, record),
	}
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: runner.Transient,
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
