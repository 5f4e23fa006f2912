package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewArrivalController(t *testing.T) {
	unpaced := Options{Requester: RequesterFunc(func(context.Context) error { return nil })}
	unpaced.normalize()
	if ctrl := newArrivalController(unpaced); ctrl != nil {
		t.Fatalf("expected no arrival control without a rate, got %T", ctrl)
	}

	uniform := Options{RatePerSecond: 40}
	uniform.normalize()
	u, ok := newArrivalController(uniform).(*uniformArrival)
	if !ok {
		t.Fatalf("expected uniform arrival for the default model")
	}
	if u.limiter.Limit() != rate.Limit(40) {
		t.Fatalf("expected limiter at 40 rps, got %v", u.limiter.Limit())
	}

	poisson := Options{RatePerSecond: 25, ArrivalModel: ArrivalModelPoisson, RandomSeed: 7}
	poisson.normalize()
	p, ok := newArrivalController(poisson).(*poissonArrival)
	if !ok {
		t.Fatalf("expected poisson arrival")
	}
	if p.rate != 25 || p.sample == nil {
		t.Fatalf("poisson arrival not configured: rate=%v sampler=%v", p.rate, p.sample != nil)
	}
}

func TestPoissonDelayScalesWithRate(t *testing.T) {
	tests := []struct {
		rps  float64
		want time.Duration
	}{
		{10, 50 * time.Millisecond},
		{100, 5 * time.Millisecond},
		{0, 0},
		{-3, 0},
	}
	for _, tt := range tests {
		ctrl := &poissonArrival{sample: func() float64 { return 0.5 }}
		ctrl.SetRate(tt.rps)
		if got := ctrl.nextDelay(); got != tt.want {
			t.Errorf("rate %v: delay = %s, want %s", tt.rps, got, tt.want)
		}
	}
}

func TestPoissonWaitStopsOnCancel(t *testing.T) {
	ctrl := &poissonArrival{sample: func() float64 { return 1 }}
	ctrl.SetRate(0.01)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := ctrl.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait did not return promptly")
	}
}
