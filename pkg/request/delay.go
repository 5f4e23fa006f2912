package request

import (
	"context"
	"math/rand"
	"net/http"
	"time"
)

// NetworkDelay names a latency bucket used to slow down mock responses.
type NetworkDelay string

const (
	DelayLight     NetworkDelay = "light"
	DelayMedium    NetworkDelay = "medium"
	DelayHeavy     NetworkDelay = "heavy"
	DelayVeryHeavy NetworkDelay = "very-heavy"
)

var delayRanges = map[NetworkDelay][2]time.Duration{
	DelayLight:     {10 * time.Millisecond, 50 * time.Millisecond},
	DelayMedium:    {50 * time.Millisecond, 150 * time.Millisecond},
	DelayHeavy:     {150 * time.Millisecond, 500 * time.Millisecond},
	DelayVeryHeavy: {1000 * time.Millisecond, 2000 * time.Millisecond},
}

// Range returns the bounds of the bucket; the empty name means light.
func (d NetworkDelay) Range() (time.Duration, time.Duration, error) {
	if d == "" {
		d = DelayLight
	}
	r, ok := delayRanges[d]
	if !ok {
		return 0, 0, newConfigError(CodeInvalidNetworkDelay, http.StatusBadRequest,
			"unknown network delay %q (use light, medium, heavy or very-heavy)", string(d))
	}
	return r[0], r[1], nil
}

// pick draws a duration in [min, max).
func (d NetworkDelay) pick() (time.Duration, error) {
	lo, hi, err := d.Range()
	if err != nil {
		return 0, err
	}
	if hi <= lo {
		return lo, nil
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo))), nil
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
