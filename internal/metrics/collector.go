package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/confreq/pkg/request"
)

// Dispatch paths.
const (
	PathMock    = "mock"
	PathNetwork = "network"
)

// Collector records dispatch metrics in a thread-safe manner. It implements
// request.Observer.
type Collector struct {
	mu        sync.Mutex
	total     *latencyStats
	endpoints map[string]*latencyStats
	// statuses counts outcomes per path and status code.
	statuses     map[string]map[string]int
	errorsByCode map[string]int64
	handled      int64
}

var _ request.Observer = (*Collector)(nil)

type latencyStats struct {
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

func newLatencyStats() *latencyStats {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &latencyStats{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

func (s *latencyStats) record(latency time.Duration, failed bool) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < s.hist.LowestTrackableValue() {
			us = s.hist.LowestTrackableValue()
		}
		if us > s.hist.HighestTrackableValue() {
			us = s.hist.HighestTrackableValue()
		}
		_ = s.hist.RecordValue(us)
	}
	s.sumLatency += latency

	if s.minLatency == 0 || latency < s.minLatency {
		s.minLatency = latency
	}
	if latency > s.maxLatency {
		s.maxLatency = latency
	}
	if failed {
		s.failures++
	} else {
		s.successes++
	}
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	Failures       int64         `json:"failures"`
	Handled        int64         `json:"handled"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	Errors        map[string]int           `json:"errors,omitempty"`
	StatusBuckets []StatusBucket           `json:"status_buckets,omitempty"`
	Endpoints     map[string]EndpointStats `json:"endpoints,omitempty"`
}

// EndpointStats is the per-template breakdown.
type EndpointStats struct {
	Total        int64   `json:"total"`
	Successes    int64   `json:"successes"`
	Failures     int64   `json:"failures"`
	MeanLatency  float64 `json:"mean_latency_ms"`
	P50LatencyMs float64 `json:"p50_latency_ms"`
	P99LatencyMs float64 `json:"p99_latency_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		total:        newLatencyStats(),
		endpoints:    make(map[string]*latencyStats),
		statuses:     make(map[string]map[string]int),
		errorsByCode: make(map[string]int64),
	}
}

// ObserveDispatch records one finished call.
func (c *Collector) ObserveDispatch(ev request.DispatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	failed := ev.Err != nil
	c.total.record(ev.Latency, failed)

	name := ev.Template
	if name == "" {
		name = ev.Method
	}
	ep, ok := c.endpoints[name]
	if !ok {
		ep = newLatencyStats()
		c.endpoints[name] = ep
	}
	ep.record(ev.Latency, failed)

	path := PathNetwork
	if ev.Mock {
		path = PathMock
	}
	if c.statuses[path] == nil {
		c.statuses[path] = make(map[string]int)
	}
	c.statuses[path][statusLabel(ev.Status)]++

	if ev.Handled {
		c.handled++
	}
	if failed {
		c.errorsByCode[ErrorLabel(ev.Err)]++
	}
}

func statusLabel(status int) string {
	if status <= 0 {
		return "none"
	}
	return strconv.Itoa(status)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.total
	total := t.successes + t.failures
	stats := Stats{
		Total:      total,
		Successes:  t.successes,
		Failures:   t.failures,
		Handled:    c.handled,
		MinLatency: t.minLatency,
		MaxLatency: t.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(t.sumLatency) / total)
	}

	if t.hist.TotalCount() > 0 {
		stats.P50Latency = quantile(t.hist, 50)
		stats.P90Latency = quantile(t.hist, 90)
		stats.P95Latency = quantile(t.hist, 95)
		stats.P99Latency = quantile(t.hist, 99)
	}

	stats.MinLatencyMs = ms(stats.MinLatency)
	stats.MaxLatencyMs = ms(stats.MaxLatency)
	stats.MeanLatencyMs = ms(stats.MeanLatency)
	stats.P50LatencyMs = ms(stats.P50Latency)
	stats.P90LatencyMs = ms(stats.P90Latency)
	stats.P95LatencyMs = ms(stats.P95Latency)
	stats.P99LatencyMs = ms(stats.P99Latency)

	stats.Duration = elapsed
	stats.DurationMs = ms(elapsed)
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.errorsByCode) > 0 {
		stats.Errors = make(map[string]int, len(c.errorsByCode))
		for k, v := range c.errorsByCode {
			stats.Errors[k] = int(v)
		}
	}
	stats.StatusBuckets = FlattenStatusBuckets(c.statuses)

	if len(c.endpoints) > 0 {
		stats.Endpoints = make(map[string]EndpointStats, len(c.endpoints))
		for name, ep := range c.endpoints {
			count := ep.successes + ep.failures
			es := EndpointStats{Total: count, Successes: ep.successes, Failures: ep.failures}
			if count > 0 {
				es.MeanLatency = ms(time.Duration(int64(ep.sumLatency) / count))
			}
			if ep.hist.TotalCount() > 0 {
				es.P50LatencyMs = ms(quantile(ep.hist, 50))
				es.P99LatencyMs = ms(quantile(ep.hist, 99))
			}
			stats.Endpoints[name] = es
		}
	}

	return stats
}

// EndpointNames lists the observed templates in order.
func (c *Collector) EndpointNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.endpoints))
	for name := range c.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func quantile(h *hdrhistogram.Histogram, q float64) time.Duration {
	return time.Duration(h.ValueAtQuantile(q)) * time.Microsecond
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
