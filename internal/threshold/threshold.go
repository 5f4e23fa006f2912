// Package threshold evaluates pass/fail assertions such as "latency:p99 < 250"
// against the statistics of a bench run.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/confreq/internal/metrics"
)

// Threshold is one parsed assertion.
type Threshold struct {
	Metric    string  // latency, failures, calls, recovered
	Aggregate string  // p50, p90, p95, p99, avg, min, max, rate, count
	Operator  string  // <, <=, >, >=, ==
	Value     float64
	Raw       string
}

// Result is the outcome of one threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var aggregates = map[string][]string{
	"latency":   {"p50", "p90", "p95", "p99", "avg", "min", "max"},
	"failures":  {"rate", "count"},
	"calls":     {"rate", "count"},
	"recovered": {"rate", "count"},
}

var operators = []string{"<", "<=", ">", ">=", "=="}

type Evaluator struct {
	thresholds []Threshold
}

func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks every threshold against stats, in order.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// Failed counts the results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Pass {
			n++
		}
	}
	return n
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	actual, err := metricValue(t, stats)
	if err != nil {
		return Result{Threshold: t, Message: fmt.Sprintf("error: %v", err)}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse reads "metric:aggregate operator value". Latency values are in
// milliseconds and rates are fractions (failures, recovered) or calls per
// second (calls).
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold")
	}
	m := thresholdPattern.FindStringSubmatch(s)
	if m == nil {
		return Threshold{}, fmt.Errorf("invalid threshold %q (expected metric:aggregate operator value, e.g. 'latency:p95 < 500')", s)
	}
	metric, aggregate, operator := m[1], m[2], m[3]

	value, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", m[4], err)
	}
	allowed, ok := aggregates[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric %q (supported: latency, failures, calls, recovered)", metric)
	}
	if !contains(allowed, aggregate) {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(allowed, ", "))
	}
	if !contains(operators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator %q (supported: %s)", operator, strings.Join(operators, " "))
	}

	return Threshold{Metric: metric, Aggregate: aggregate, Operator: operator, Value: value, Raw: s}, nil
}

// ParseMultiple parses every entry and reports all failures together.
func ParseMultiple(raw []string) ([]Threshold, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	result := make([]Threshold, 0, len(raw))
	var problems []string
	for i, s := range raw {
		t, err := Parse(s)
		if err != nil {
			problems = append(problems, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(problems, "; "))
	}
	return result, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func metricValue(t Threshold, stats metrics.Stats) (float64, error) {
	switch t.Metric {
	case "latency":
		switch t.Aggregate {
		case "p50":
			return stats.P50LatencyMs, nil
		case "p90":
			return stats.P90LatencyMs, nil
		case "p95":
			return stats.P95LatencyMs, nil
		case "p99":
			return stats.P99LatencyMs, nil
		case "avg":
			return stats.MeanLatencyMs, nil
		case "min":
			return stats.MinLatencyMs, nil
		case "max":
			return stats.MaxLatencyMs, nil
		}
	case "failures":
		return countOrRate(t.Aggregate, stats.Failures, stats.Total)
	case "recovered":
		return countOrRate(t.Aggregate, stats.Handled, stats.Total)
	case "calls":
		switch t.Aggregate {
		case "count":
			return float64(stats.Total), nil
		case "rate":
			return stats.RequestsPerSec, nil
		}
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
	return 0, fmt.Errorf("unsupported aggregate %q for %s", t.Aggregate, t.Metric)
}

func countOrRate(aggregate string, n, total int64) (float64, error) {
	switch aggregate {
	case "count":
		return float64(n), nil
	case "rate":
		if total == 0 {
			return 0, nil
		}
		return float64(n) / float64(total), nil
	}
	return 0, fmt.Errorf("unsupported aggregate %q (use count or rate)", aggregate)
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
