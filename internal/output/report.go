package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/torosent/confreq/internal/metrics"
	"github.com/torosent/confreq/internal/threshold"
)

// PrintReport outputs a human-readable summary of a bench run.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Bench Results ---")
	fmt.Fprintf(w, "Total Calls:       %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Recovered:         %d\n", stats.Handled)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Calls/sec:         %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P95:             %s\n", stats.P95Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)
	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nFailures:")
		codes := make([]string, 0, len(stats.Errors))
		for code := range stats.Errors {
			codes = append(codes, code)
		}
		sort.Slice(codes, func(i, j int) bool {
			if stats.Errors[codes[i]] == stats.Errors[codes[j]] {
				return codes[i] < codes[j]
			}
			return stats.Errors[codes[i]] > stats.Errors[codes[j]]
		})
		for _, code := range codes {
			fmt.Fprintf(w, "  %s: %d\n", code, stats.Errors[code])
		}
	}

	if len(stats.Endpoints) > 1 {
		fmt.Fprintln(w, "\nEndpoint Breakdown:")
		for _, name := range endpointsBySize(stats) {
			endpoint := stats.Endpoints[name]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(endpoint.Total) / float64(stats.Total)) * 100
			}
			fmt.Fprintf(
				w,
				"  - %s: total=%d (%.1f%%), successes=%d, failures=%d, p99=%.1fms\n",
				name,
				endpoint.Total,
				share,
				endpoint.Successes,
				endpoint.Failures,
				endpoint.P99LatencyMs,
			)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report; threshold results are
// added under "thresholds" when present.
func PrintJSONReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	return PrintJSON(w, struct {
		metrics.Stats
		Thresholds *ThresholdSummary `json:"thresholds,omitempty"`
	}{stats, SummarizeThresholds(results)})
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// PrintExtracted writes extracted values as sorted name=value lines.
func PrintExtracted(w io.Writer, values map[string]string) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s=%s\n", name, values[name])
	}
}

func writeStatusBuckets(w io.Writer, rows []metrics.StatusBucket, indent string) {
	for _, row := range rows {
		fmt.Fprintf(
			w,
			"%s%s %s: %d\n",
			indent,
			strings.ToUpper(row.Path),
			row.Code,
			row.Count,
		)
	}
}

func endpointsBySize(stats metrics.Stats) []string {
	names := make([]string, 0, len(stats.Endpoints))
	for name := range stats.Endpoints {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if stats.Endpoints[names[i]].Total == stats.Endpoints[names[j]].Total {
			return names[i] < names[j]
		}
		return stats.Endpoints[names[i]].Total > stats.Endpoints[names[j]].Total
	})
	return names
}
