package output

import (
	"fmt"
	"io"

	"github.com/torosent/confreq/internal/threshold"
)

// ThresholdSummary is the JSON form of a set of threshold results.
type ThresholdSummary struct {
	Total   int                   `json:"total"`
	Passed  int                   `json:"passed"`
	Failed  int                   `json:"failed"`
	Results []ThresholdResultJSON `json:"results"`
}

type ThresholdResultJSON struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// SummarizeThresholds returns nil when there are no results.
func SummarizeThresholds(results []threshold.Result) *ThresholdSummary {
	if len(results) == 0 {
		return nil
	}
	summary := &ThresholdSummary{
		Total:   len(results),
		Results: make([]ThresholdResultJSON, len(results)),
	}
	for i, r := range results {
		summary.Results[i] = ThresholdResultJSON{
			Threshold: r.Threshold.Raw,
			Metric:    r.Threshold.Metric,
			Aggregate: r.Threshold.Aggregate,
			Operator:  r.Threshold.Operator,
			Expected:  r.Threshold.Value,
			Actual:    r.Actual,
			Pass:      r.Pass,
		}
		if r.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// PrintThresholds writes one line per result followed by a tally.
func PrintThresholds(w io.Writer, results []threshold.Result) {
	summary := SummarizeThresholds(results)
	if summary == nil {
		return
	}
	fmt.Fprintln(w, "\nThresholds:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	fmt.Fprintf(w, "  %d passed, %d failed\n", summary.Passed, summary.Failed)
}
