package metrics

import "sort"

// StatusBucket is the number of calls that ended with Code on one dispatch path.
type StatusBucket struct {
	Path  string `json:"path"`
	Code  string `json:"code"`
	Count int    `json:"count"`
}

// FlattenStatusBuckets converts a nested path->status map into a sorted slice of StatusBucket rows.
// Rows are sorted by descending count, then by path/code for stability.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	rows := make([]StatusBucket, 0)
	for path, codes := range buckets {
		for code, count := range codes {
			rows = append(rows, StatusBucket{Path: path, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			if rows[i].Path == rows[j].Path {
				return rows[i].Code < rows[j].Code
			}
			return rows[i].Path < rows[j].Path
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
