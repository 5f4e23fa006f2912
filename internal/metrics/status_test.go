package metrics

import (
	"reflect"
	"testing"
)

func TestFlattenStatusBuckets(t *testing.T) {
	tests := []struct {
		name    string
		buckets map[string]map[string]int
		want    []StatusBucket
	}{
		{
			name:    "nil buckets",
			buckets: nil,
			want:    nil,
		},
		{
			name:    "empty buckets",
			buckets: map[string]map[string]int{},
			want:    nil,
		},
		{
			name: "single bucket",
			buckets: map[string]map[string]int{
				"network": {"200": 10},
			},
			want: []StatusBucket{
				{Path: "network", Code: "200", Count: 10},
			},
		},
		{
			name: "multiple buckets sorted by count desc",
			buckets: map[string]map[string]int{
				"network": {
					"200": 10,
					"500": 5,
				},
				"mock": {
					"204": 20,
				},
			},
			want: []StatusBucket{
				{Path: "mock", Code: "204", Count: 20},
				{Path: "network", Code: "200", Count: 10},
				{Path: "network", Code: "500", Count: 5},
			},
		},
		{
			name: "tie breaking by path then code",
			buckets: map[string]map[string]int{
				"network": {
					"200": 10,
					"404": 10,
				},
				"mock": {
					"200": 10,
				},
			},
			want: []StatusBucket{
				{Path: "mock", Code: "200", Count: 10},
				{Path: "network", Code: "200", Count: 10},
				{Path: "network", Code: "404", Count: 10},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenStatusBuckets(tt.buckets)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FlattenStatusBuckets() = %v, want %v", got, tt.want)
			}
		})
	}
}
