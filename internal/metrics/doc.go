// Package metrics aggregates dispatch outcomes of request templates.
//
// A [Collector] is a request.Observer. Pass it with request.WithObserver and
// every Request, Mock or Do call is recorded once, whether it succeeded, failed
// or was recovered by an error handler.
//
//	collector := metrics.NewCollector()
//	users, err := request.Get("/users/{id}", request.WithObserver(collector)).Build()
//	...
//	stats := collector.Stats(elapsed)
//
// [Stats] carries overall counts, latency percentiles from an HDR histogram,
// failures keyed by error code, status buckets per dispatch path ("mock" or
// "network") and a per-template breakdown.
package metrics
