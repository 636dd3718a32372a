// Package metrics collects per-route request metrics for the web server.
//
// Request handling emits events on a buffered channel without blocking; a
// single goroutine folds them into:
//   - request counts per route
//   - response times with percentile calculations (P50, P95, P99)
//   - HTTP status code distribution per route
//
// Requests that matched no route are recorded under RouteNotFound.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		Route:      "/models",
//		Duration:   3 * time.Millisecond,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// On shutdown the collector drains whatever is still buffered.
package metrics
