// Package sensor assembles host snapshots. Individual collectors gather
// one metric each; the registry fans them out concurrently and the
// provider folds the results into an immutable snapshot value.
package sensor

import "context"

// Collector is the interface every metric collector implements.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Collect gathers the metric data. The context carries the per-tick
	// deadline.
	Collect(ctx context.Context) (interface{}, error)

	// IsAvailable checks if this collector can run on the current
	// platform; unavailable collectors are not registered.
	IsAvailable() bool
}
