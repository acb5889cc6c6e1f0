package sensor

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the collectors that feed snapshot capture and runs them
// as a concurrent fan-out.
type Registry struct {
	collectors []Collector
	logger     *zap.Logger
}

// NewRegistry creates an empty collector registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{logger: logger}
}

// Register adds a collector if it is available on the current platform.
// Unavailable collectors are logged and skipped rather than failing startup.
func (r *Registry) Register(c Collector) {
	if !c.IsAvailable() {
		r.logger.Warn("collector unavailable, skipping", zap.String("name", c.Name()))
		return
	}
	r.collectors = append(r.collectors, c)
	r.logger.Debug("registered collector", zap.String("name", c.Name()))
}

// CollectAll runs every registered collector concurrently and returns a map
// of collector name to result. A failed collector is logged and omitted; the
// rest of the capture still completes.
func (r *Registry) CollectAll(ctx context.Context) map[string]interface{} {
	results := make(map[string]interface{}, len(r.collectors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, c := range r.collectors {
		wg.Add(1)
		go func(col Collector) {
			defer wg.Done()
			data, err := col.Collect(ctx)
			if err != nil {
				r.logger.Warn("collection failed",
					zap.String("collector", col.Name()),
					zap.Error(err))
				return
			}
			mu.Lock()
			results[col.Name()] = data
			mu.Unlock()
		}(c)
	}

	wg.Wait()
	return results
}

// Collectors returns a copy of the registered collectors.
func (r *Registry) Collectors() []Collector {
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}
