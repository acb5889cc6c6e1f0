package sensor

import (
	"context"

	"github.com/shirou/gopsutil/v3/mem"
)

// MemoryResult holds collected RAM utilization.
type MemoryResult struct {
	Percent float64 `json:"percent"`
}

// MemoryCollector collects RAM utilization.
type MemoryCollector struct{}

// NewMemoryCollector creates a memory collector.
func NewMemoryCollector() *MemoryCollector { return &MemoryCollector{} }

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return "memory" }

// Collect gathers virtual memory usage.
func (c *MemoryCollector) Collect(ctx context.Context) (interface{}, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return MemoryResult{Percent: vm.UsedPercent}, nil
}

// IsAvailable returns true; memory metrics exist on every platform.
func (c *MemoryCollector) IsAvailable() bool { return true }
