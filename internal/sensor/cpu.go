package sensor

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
)

// CPUResult holds collected CPU utilization.
type CPUResult struct {
	Percent float64 `json:"percent"`
}

// CPUCollector collects overall CPU utilization.
type CPUCollector struct{}

// NewCPUCollector creates a CPU collector.
func NewCPUCollector() *CPUCollector { return &CPUCollector{} }

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Collect gathers the overall CPU percentage since the previous call.
func (c *CPUCollector) Collect(ctx context.Context) (interface{}, error) {
	// Interval 0 measures against the last call instead of blocking.
	pcts, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return nil, err
	}
	result := CPUResult{}
	if len(pcts) > 0 {
		result.Percent = pcts[0]
	}
	return result, nil
}

// IsAvailable returns true; CPU metrics exist on every platform.
func (c *CPUCollector) IsAvailable() bool { return true }
