package sensor

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"
)

// DiskResult holds collected disk utilization.
type DiskResult struct {
	Percent float64 `json:"percent"`
}

// DiskCollector collects utilization for the root volume.
type DiskCollector struct{}

// NewDiskCollector creates a disk collector.
func NewDiskCollector() *DiskCollector { return &DiskCollector{} }

// Name returns the collector identifier.
func (c *DiskCollector) Name() string { return "disk" }

// Collect gathers usage of the primary volume.
func (c *DiskCollector) Collect(ctx context.Context) (interface{}, error) {
	path := "/"
	if runtime.GOOS == "windows" {
		path = "C:\\"
	}
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return nil, err
	}
	return DiskResult{Percent: usage.UsedPercent}, nil
}

// IsAvailable returns true; disk metrics exist on every platform.
func (c *DiskCollector) IsAvailable() bool { return true }
