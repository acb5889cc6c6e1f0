package sensor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GPUResult holds collected GPU utilization and, when exposed, the edge
// temperature in degrees Celsius.
type GPUResult struct {
	Percent     float64 `json:"percent"`
	Temperature float64 `json:"temperature,omitempty"`
}

// GPUCollector reads utilization from the drm sysfs interface. Only
// drivers exposing gpu_busy_percent (amdgpu, some i915 builds) are
// supported; on other hosts the collector reports itself unavailable.
type GPUCollector struct {
	busyPath string
	tempPath string
}

// NewGPUCollector creates a GPU collector, probing sysfs for a device.
func NewGPUCollector() *GPUCollector {
	c := &GPUCollector{}
	matches, _ := filepath.Glob("/sys/class/drm/card*/device/gpu_busy_percent")
	if len(matches) > 0 {
		c.busyPath = matches[0]
		dev := filepath.Dir(matches[0])
		temps, _ := filepath.Glob(filepath.Join(dev, "hwmon/hwmon*/temp1_input"))
		if len(temps) > 0 {
			c.tempPath = temps[0]
		}
	}
	return c
}

// Name returns the collector identifier.
func (c *GPUCollector) Name() string { return "gpu" }

// Collect reads the busy percentage and temperature from sysfs.
func (c *GPUCollector) Collect(ctx context.Context) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(c.busyPath)
	if err != nil {
		return nil, err
	}
	busy, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return nil, err
	}
	result := GPUResult{Percent: busy}
	if c.tempPath != "" {
		if raw, err := os.ReadFile(c.tempPath); err == nil {
			if milli, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64); err == nil {
				result.Temperature = milli / 1000
			}
		}
	}
	return result, nil
}

// IsAvailable reports whether a sysfs busy counter was found.
func (c *GPUCollector) IsAvailable() bool { return c.busyPath != "" }
