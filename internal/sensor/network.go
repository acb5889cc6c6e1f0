package sensor

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

// assumedLinkBytesPerSec approximates a gigabit link for turning byte
// deltas into a utilization percentage.
const assumedLinkBytesPerSec = 125_000_000

// NetworkResult holds collected network utilization.
type NetworkResult struct {
	Percent float64 `json:"percent"`
	RxBytes uint64  `json:"rx_bytes"`
	TxBytes uint64  `json:"tx_bytes"`
}

// NetworkCollector tracks counter deltas between collections to compute
// utilization. The first collection establishes a baseline and reports
// zero.
type NetworkCollector struct {
	lastRx      uint64
	lastTx      uint64
	lastAt      time.Time
	initialized bool
}

// NewNetworkCollector creates a network collector.
func NewNetworkCollector() *NetworkCollector { return &NetworkCollector{} }

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return "network" }

// Collect gathers RX/TX deltas since the previous collection.
func (c *NetworkCollector) Collect(ctx context.Context) (interface{}, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	if len(counters) == 0 {
		return NetworkResult{}, nil
	}

	now := time.Now()
	totalRx := counters[0].BytesRecv
	totalTx := counters[0].BytesSent

	result := NetworkResult{}
	if c.initialized {
		deltaRx := totalRx - c.lastRx
		deltaTx := totalTx - c.lastTx
		result.RxBytes = deltaRx
		result.TxBytes = deltaTx

		elapsed := now.Sub(c.lastAt).Seconds()
		if elapsed > 0 {
			rate := float64(deltaRx+deltaTx) / elapsed
			result.Percent = 100 * rate / assumedLinkBytesPerSec
			if result.Percent > 100 {
				result.Percent = 100
			}
		}
	}

	c.lastRx = totalRx
	c.lastTx = totalTx
	c.lastAt = now
	c.initialized = true
	return result, nil
}

// IsAvailable returns true; network counters exist on every platform.
func (c *NetworkCollector) IsAvailable() bool { return true }
