package sensor

import (
	"context"
	"sort"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessResult holds the enumerated process names, ordered by CPU share.
type ProcessResult struct {
	Names []string `json:"names"`
}

// ProcessCollector enumerates running process names, keeping the top N by
// CPU usage so the snapshot stays bounded on busy hosts.
type ProcessCollector struct {
	top int
}

// NewProcessCollector creates a process collector keeping the top N
// processes.
func NewProcessCollector(top int) *ProcessCollector {
	if top <= 0 {
		top = 40
	}
	return &ProcessCollector{top: top}
}

// Name returns the collector identifier.
func (c *ProcessCollector) Name() string { return "process" }

// Collect enumerates processes; individual unreadable processes are
// skipped, not errors.
func (c *ProcessCollector) Collect(ctx context.Context) (interface{}, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	type entry struct {
		name string
		cpu  float64
	}
	entries := make([]entry, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		pct, _ := p.CPUPercentWithContext(ctx)
		entries = append(entries, entry{name, pct})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].cpu > entries[j].cpu
	})
	if len(entries) > c.top {
		entries = entries[:c.top]
	}

	names := make([]string, 0, len(entries))
	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.name] {
			continue
		}
		seen[e.name] = true
		names = append(names, e.name)
	}
	return ProcessResult{Names: names}, nil
}

// IsAvailable returns true; process enumeration exists on every platform.
func (c *ProcessCollector) IsAvailable() bool { return true }
