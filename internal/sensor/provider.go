package sensor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/models"
)

// ActivitySignal is an externally reported user-presence reading. The
// desktop shell (or the focus endpoint) pushes these; the provider folds
// the most recent one into each snapshot.
type ActivitySignal struct {
	ActiveWindow  string
	ActiveProcess string
	Keyboard      float64
	Mouse         float64
	At            time.Time
}

// activityStaleAfter bounds how long a pushed activity signal keeps a
// snapshot marked user-active with no fresh input.
const activityStaleAfter = 2 * time.Minute

// Provider assembles snapshots from a collector registry plus the latest
// externally pushed activity signal.
type Provider struct {
	registry *Registry
	logger   *zap.Logger

	mu       sync.Mutex
	activity ActivitySignal
	hasAct   bool
}

// NewProvider creates a snapshot provider over the given registry.
func NewProvider(registry *Registry, logger *zap.Logger) *Provider {
	return &Provider{registry: registry, logger: logger}
}

// DefaultRegistry builds a registry with the standard host collectors.
func DefaultRegistry(topProcesses int, logger *zap.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(NewCPUCollector())
	r.Register(NewMemoryCollector())
	r.Register(NewDiskCollector())
	r.Register(NewNetworkCollector())
	r.Register(NewGPUCollector())
	r.Register(NewProcessCollector(topProcesses))
	return r
}

// ReportActivity records a user-presence reading for folding into the next
// snapshot. A zero At is stamped with the current time.
func (p *Provider) ReportActivity(sig ActivitySignal) {
	if sig.At.IsZero() {
		sig.At = time.Now()
	}
	p.mu.Lock()
	p.activity = sig
	p.hasAct = true
	p.mu.Unlock()
}

// Capture runs all collectors and folds their results, together with the
// latest activity signal, into a snapshot. Collector failures degrade the
// snapshot rather than failing the capture; the corresponding fields stay
// zero.
func (p *Provider) Capture(ctx context.Context) (models.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	results := p.registry.CollectAll(ctx)

	snap := models.Snapshot{
		Timestamp: time.Now(),
		Processes: []string{},
	}

	if r, ok := results["cpu"].(CPUResult); ok {
		snap.CPUPercent = r.Percent
	}
	if r, ok := results["memory"].(MemoryResult); ok {
		snap.RAMPercent = r.Percent
	}
	if r, ok := results["disk"].(DiskResult); ok {
		snap.DiskPercent = r.Percent
	}
	if r, ok := results["network"].(NetworkResult); ok {
		snap.NetworkPercent = r.Percent
	}
	if r, ok := results["process"].(ProcessResult); ok {
		snap.Processes = r.Names
	}
	if r, ok := results["gpu"].(GPUResult); ok {
		snap.GPUPercent = r.Percent
		if r.Temperature > 0 {
			if snap.Temperatures == nil {
				snap.Temperatures = make(map[string]float64, 1)
			}
			snap.Temperatures["gpu"] = r.Temperature
		}
	}

	p.mu.Lock()
	act, has := p.activity, p.hasAct
	p.mu.Unlock()

	if has {
		snap.ActiveWindow = act.ActiveWindow
		snap.ActiveProcess = act.ActiveProcess
		snap.KeyboardActivity = act.Keyboard
		snap.MouseActivity = act.Mouse
		fresh := time.Since(act.At) < activityStaleAfter
		snap.IsUserActive = fresh && (act.Keyboard > 0 || act.Mouse > 0 || act.ActiveWindow != "")
	}

	return snap, nil
}
