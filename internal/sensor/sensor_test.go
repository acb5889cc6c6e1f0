package sensor

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeCollector struct {
	name      string
	available bool
	result    interface{}
	err       error
}

func (f *fakeCollector) Name() string      { return f.name }
func (f *fakeCollector) IsAvailable() bool { return f.available }
func (f *fakeCollector) Collect(ctx context.Context) (interface{}, error) {
	return f.result, f.err
}

func TestRegistrySkipsUnavailable(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "a", available: true})
	r.Register(&fakeCollector{name: "b", available: false})

	if got := len(r.Collectors()); got != 1 {
		t.Fatalf("registered %d collectors, want 1", got)
	}
	if r.Collectors()[0].Name() != "a" {
		t.Errorf("kept %s", r.Collectors()[0].Name())
	}
}

func TestCollectAllOmitsFailures(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "cpu", available: true, result: CPUResult{Percent: 33}})
	r.Register(&fakeCollector{name: "gpu", available: true, err: errors.New("no device")})

	results := r.CollectAll(context.Background())
	if _, ok := results["gpu"]; ok {
		t.Error("failed collector produced a result")
	}
	cpu, ok := results["cpu"].(CPUResult)
	if !ok || cpu.Percent != 33 {
		t.Errorf("cpu result = %v", results["cpu"])
	}
}

func TestCaptureFoldsResults(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "cpu", available: true, result: CPUResult{Percent: 55}})
	r.Register(&fakeCollector{name: "memory", available: true, result: MemoryResult{Percent: 62}})
	r.Register(&fakeCollector{name: "gpu", available: true, result: GPUResult{Percent: 80, Temperature: 71}})
	r.Register(&fakeCollector{name: "process", available: true, result: ProcessResult{Names: []string{"cs2.exe"}}})

	p := NewProvider(r, zap.NewNop())
	snap, err := p.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if snap.CPUPercent != 55 || snap.RAMPercent != 62 || snap.GPUPercent != 80 {
		t.Errorf("snapshot = cpu %f ram %f gpu %f", snap.CPUPercent, snap.RAMPercent, snap.GPUPercent)
	}
	if snap.Temperatures["gpu"] != 71 {
		t.Errorf("gpu temperature = %f", snap.Temperatures["gpu"])
	}
	if len(snap.Processes) != 1 || snap.Processes[0] != "cs2.exe" {
		t.Errorf("processes = %v", snap.Processes)
	}
	// No activity reported yet.
	if snap.IsUserActive {
		t.Error("snapshot marked user-active without any activity signal")
	}
}

func TestCaptureDegradesOnCollectorFailure(t *testing.T) {
	r := NewRegistry(zap.NewNop())
	r.Register(&fakeCollector{name: "cpu", available: true, err: errors.New("proc unreadable")})
	r.Register(&fakeCollector{name: "memory", available: true, result: MemoryResult{Percent: 40}})

	p := NewProvider(r, zap.NewNop())
	snap, err := p.Capture(context.Background())
	if err != nil {
		t.Fatalf("capture must survive a collector failure: %v", err)
	}
	if snap.CPUPercent != 0 {
		t.Errorf("CPUPercent = %f, want zero for the failed collector", snap.CPUPercent)
	}
	if snap.RAMPercent != 40 {
		t.Errorf("RAMPercent = %f", snap.RAMPercent)
	}
}

func TestActivityFreshness(t *testing.T) {
	p := NewProvider(NewRegistry(zap.NewNop()), zap.NewNop())

	p.ReportActivity(ActivitySignal{
		ActiveWindow:  "Counter-Strike 2",
		ActiveProcess: "cs2.exe",
		Keyboard:      20,
		Mouse:         55,
	})
	snap, err := p.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !snap.IsUserActive {
		t.Error("fresh activity should mark the snapshot user-active")
	}
	if snap.ActiveProcess != "cs2.exe" {
		t.Errorf("ActiveProcess = %s", snap.ActiveProcess)
	}

	// The same signal past the staleness window no longer counts.
	p.ReportActivity(ActivitySignal{
		ActiveWindow: "Counter-Strike 2",
		Keyboard:     20,
		At:           time.Now().Add(-3 * time.Minute),
	})
	snap, err = p.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.IsUserActive {
		t.Error("stale activity should not mark the snapshot user-active")
	}
	// The window context itself is still reported.
	if snap.ActiveWindow == "" {
		t.Error("stale activity lost the window context")
	}
}

func TestActivityWithoutInput(t *testing.T) {
	p := NewProvider(NewRegistry(zap.NewNop()), zap.NewNop())

	p.ReportActivity(ActivitySignal{})
	snap, err := p.Capture(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.IsUserActive {
		t.Error("empty activity signal should not mark the snapshot user-active")
	}
}

func TestCaptureCancelled(t *testing.T) {
	p := NewProvider(NewRegistry(zap.NewNop()), zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Capture(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}
