package ledger

import (
	"errors"
	"math"
	"testing"

	"github.com/tunewise/tunewise/internal/models"
)

func TestReserveAll(t *testing.T) {
	l := New()

	err := l.ReserveAll(models.AgentTypeGaming, map[models.ResourceType]float64{
		models.ResourceGPU: 70,
		models.ResourceCPU: 50,
	})
	if err != nil {
		t.Fatalf("ReserveAll failed: %v", err)
	}
	if got := l.Committed(models.ResourceGPU); got != 70 {
		t.Errorf("gpu committed = %v, want 70", got)
	}

	// A second all-or-nothing ask that does not fit must change nothing.
	err = l.ReserveAll(models.AgentTypeMedia, map[models.ResourceType]float64{
		models.ResourceGPU: 40,
		models.ResourceCPU: 10,
	})
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("ReserveAll = %v, want ErrInsufficient", err)
	}
	if got := l.Committed(models.ResourceCPU); got != 50 {
		t.Errorf("cpu committed after failed reservation = %v, want 50", got)
	}
	if h := l.Holdings(models.AgentTypeMedia); len(h) != 0 {
		t.Errorf("failed reservation left holdings: %v", h)
	}
}

func TestReserveUpToProportional(t *testing.T) {
	l := New()

	if err := l.ReserveAll(models.AgentTypeGaming, map[models.ResourceType]float64{
		models.ResourceGPU: 80,
	}); err != nil {
		t.Fatal(err)
	}

	// 40 GPU requested, 20 available: factor 0.5 applies to every resource.
	granted, factor := l.ReserveUpTo(models.AgentTypeMedia, map[models.ResourceType]float64{
		models.ResourceGPU:     40,
		models.ResourceNetwork: 60,
	})
	if factor != 0.5 {
		t.Fatalf("factor = %v, want 0.5", factor)
	}
	if granted[models.ResourceGPU] != 20 {
		t.Errorf("gpu grant = %v, want 20", granted[models.ResourceGPU])
	}
	if granted[models.ResourceNetwork] != 30 {
		t.Errorf("network grant = %v, want 30", granted[models.ResourceNetwork])
	}
}

func TestReserveUpToNoHeadroom(t *testing.T) {
	l := New()

	if err := l.ReserveAll(models.AgentTypeGaming, map[models.ResourceType]float64{
		models.ResourceGPU: 100,
	}); err != nil {
		t.Fatal(err)
	}

	granted, factor := l.ReserveUpTo(models.AgentTypeMedia, map[models.ResourceType]float64{
		models.ResourceGPU: 10,
	})
	if factor != 0 || granted != nil {
		t.Errorf("ReserveUpTo with zero headroom = (%v, %v), want (nil, 0)", granted, factor)
	}
}

func TestCommittedNeverExceedsCap(t *testing.T) {
	l := New()

	// Pile on requests from every holder; the per-resource total must
	// stay at or below 100 throughout.
	holders := []models.AgentType{
		models.AgentTypeGaming, models.AgentTypeDevelopment, models.AgentTypeMedia,
	}
	for _, h := range holders {
		l.ReserveUpTo(h, map[models.ResourceType]float64{
			models.ResourceCPU: 60,
			models.ResourceRAM: 45,
		})
		for _, res := range models.AllResourceTypes {
			if c := l.Committed(res); c > 100+1e-9 {
				t.Fatalf("committed %s = %v, exceeds 100", res, c)
			}
		}
	}
}

func TestRelease(t *testing.T) {
	l := New()

	l.ReserveUpTo(models.AgentTypeGaming, map[models.ResourceType]float64{
		models.ResourceGPU: 70,
	})
	l.ReserveUpTo(models.AgentTypeMedia, map[models.ResourceType]float64{
		models.ResourceGPU: 30,
	})

	l.Release(models.AgentTypeGaming)
	if got := l.Committed(models.ResourceGPU); math.Abs(got-30) > 1e-9 {
		t.Errorf("gpu committed after release = %v, want 30", got)
	}
	if h := l.Holdings(models.AgentTypeGaming); len(h) != 0 {
		t.Errorf("released holder still has holdings: %v", h)
	}

	l.ReleaseAll()
	if got := l.Committed(models.ResourceGPU); got != 0 {
		t.Errorf("gpu committed after ReleaseAll = %v, want 0", got)
	}
}
