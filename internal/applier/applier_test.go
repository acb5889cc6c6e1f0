package applier

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/store"
)

func newTestApplier(t *testing.T, act actuator.Actuator) (*Applier, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(act, st, time.Second, zap.NewNop()), st
}

func registryChange(id, domain, key, value string) models.ConfigChange {
	return models.ConfigChange{
		ID:     id,
		Type:   models.ChangeRegistry,
		Domain: domain,
		Key:    key,
		Value:  value,
		Source: "test",
	}
}

// flakyActuator fails writes to one key and passes everything else
// through.
type flakyActuator struct {
	*actuator.DryRun
	failKey string
}

func (f *flakyActuator) WriteConfigValue(ctx context.Context, domain, key, value string) (string, error) {
	if key == f.failKey {
		return "", errors.New("write rejected")
	}
	return f.DryRun.WriteConfigValue(ctx, domain, key, value)
}

func TestApplyBestEffort(t *testing.T) {
	dry := actuator.NewDryRun(zap.NewNop())
	ap, _ := newTestApplier(t, &flakyActuator{DryRun: dry, failKey: "broken"})

	plan := models.ConfigurationPlan{
		Name:       "gaming",
		RecipeName: "gaming",
		Changes: []models.ConfigChange{
			registryChange("c1", "gpu", "priority_mode", "performance"),
			registryChange("c2", "gpu", "broken", "whatever"),
			registryChange("c3", "system", "power_profile", "maximum"),
		},
	}

	result := ap.Apply(context.Background(), plan)

	if result.Success {
		t.Error("result should not be successful with a failed change")
	}
	if len(result.Changes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(result.Changes))
	}
	if result.Changes[0].Status != models.ChangeApplied {
		t.Errorf("change 1 = %s, want applied", result.Changes[0].Status)
	}
	if result.Changes[1].Status != models.ChangeFailed {
		t.Errorf("change 2 = %s, want failed", result.Changes[1].Status)
	}
	// The failure must not stop the remaining change.
	if result.Changes[2].Status != models.ChangeApplied {
		t.Errorf("change 3 = %s, want applied", result.Changes[2].Status)
	}
	if dry.ConfigValue("system", "power_profile") != "maximum" {
		t.Error("change after the failure never reached the actuator")
	}
	if result.FailedCount() != 1 {
		t.Errorf("FailedCount = %d, want 1", result.FailedCount())
	}
}

func TestApplyIdempotent(t *testing.T) {
	dry := actuator.NewDryRun(zap.NewNop())
	ap, _ := newTestApplier(t, dry)

	plan := models.ConfigurationPlan{
		Name:       "gaming",
		RecipeName: "gaming",
		Changes: []models.ConfigChange{
			registryChange("c1", "gpu", "priority_mode", "performance"),
		},
	}

	first := ap.Apply(context.Background(), plan)
	if !first.Success {
		t.Fatalf("first apply failed: %s", first.Message)
	}

	second := ap.Apply(context.Background(), plan)
	if !second.Success {
		t.Fatalf("second apply failed: %s", second.Message)
	}
	if second.Changes[0].Status != models.ChangeSkipped {
		t.Errorf("re-apply status = %s, want skipped", second.Changes[0].Status)
	}
	if second.Changes[0].Reason != "already applied" {
		t.Errorf("re-apply reason = %q", second.Changes[0].Reason)
	}
}

func TestRevertRestoresPriorValues(t *testing.T) {
	dry := actuator.NewDryRun(zap.NewNop())
	ap, _ := newTestApplier(t, dry)
	ctx := context.Background()

	// Preexisting host state that the plan overwrites.
	if _, err := dry.WriteConfigValue(ctx, "gpu", "priority_mode", "balanced"); err != nil {
		t.Fatal(err)
	}

	plan := models.ConfigurationPlan{
		Name:       "gaming",
		RecipeName: "gaming",
		Changes: []models.ConfigChange{
			registryChange("c1", "gpu", "priority_mode", "performance"),
			{
				ID: "c2", Type: models.ChangeService,
				Domain: "service", Key: "search-indexer", Value: "disabled",
				Source: "gaming",
			},
		},
	}

	if result := ap.Apply(ctx, plan); !result.Success {
		t.Fatalf("apply failed: %s", result.Message)
	}
	if dry.ServiceEnabled("search-indexer") {
		t.Fatal("service should be disabled after apply")
	}

	revert := ap.Revert(ctx, "gaming")
	if !revert.Success {
		t.Fatalf("revert failed: %s", revert.Message)
	}
	if got := dry.ConfigValue("gpu", "priority_mode"); got != "balanced" {
		t.Errorf("priority_mode after revert = %s, want balanced", got)
	}
	if !dry.ServiceEnabled("search-indexer") {
		t.Error("service should be re-enabled after revert")
	}

	// Everything is reverted: a second revert has no work.
	again := ap.Revert(ctx, "gaming")
	if !again.Success || again.Message != "nothing to revert" {
		t.Errorf("second revert = %v %q", again.Success, again.Message)
	}
}

func TestRevertNeverApplied(t *testing.T) {
	ap, _ := newTestApplier(t, actuator.NewDryRun(zap.NewNop()))

	result := ap.Revert(context.Background(), "unknown-recipe")
	if !result.Success {
		t.Errorf("revert of never-applied recipe should succeed: %s", result.Message)
	}
	if len(result.Changes) != 0 {
		t.Errorf("got %d outcomes, want 0", len(result.Changes))
	}
}

func TestApplyCancelled(t *testing.T) {
	ap, _ := newTestApplier(t, actuator.NewDryRun(zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := models.ConfigurationPlan{
		Name:       "gaming",
		RecipeName: "gaming",
		Changes: []models.ConfigChange{
			registryChange("c1", "gpu", "priority_mode", "performance"),
		},
	}

	result := ap.Apply(ctx, plan)
	if result.Success {
		t.Error("cancelled apply should not report success")
	}
	if result.Changes[0].Status != models.ChangeSkipped {
		t.Errorf("status = %s, want skipped", result.Changes[0].Status)
	}
}

// gatedActuator blocks the first write until released, so two applies can
// be made to overlap deterministically.
type gatedActuator struct {
	*actuator.DryRun
	entered chan struct{}
	release chan struct{}
	once    bool
}

func (g *gatedActuator) WriteConfigValue(ctx context.Context, domain, key, value string) (string, error) {
	if !g.once {
		g.once = true
		close(g.entered)
		<-g.release
	}
	return g.DryRun.WriteConfigValue(ctx, domain, key, value)
}

func TestConcurrentAppliesCoalesce(t *testing.T) {
	gate := &gatedActuator{
		DryRun:  actuator.NewDryRun(zap.NewNop()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	ap, _ := newTestApplier(t, gate)

	plan := models.ConfigurationPlan{
		Name:       "gaming",
		RecipeName: "gaming",
		Changes: []models.ConfigChange{
			registryChange("c1", "gpu", "priority_mode", "performance"),
		},
	}

	results := make(chan models.ConfigurationResult, 2)
	go func() { results <- ap.Apply(context.Background(), plan) }()
	<-gate.entered
	go func() { results <- ap.Apply(context.Background(), plan) }()

	// Give the second caller time to join the in-flight run, then let
	// the actuator finish.
	time.Sleep(50 * time.Millisecond)
	close(gate.release)

	a, b := <-results, <-results
	if a.ID != b.ID {
		t.Errorf("concurrent applies produced distinct runs: %s vs %s", a.ID, b.ID)
	}
}

func TestPlanFromRecipeDeterministic(t *testing.T) {
	r := models.AutomationRecipe{
		Name: "gaming",
		RegistryChanges: map[string]string{
			"system/power_profile": "maximum",
			"gpu/priority_mode":    "performance",
		},
		ServiceStates: map[string]bool{
			"update-agent":   false,
			"search-indexer": false,
		},
		ResourceAlloc: map[models.ResourceType]float64{
			models.ResourceGPU: 0.7,
		},
		CompanionApps: []string{"overlay"},
	}

	plan := PlanFromRecipe(r)
	if plan.RecipeName != "gaming" {
		t.Errorf("RecipeName = %s", plan.RecipeName)
	}

	wantKeys := []string{"priority_mode", "power_profile", "search-indexer", "update-agent", "gpu", "overlay"}
	if len(plan.Changes) != len(wantKeys) {
		t.Fatalf("got %d changes, want %d", len(plan.Changes), len(wantKeys))
	}
	for i, key := range wantKeys {
		if plan.Changes[i].Key != key {
			t.Errorf("change %d key = %s, want %s", i, plan.Changes[i].Key, key)
		}
	}
	if plan.Changes[4].Value != "0.70" {
		t.Errorf("resource value = %s, want 0.70", plan.Changes[4].Value)
	}

	// Same recipe, same order every time.
	second := PlanFromRecipe(r)
	for i := range plan.Changes {
		if plan.Changes[i].Key != second.Changes[i].Key {
			t.Fatalf("plan order is not deterministic at %d", i)
		}
	}
}
