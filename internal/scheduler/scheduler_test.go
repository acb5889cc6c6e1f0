package scheduler

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/orchestrator"
)

func TestIntervalFollowsFocus(t *testing.T) {
	cfg := &Config{
		ActiveInterval:     2 * time.Second,
		BackgroundInterval: 45 * time.Second,
	}
	sch := New(nil, nil, nil, nil, nil, nil, nil, nil, cfg, zap.NewNop())

	if got := sch.interval(); got != 2*time.Second {
		t.Errorf("focused interval = %v", got)
	}
	sch.SetFocus(false)
	if got := sch.interval(); got != 45*time.Second {
		t.Errorf("unfocused interval = %v", got)
	}
	sch.SetFocus(true)
	if got := sch.interval(); got != 2*time.Second {
		t.Errorf("refocused interval = %v", got)
	}
}

func TestNewDefaultsConfig(t *testing.T) {
	sch := New(nil, nil, nil, nil, nil, nil, nil, nil, nil, zap.NewNop())
	if sch.config.ActiveInterval != 5*time.Second {
		t.Errorf("ActiveInterval = %v", sch.config.ActiveInterval)
	}
	if sch.config.BackgroundInterval < sch.config.ActiveInterval {
		t.Error("background interval shorter than active")
	}
}

func TestOnlyAutoApply(t *testing.T) {
	contributions := []orchestrator.Contribution{
		{Recommendation: models.AgentRecommendation{AgentID: "agent-gaming", AutoApply: true}},
		{Recommendation: models.AgentRecommendation{AgentID: "agent-media", AutoApply: false}},
	}
	plan := models.ConfigurationPlan{
		Name: "round-1",
		Changes: []models.ConfigChange{
			{ID: "c1", Source: "agent-gaming"},
			{ID: "c2", Source: "agent-media"},
			{ID: "c3", Source: "agent-gaming"},
		},
	}

	auto := onlyAutoApply(plan, contributions)
	if len(auto.Changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(auto.Changes))
	}
	for _, ch := range auto.Changes {
		if ch.Source != "agent-gaming" {
			t.Errorf("change %s from %s survived the filter", ch.ID, ch.Source)
		}
	}

	// The original plan is left alone for the audit record.
	if len(plan.Changes) != 3 {
		t.Errorf("filter mutated the input plan: %d changes", len(plan.Changes))
	}
}

func TestAppliedCount(t *testing.T) {
	result := models.ConfigurationResult{
		Changes: []models.ChangeOutcome{
			{Status: models.ChangeApplied},
			{Status: models.ChangeSkipped},
			{Status: models.ChangeFailed},
			{Status: models.ChangeApplied},
		},
	}
	if got := appliedCount(result); got != 2 {
		t.Errorf("appliedCount = %d, want 2", got)
	}
}

func TestStats(t *testing.T) {
	sch := New(nil, nil, nil, nil, nil, nil, nil, nil, nil, zap.NewNop())
	sch.SetFocus(false)

	stats := sch.Stats()
	if stats["focused"] != false {
		t.Errorf("focused = %v", stats["focused"])
	}
	if stats["ticks"] != int64(0) {
		t.Errorf("ticks = %v", stats["ticks"])
	}
}
