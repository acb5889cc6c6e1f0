package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
)

var devTools = map[string]bool{
	"code.exe":    true,
	"goland.exe":  true,
	"idea64.exe":  true,
	"devenv.exe":  true,
	"rider64.exe": true,
	"go":          true,
	"gcc":         true,
	"cargo":       true,
	"make":        true,
	"node":        true,
}

// Development optimizes for compile-heavy workloads: CPU scheduling tuned
// for throughput and noisy background services held off.
type Development struct {
	base
}

// NewDevelopment creates the development agent.
func NewDevelopment(lp LearnParams, act actuator.Actuator, logger *zap.Logger) *Development {
	return &Development{
		base: newBase("agent-development", "Development Optimizer", models.AgentTypeDevelopment, lp, act, logger),
	}
}

// Reason implements TaskAgent.
func (d *Development) Reason(ctx context.Context, scenario string, snap models.Snapshot) (models.AgentRecommendation, error) {
	restore, err := d.beginTask(models.AgentStateActive)
	if err != nil {
		return models.AgentRecommendation{}, err
	}
	defer restore()

	if err := ctx.Err(); err != nil {
		return models.AgentRecommendation{}, err
	}

	toolCount := 0
	for _, p := range snap.Processes {
		if devTools[p] {
			toolCount++
		}
	}
	if toolCount == 0 && scenario != string(models.AgentTypeDevelopment) {
		return models.AgentRecommendation{
			ID:        uuid.New().String(),
			AgentID:   d.id,
			AgentType: d.agentType,
			Title:     "No development optimization",
			Reasoning: "no development tooling detected",
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	actions := []models.RecommendedAction{
		{
			Name: "cpu_throughput_profile",
			Params: models.ActionParams{
				Type:   models.ChangeRegistry,
				Domain: "cpu",
				Key:    "scheduler_profile",
				Value:  "throughput",
			},
		},
		{
			Name: "defer_update_agent",
			Params: models.ActionParams{
				Type:    models.ChangeService,
				Service: "update-agent",
				Enabled: false,
			},
		},
	}

	conf := d.successRate("cpu_throughput_profile")
	if snap.CPUPercent >= 60 {
		conf += 0.2
	}
	if toolCount >= 2 {
		conf += 0.1
	}
	conf = clamp01(conf)

	return models.AgentRecommendation{
		ID:                  uuid.New().String(),
		AgentID:             d.id,
		AgentType:           d.agentType,
		Title:               "Tune CPU scheduling for builds",
		Reasoning:           "development tooling active; favoring sustained throughput over interactive latency",
		Actions:             actions,
		Confidence:          conf,
		ExpectedImprovement: 5 + snap.CPUPercent/12,
		TargetMetric:        "build_duration_s",
		AutoApply:           conf >= 0.8,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// GetResourceRequirements implements TaskAgent.
func (d *Development) GetResourceRequirements() models.AgentResourceRequirements {
	priority := 0.6
	if d.CurrentState() == models.AgentStatePaused {
		priority = 0
	}
	return models.AgentResourceRequirements{
		AgentType: d.agentType,
		Requests: map[models.ResourceType]float64{
			models.ResourceCPU:     60,
			models.ResourceRAM:     50,
			models.ResourceStorage: 40,
		},
		Priority: priority,
	}
}
