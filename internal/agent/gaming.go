package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
)

// knownGames maps game process names the gaming agent recognizes.
var knownGames = map[string]bool{
	"valorant.exe":     true,
	"cs2.exe":          true,
	"csgo.exe":         true,
	"fortnite.exe":     true,
	"league.exe":       true,
	"dota2.exe":        true,
	"eldenring.exe":    true,
	"overwatch.exe":    true,
	"rocketleague.exe": true,
}

// Gaming is the optimization agent for the gaming domain. It boosts GPU
// scheduling and silences background services while a game is running.
type Gaming struct {
	base
}

// NewGaming creates the gaming agent.
func NewGaming(lp LearnParams, act actuator.Actuator, logger *zap.Logger) *Gaming {
	return &Gaming{
		base: newBase("agent-gaming", "Gaming Optimizer", models.AgentTypeGaming, lp, act, logger),
	}
}

// Reason implements TaskAgent. It is pure: the snapshot is inspected, the
// knowledge store consulted, and a recommendation produced; nothing is
// written.
func (g *Gaming) Reason(ctx context.Context, scenario string, snap models.Snapshot) (models.AgentRecommendation, error) {
	restore, err := g.beginTask(models.AgentStateActive)
	if err != nil {
		return models.AgentRecommendation{}, err
	}
	defer restore()

	if err := ctx.Err(); err != nil {
		return models.AgentRecommendation{}, err
	}

	game := g.detectGame(snap)
	if game == "" && scenario != string(models.AgentTypeGaming) {
		return g.noRecommendation("no game process detected"), nil
	}

	actions := []models.RecommendedAction{
		{
			Name: "gpu_priority_boost",
			Params: models.ActionParams{
				Type:   models.ChangeRegistry,
				Domain: "gpu",
				Key:    "priority_mode",
				Value:  "performance",
			},
		},
		{
			Name: "disable_background_indexing",
			Params: models.ActionParams{
				Type:    models.ChangeService,
				Service: "search-indexer",
				Enabled: false,
			},
		},
		{
			Name: "power_profile_max",
			Params: models.ActionParams{
				Type:   models.ChangeRegistry,
				Domain: "power",
				Key:    "profile",
				Value:  "maximum",
			},
		},
	}

	conf := g.successRate("gpu_priority_boost")
	if snap.GPUPercent >= 50 {
		conf += 0.2
	}
	if snap.IsUserActive {
		conf += 0.1
	}
	conf = clamp01(conf)

	title := "Boost GPU scheduling for " + game
	if game == "" {
		title = "Boost GPU scheduling for gaming workload"
	}

	return models.AgentRecommendation{
		ID:                  uuid.New().String(),
		AgentID:             g.id,
		AgentType:           g.agentType,
		Title:               title,
		Reasoning:           "game process running with elevated GPU load; prioritizing frame delivery over background work",
		Actions:             actions,
		Confidence:          conf,
		ExpectedImprovement: 8 + snap.GPUPercent/10,
		TargetMetric:        "frame_time_ms",
		AutoApply:           conf >= 0.75,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (g *Gaming) detectGame(snap models.Snapshot) string {
	if knownGames[snap.ActiveProcess] {
		return snap.ActiveProcess
	}
	for _, p := range snap.Processes {
		if knownGames[p] {
			return p
		}
	}
	return ""
}

// GetResourceRequirements implements TaskAgent.
func (g *Gaming) GetResourceRequirements() models.AgentResourceRequirements {
	priority := 0.9
	if g.CurrentState() == models.AgentStatePaused {
		priority = 0
	}
	return models.AgentResourceRequirements{
		AgentType: g.agentType,
		Requests: map[models.ResourceType]float64{
			models.ResourceGPU: 70,
			models.ResourceCPU: 50,
			models.ResourceRAM: 40,
		},
		Priority:      priority,
		ConflictsWith: []models.AgentType{models.AgentTypeMedia},
	}
}

// noRecommendation is the confidence-zero answer the orchestrator treats
// as "nothing applicable this round".
func (g *Gaming) noRecommendation(why string) models.AgentRecommendation {
	return models.AgentRecommendation{
		ID:        uuid.New().String(),
		AgentID:   g.id,
		AgentType: g.agentType,
		Title:     "No gaming optimization",
		Reasoning: why,
		CreatedAt: time.Now().UTC(),
	}
}
