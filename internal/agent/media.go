package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
)

var mediaApps = map[string]bool{
	"obs64.exe":      true,
	"obs.exe":        true,
	"vlc.exe":        true,
	"spotify.exe":    true,
	"streamlabs.exe": true,
	"mpv":            true,
}

// Media optimizes for streaming and playback: network QoS for the media
// path and enough GPU headroom for encoding.
type Media struct {
	base
}

// NewMedia creates the media agent.
func NewMedia(lp LearnParams, act actuator.Actuator, logger *zap.Logger) *Media {
	return &Media{
		base: newBase("agent-media", "Media Optimizer", models.AgentTypeMedia, lp, act, logger),
	}
}

// Reason implements TaskAgent.
func (m *Media) Reason(ctx context.Context, scenario string, snap models.Snapshot) (models.AgentRecommendation, error) {
	restore, err := m.beginTask(models.AgentStateActive)
	if err != nil {
		return models.AgentRecommendation{}, err
	}
	defer restore()

	if err := ctx.Err(); err != nil {
		return models.AgentRecommendation{}, err
	}

	active := ""
	for _, p := range snap.Processes {
		if mediaApps[p] {
			active = p
			break
		}
	}
	if active == "" && scenario != string(models.AgentTypeMedia) {
		return models.AgentRecommendation{
			ID:        uuid.New().String(),
			AgentID:   m.id,
			AgentType: m.agentType,
			Title:     "No media optimization",
			Reasoning: "no media application detected",
			CreatedAt: time.Now().UTC(),
		}, nil
	}

	actions := []models.RecommendedAction{
		{
			Name: "network_qos_streaming",
			Params: models.ActionParams{
				Type:   models.ChangeRegistry,
				Domain: "network",
				Key:    "qos_profile",
				Value:  "streaming",
			},
		},
		{
			Name: "pause_telemetry_relay",
			Params: models.ActionParams{
				Type:    models.ChangeService,
				Service: "telemetry-relay",
				Enabled: false,
			},
		},
	}

	conf := m.successRate("network_qos_streaming")
	if snap.NetworkPercent >= 40 {
		conf += 0.2
	}
	conf = clamp01(conf)

	return models.AgentRecommendation{
		ID:                  uuid.New().String(),
		AgentID:             m.id,
		AgentType:           m.agentType,
		Title:               "Prioritize media network path",
		Reasoning:           "media workload active; reserving upstream bandwidth and encoder headroom",
		Actions:             actions,
		Confidence:          conf,
		ExpectedImprovement: 4 + snap.NetworkPercent/10,
		TargetMetric:        "dropped_frames_pct",
		AutoApply:           conf >= 0.8,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

// GetResourceRequirements implements TaskAgent.
func (m *Media) GetResourceRequirements() models.AgentResourceRequirements {
	priority := 0.7
	if m.CurrentState() == models.AgentStatePaused {
		priority = 0
	}
	return models.AgentResourceRequirements{
		AgentType: m.agentType,
		Requests: map[models.ResourceType]float64{
			models.ResourceNetwork: 60,
			models.ResourceGPU:     30,
		},
		Priority:      priority,
		ConflictsWith: []models.AgentType{models.AgentTypeGaming},
	}
}
