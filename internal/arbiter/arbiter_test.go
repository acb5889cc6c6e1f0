package arbiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/ledger"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/orchestrator"
)

func contribution(agentType models.AgentType, confidence, priority float64,
	requests map[models.ResourceType]float64, actions ...models.RecommendedAction) orchestrator.Contribution {
	return orchestrator.Contribution{
		Recommendation: models.AgentRecommendation{
			ID:         string(agentType) + "-rec",
			AgentID:    "agent-" + string(agentType),
			AgentType:  agentType,
			Title:      string(agentType) + " optimization",
			Actions:    actions,
			Confidence: confidence,
		},
		Requirements: models.AgentResourceRequirements{
			AgentType: agentType,
			Requests:  requests,
			Priority:  priority,
		},
	}
}

func registryAction(name, domain, key, value string) models.RecommendedAction {
	return models.RecommendedAction{
		Name: name,
		Params: models.ActionParams{
			Type:   models.ChangeRegistry,
			Domain: domain,
			Key:    key,
			Value:  value,
		},
	}
}

func TestResolveConfidenceFloor(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeGaming, 0.2, 0.9, nil,
			registryAction("boost", "gpu", "priority_mode", "performance")),
		contribution(models.AgentTypeDevelopment, 0.6, 0.6, nil,
			registryAction("throughput", "cpu", "scheduler_profile", "throughput")),
	}, "test")

	require.Len(t, plan.Rejections, 1)
	assert.Equal(t, models.AgentTypeGaming, plan.Rejections[0].AgentType)
	assert.Equal(t, models.RejectBelowConfidence, plan.Rejections[0].Reason)

	require.Len(t, plan.Changes, 1)
	assert.Equal(t, "cpu", plan.Changes[0].Domain)
}

func TestResolvePriorityOrder(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeDevelopment, 0.9, 0.6, nil,
			registryAction("dev", "cpu", "profile", "throughput")),
		contribution(models.AgentTypeGaming, 0.5, 0.9, nil,
			registryAction("game", "gpu", "priority_mode", "performance")),
	}, "test")

	// Higher priority first even with lower confidence.
	require.Len(t, plan.Changes, 2)
	assert.Equal(t, "gpu", plan.Changes[0].Domain)
	assert.Equal(t, "cpu", plan.Changes[1].Domain)
}

func TestResolveNonNegotiableExhausted(t *testing.T) {
	led := ledger.New()
	require.NoError(t, led.ReserveAll(models.AgentTypeGaming,
		map[models.ResourceType]float64{models.ResourceGPU: 80}))

	a := New(0.3, led, zap.NewNop())
	plan := a.Resolve([]orchestrator.Contribution{
		func() orchestrator.Contribution {
			c := contribution(models.AgentTypeMedia, 0.8, 0.7,
				map[models.ResourceType]float64{models.ResourceGPU: 40},
				registryAction("qos", "network", "qos_profile", "streaming"))
			c.Requirements.NonNegotiable = true
			return c
		}(),
	}, "test")

	require.Len(t, plan.Rejections, 1)
	assert.Equal(t, models.RejectResourceExhausted, plan.Rejections[0].Reason)
	assert.Empty(t, plan.Changes)
	// The rejected ask must not hold capacity.
	assert.Empty(t, led.Holdings(models.AgentTypeMedia))
}

func TestResolveScaledDownStillAccepted(t *testing.T) {
	led := ledger.New()
	require.NoError(t, led.ReserveAll(models.AgentTypeGaming,
		map[models.ResourceType]float64{models.ResourceGPU: 80}))

	a := New(0.3, led, zap.NewNop())
	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeMedia, 0.8, 0.7,
			map[models.ResourceType]float64{models.ResourceGPU: 40},
			registryAction("qos", "network", "qos_profile", "streaming")),
	}, "test")

	assert.Empty(t, plan.Rejections)
	require.Len(t, plan.Changes, 1)
	assert.InDelta(t, 20, led.Holdings(models.AgentTypeMedia)[models.ResourceGPU], 1e-9)
}

func TestResolveMutualConflict(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	gaming := contribution(models.AgentTypeGaming, 0.8, 0.9, nil,
		registryAction("game", "gpu", "priority_mode", "performance"))
	gaming.Requirements.ConflictsWith = []models.AgentType{models.AgentTypeMedia}

	media := contribution(models.AgentTypeMedia, 0.9, 0.7, nil,
		registryAction("qos", "network", "qos_profile", "streaming"))
	media.Requirements.ConflictsWith = []models.AgentType{models.AgentTypeGaming}

	plan := a.Resolve([]orchestrator.Contribution{gaming, media}, "test")

	require.Len(t, plan.Rejections, 1)
	assert.Equal(t, models.AgentTypeMedia, plan.Rejections[0].AgentType)
	assert.Equal(t, models.RejectAgentConflict, plan.Rejections[0].Reason)
	require.Len(t, plan.Changes, 1)
	assert.Equal(t, "gpu", plan.Changes[0].Domain)
}

func TestResolveOneSidedConflictKeepsBoth(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	gaming := contribution(models.AgentTypeGaming, 0.8, 0.9, nil,
		registryAction("game", "gpu", "priority_mode", "performance"))
	gaming.Requirements.ConflictsWith = []models.AgentType{models.AgentTypeMedia}

	// Media does not list gaming back: no mutual conflict exists.
	media := contribution(models.AgentTypeMedia, 0.9, 0.7, nil,
		registryAction("qos", "network", "qos_profile", "streaming"))

	plan := a.Resolve([]orchestrator.Contribution{gaming, media}, "test")
	assert.Empty(t, plan.Rejections)
	assert.Len(t, plan.Changes, 2)
}

func TestResolveDeduplicatesIdenticalChanges(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeGaming, 0.8, 0.9, nil,
			registryAction("game", "gpu", "priority_mode", "performance")),
		contribution(models.AgentTypeMedia, 0.7, 0.7, nil,
			registryAction("media", "gpu", "priority_mode", "performance")),
	}, "test")

	require.Len(t, plan.Changes, 1)
	// The higher-priority source wins the deduplication.
	assert.Equal(t, "agent-gaming", plan.Changes[0].Source)
}

func TestResolveDropsMalformedAction(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	bad := models.RecommendedAction{
		Name:   "no-key",
		Params: models.ActionParams{Type: models.ChangeRegistry, Domain: "gpu"},
	}
	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeGaming, 0.8, 0.9, nil, bad,
			registryAction("ok", "gpu", "priority_mode", "performance")),
	}, "test")

	require.Len(t, plan.Changes, 1)
	assert.Equal(t, "priority_mode", plan.Changes[0].Key)
}

func TestResolveServiceAndResourceParams(t *testing.T) {
	a := New(0.3, ledger.New(), zap.NewNop())

	plan := a.Resolve([]orchestrator.Contribution{
		contribution(models.AgentTypeGaming, 0.8, 0.9, nil,
			models.RecommendedAction{
				Name:   "stop-indexer",
				Params: models.ActionParams{Type: models.ChangeService, Service: "search-indexer", Enabled: false},
			},
			models.RecommendedAction{
				Name:   "gpu-share",
				Params: models.ActionParams{Type: models.ChangeResource, Resource: models.ResourceGPU, Fraction: 0.7},
			}),
	}, "test")

	require.Len(t, plan.Changes, 2)
	assert.Equal(t, "service", plan.Changes[0].Domain)
	assert.Equal(t, "search-indexer", plan.Changes[0].Key)
	assert.Equal(t, "disabled", plan.Changes[0].Value)
	assert.Equal(t, "resource", plan.Changes[1].Domain)
	assert.Equal(t, "0.70", plan.Changes[1].Value)
}
