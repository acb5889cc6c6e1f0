// Package agent implements the task agents: one per optimization domain,
// each owning a lifecycle state machine and a knowledge store. Agents
// register into the orchestrator; nothing dispatches on type strings.
package agent

import (
	"context"
	"errors"

	"github.com/tunewise/tunewise/internal/models"
)

// Sentinel errors for agent lifecycle violations.
var (
	// ErrAgentNotReady is returned when a capability is invoked while the
	// agent is not in a runnable state. The caller skips the agent for the
	// round; this is not an agent fault.
	ErrAgentNotReady = errors.New("agent not ready")

	// ErrAgentShutdown is returned for any call after Shutdown.
	ErrAgentShutdown = errors.New("agent shut down")

	// ErrIllegalTransition is returned when a lifecycle call is not valid
	// from the current state.
	ErrIllegalTransition = errors.New("illegal agent state transition")
)

// TaskAgent is the capability set every optimization agent implements:
// reasoning, arbitrated action execution, and feedback learning, on top of
// a lifecycle state machine the agent transitions internally.
type TaskAgent interface {
	ID() string
	Name() string
	Type() models.AgentType
	CurrentState() models.AgentState

	// Confidence is the agent's current overall confidence, derived from
	// learned success rates.
	Confidence() float64

	// Initialize moves the agent from uninitialized (or error) to ready.
	Initialize(snap models.Snapshot) error

	// Reason evaluates the snapshot for the given scenario and returns a
	// recommendation. It is pure: no system state is mutated. A
	// recommendation with confidence 0 means "nothing applicable".
	Reason(ctx context.Context, scenario string, snap models.Snapshot) (models.AgentRecommendation, error)

	// ExecuteAction performs a side-effecting action. Only the applier
	// flow calls this, after arbitration approval.
	ExecuteAction(ctx context.Context, name string, params models.ActionParams) (models.AgentActionResult, error)

	// Learn folds feedback for a past action into the knowledge store via
	// a moving-average update. Prior patterns are reweighted, never
	// discarded.
	Learn(scenario string, fb models.AgentFeedback) error

	// GetResourceRequirements is queried once per reasoning round, before
	// arbitration.
	GetResourceRequirements() models.AgentResourceRequirements

	// Pause lowers the agent's effective resource priority to zero and
	// removes it from reasoning rounds until Resume.
	Pause() error
	Resume() error

	// Shutdown is terminal; no further calls are accepted.
	Shutdown()

	// Knowledge returns a copy of the agent's knowledge for persistence.
	Knowledge() *models.AgentKnowledge

	// RestoreKnowledge merges persisted knowledge into the agent.
	RestoreKnowledge(k *models.AgentKnowledge)

	// Status is a read-only view for the control plane.
	Status() models.AgentStatus
}
