package agent

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
)

// LearnParams are the moving-average parameters shared by all agents.
type LearnParams struct {
	// Alpha is the EMA smoothing factor.
	Alpha float64
	// Delta is the base signal magnitude per feedback kind.
	Delta float64
}

// DefaultLearnParams matches the daemon's default learning configuration.
func DefaultLearnParams() LearnParams {
	return LearnParams{Alpha: 0.2, Delta: 1.0}
}

// base carries the state machine and knowledge store shared by every
// concrete agent. Concrete agents embed it and supply Reason,
// ExecuteAction, and GetResourceRequirements.
type base struct {
	id        string
	name      string
	agentType models.AgentType
	logger    *zap.Logger
	learn     LearnParams
	act       actuator.Actuator

	mu        sync.Mutex
	state     models.AgentState
	knowledge *models.AgentKnowledge
	timeouts  int // consecutive reasoning timeouts, tracked by the orchestrator
}

func newBase(id, name string, t models.AgentType, lp LearnParams, act actuator.Actuator, logger *zap.Logger) base {
	return base{
		id:        id,
		name:      name,
		agentType: t,
		logger:    logger,
		learn:     lp,
		act:       act,
		state:     models.AgentStateUninitialized,
		knowledge: models.NewAgentKnowledge(id),
	}
}

func (b *base) ID() string             { return b.id }
func (b *base) Name() string           { return b.name }
func (b *base) Type() models.AgentType { return b.agentType }

func (b *base) CurrentState() models.AgentState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Initialize transitions Uninitialized (or Error, as recovery) to Ready.
func (b *base) Initialize(snap models.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case models.AgentStateShutdown:
		return ErrAgentShutdown
	case models.AgentStateUninitialized, models.AgentStateError:
		b.state = models.AgentStateReady
		b.timeouts = 0
		b.logger.Info("agent initialized",
			zap.String("agent", b.name),
			zap.Time("snapshot", snap.Timestamp))
		return nil
	default:
		return fmt.Errorf("%w: initialize from %s", ErrIllegalTransition, b.state)
	}
}

// beginTask moves a runnable agent into the given working state and
// returns a restore func that parks it in monitoring afterwards. Callers
// that fail to start return the error from beginTask untouched.
func (b *base) beginTask(working models.AgentState) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case b.state == models.AgentStateShutdown:
		return nil, ErrAgentShutdown
	case !b.state.Runnable():
		return nil, fmt.Errorf("%w: state %s", ErrAgentNotReady, b.state)
	}

	b.state = working
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// A fault may have moved the agent to error in the meantime; only
		// a still-working agent parks back to monitoring.
		if b.state == working {
			b.state = models.AgentStateMonitoring
		}
	}, nil
}

// markError records an unrecoverable fault. Recovery requires Initialize.
func (b *base) markError(reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == models.AgentStateShutdown {
		return
	}
	b.state = models.AgentStateError
	b.logger.Warn("agent entered error state",
		zap.String("agent", b.name),
		zap.String("reason", reason))
}

// Pause parks the agent; its resource priority is treated as zero and it
// is skipped in reasoning rounds.
func (b *base) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case models.AgentStateShutdown:
		return ErrAgentShutdown
	case models.AgentStateUninitialized:
		return fmt.Errorf("%w: pause from %s", ErrIllegalTransition, b.state)
	}
	b.state = models.AgentStatePaused
	return nil
}

// Resume returns a paused agent to ready.
func (b *base) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == models.AgentStateShutdown {
		return ErrAgentShutdown
	}
	if b.state != models.AgentStatePaused {
		return fmt.Errorf("%w: resume from %s", ErrIllegalTransition, b.state)
	}
	b.state = models.AgentStateReady
	return nil
}

// Shutdown is terminal.
func (b *base) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = models.AgentStateShutdown
}

// Confidence derives the agent's overall confidence from its learned
// success rates. With no samples the agent starts at a neutral 0.5.
func (b *base) Confidence() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.confidenceLocked()
}

func (b *base) confidenceLocked() float64 {
	if len(b.knowledge.SuccessRates) == 0 {
		return 0.5
	}
	sum := 0.0
	for _, r := range b.knowledge.SuccessRates {
		sum += r
	}
	return sum / float64(len(b.knowledge.SuccessRates))
}

// successRate returns the learned rate for one action, defaulting to the
// neutral 0.5 for actions never tried.
func (b *base) successRate(action string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.knowledge.SuccessRates[action]; ok {
		return r
	}
	return 0.5
}

// Learn applies the moving-average success-rate update for the action the
// feedback refers to: signal = clamp(old + delta(kind)), then
// new = old*(1-alpha) + signal*alpha, bounded to [0,1].
func (b *base) Learn(scenario string, fb models.AgentFeedback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == models.AgentStateShutdown {
		return ErrAgentShutdown
	}
	if fb.Action == "" {
		return fmt.Errorf("feedback for %s has no action", b.name)
	}

	old, ok := b.knowledge.SuccessRates[fb.Action]
	if !ok {
		old = 0.5
	}

	signal := clamp01(old + b.feedbackDelta(fb.Kind))
	updated := clamp01(old*(1-b.learn.Alpha) + signal*b.learn.Alpha)

	b.knowledge.SuccessRates[fb.Action] = updated
	b.knowledge.SampleCounts[fb.Action]++
	b.knowledge.UpdatedAt = time.Now().UTC()

	b.logger.Debug("success rate updated",
		zap.String("agent", b.name),
		zap.String("action", fb.Action),
		zap.String("kind", string(fb.Kind)),
		zap.Float64("old", old),
		zap.Float64("new", updated),
		zap.String("scenario", scenario))
	return nil
}

func (b *base) feedbackDelta(kind models.FeedbackKind) float64 {
	switch kind {
	case models.FeedbackSuccess:
		return b.learn.Delta
	case models.FeedbackPartialSuccess:
		return b.learn.Delta / 2
	case models.FeedbackFailure, models.FeedbackUserRejected:
		return -b.learn.Delta
	default:
		return 0
	}
}

// Knowledge returns a deep copy for persistence.
func (b *base) Knowledge() *models.AgentKnowledge {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := models.NewAgentKnowledge(b.id)
	for k, v := range b.knowledge.SuccessRates {
		out.SuccessRates[k] = v
	}
	for k, v := range b.knowledge.SampleCounts {
		out.SampleCounts[k] = v
	}
	for k, v := range b.knowledge.Preferences {
		out.Preferences[k] = v
	}
	out.UpdatedAt = b.knowledge.UpdatedAt
	return out
}

// RestoreKnowledge merges a persisted record into the live store.
func (b *base) RestoreKnowledge(k *models.AgentKnowledge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.knowledge.Merge(k)
}

// Status returns the control-plane view of the agent.
func (b *base) Status() models.AgentStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	return models.AgentStatus{
		ID:                  b.id,
		Name:                b.name,
		Type:                b.agentType,
		State:               b.state,
		Confidence:          b.confidenceLocked(),
		ConsecutiveTimeouts: b.timeouts,
	}
}

// NoteTimeout increments the consecutive-timeout counter and returns the
// new count. The orchestrator escalates to the error state when the count
// crosses its threshold.
func (b *base) NoteTimeout() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeouts++
	return b.timeouts
}

// ClearTimeouts resets the consecutive-timeout counter after a successful
// reasoning call.
func (b *base) ClearTimeouts() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeouts = 0
}

// ForceError is the orchestrator's escalation path after repeated
// timeouts.
func (b *base) ForceError(reason string) {
	b.markError(reason)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
