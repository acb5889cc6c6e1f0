package agent

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/models"
)

// Registry holds the live task agents. New agent types register here
// instead of being special-cased anywhere by type string.
type Registry struct {
	mu     sync.RWMutex
	agents []TaskAgent
	byType map[models.AgentType]TaskAgent
	logger *zap.Logger
}

// NewRegistry creates an empty agent registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		byType: make(map[models.AgentType]TaskAgent),
		logger: logger,
	}
}

// Register adds an agent. One agent per type; duplicates are rejected.
func (r *Registry) Register(a TaskAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byType[a.Type()]; dup {
		return fmt.Errorf("agent type already registered: %s", a.Type())
	}
	r.agents = append(r.agents, a)
	r.byType[a.Type()] = a
	r.logger.Info("registered agent",
		zap.String("agent", a.Name()),
		zap.String("type", string(a.Type())))
	return nil
}

// All returns the agents in registration order.
func (r *Registry) All() []TaskAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TaskAgent, len(r.agents))
	copy(out, r.agents)
	return out
}

// Get returns the agent for a type.
func (r *Registry) Get(t models.AgentType) (TaskAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byType[t]
	return a, ok
}

// GetByID returns the agent with the given id.
func (r *Registry) GetByID(id string) (TaskAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.agents {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Statuses returns the control-plane view of every agent.
func (r *Registry) Statuses() []models.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.AgentStatus, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a.Status())
	}
	return out
}

// InitializeAll initializes every agent with the given snapshot. Agents
// that refuse are logged and left as they are.
func (r *Registry) InitializeAll(snap models.Snapshot) {
	for _, a := range r.All() {
		if err := a.Initialize(snap); err != nil {
			r.logger.Warn("agent initialization skipped",
				zap.String("agent", a.Name()),
				zap.Error(err))
		}
	}
}

// ShutdownAll shuts every agent down. Terminal.
func (r *Registry) ShutdownAll() {
	for _, a := range r.All() {
		a.Shutdown()
	}
	r.logger.Info("all agents shut down")
}
