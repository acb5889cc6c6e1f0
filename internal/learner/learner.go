// Package learner folds explicit feedback into agent knowledge and keeps
// the knowledge durable across restarts.
package learner

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/agent"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/store"
)

// ErrUnknownAgent is returned for feedback addressed to no registered
// agent.
var ErrUnknownAgent = errors.New("unknown agent")

// Learner routes feedback records to their agent, persists the updated
// knowledge, and archives the consumed record.
type Learner struct {
	registry *agent.Registry
	store    *store.Store
	logger   *zap.Logger
}

// New creates a learner.
func New(registry *agent.Registry, st *store.Store, logger *zap.Logger) *Learner {
	return &Learner{registry: registry, store: st, logger: logger}
}

// Update consumes one feedback record: the agent's success rate for the
// action is adjusted by the moving-average rule, the knowledge is
// persisted, and the record is archived. Each record is consumed exactly
// once.
func (l *Learner) Update(fb models.AgentFeedback) error {
	a, ok := l.registry.GetByID(fb.AgentID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAgent, fb.AgentID)
	}

	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now().UTC()
	}

	if err := a.Learn(fb.Scenario, fb); err != nil {
		return fmt.Errorf("learn: %w", err)
	}

	if err := l.store.SaveKnowledge(a.Knowledge()); err != nil {
		return fmt.Errorf("persist knowledge: %w", err)
	}
	if err := l.store.ArchiveFeedback(fb); err != nil {
		return fmt.Errorf("archive feedback: %w", err)
	}

	l.logger.Info("feedback consumed",
		zap.String("agent", fb.AgentID),
		zap.String("action", fb.Action),
		zap.String("kind", string(fb.Kind)))
	return nil
}

// RestoreAll loads persisted knowledge into every registered agent.
// A missing record means a fresh agent; a corrupt record is fatal, the
// daemon must not run on a partially readable knowledge store.
func (l *Learner) RestoreAll() error {
	for _, a := range l.registry.All() {
		k, err := l.store.LoadKnowledge(a.ID())
		if err != nil {
			return err
		}
		if k == nil {
			continue
		}
		a.RestoreKnowledge(k)
		l.logger.Info("knowledge restored",
			zap.String("agent", a.ID()),
			zap.Int("actions", len(k.SuccessRates)))
	}
	return nil
}

// PersistAll writes every agent's knowledge out, used at shutdown.
func (l *Learner) PersistAll() {
	for _, a := range l.registry.All() {
		if err := l.store.SaveKnowledge(a.Knowledge()); err != nil {
			l.logger.Error("knowledge persist failed",
				zap.String("agent", a.ID()),
				zap.Error(err))
		}
	}
}
