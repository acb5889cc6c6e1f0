// Package controlplane provides the HTTP API and service layer for the
// daemon.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/applier"
	"github.com/tunewise/tunewise/internal/catalog"
	"github.com/tunewise/tunewise/internal/learner"
	"github.com/tunewise/tunewise/internal/metrics"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/scheduler"
	"github.com/tunewise/tunewise/internal/sensor"
	"github.com/tunewise/tunewise/internal/store"
)

// Service provides the control plane business logic.
type Service struct {
	store     *store.Store
	catalog   *catalog.Catalog
	applier   *applier.Applier
	learner   *learner.Learner
	scheduler *scheduler.Scheduler
	provider  *sensor.Provider
	metrics   *metrics.Metrics
	logger    *zap.Logger

	started time.Time
}

// NewService creates a new control plane service.
func NewService(st *store.Store, cat *catalog.Catalog, ap *applier.Applier,
	ln *learner.Learner, sch *scheduler.Scheduler, prov *sensor.Provider,
	m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:     st,
		catalog:   cat,
		applier:   ap,
		learner:   ln,
		scheduler: sch,
		provider:  prov,
		metrics:   m,
		logger:    logger,
		started:   time.Now(),
	}
}

// StatusReport summarizes the daemon for the status endpoint.
type StatusReport struct {
	Uptime        string                 `json:"uptime"`
	ActiveProfile string                 `json:"active_profile"`
	Loop          map[string]interface{} `json:"loop"`
	Snapshot      models.Snapshot        `json:"snapshot"`
	Agents        []models.AgentStatus   `json:"agents"`
}

// Status reports loop statistics, the latest snapshot and agent states.
func (s *Service) Status() StatusReport {
	return StatusReport{
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		ActiveProfile: s.scheduler.ActiveProfile(),
		Loop:          s.scheduler.Stats(),
		Snapshot:      s.scheduler.LatestSnapshot(),
		Agents:        s.agents(),
	}
}

func (s *Service) agents() []models.AgentStatus {
	return s.scheduler.AgentStatuses()
}

// Agents returns the status of every registered agent.
func (s *Service) Agents() []models.AgentStatus {
	return s.agents()
}

// Recommendations returns the output of the most recent reasoning round.
func (s *Service) Recommendations() []models.AgentRecommendation {
	return s.scheduler.LatestRecommendations()
}

// Results returns recent apply and revert results, newest first.
func (s *Service) Results(limit int) ([]models.ConfigurationResult, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.ListResults(limit)
}

// Recipes returns the catalog contents in registration order.
func (s *Service) Recipes() []models.AutomationRecipe {
	return s.catalog.Recipes()
}

// Recipe returns one recipe by name.
func (s *Service) Recipe(name string) (models.AutomationRecipe, error) {
	r, ok := s.catalog.Get(name)
	if !ok {
		return models.AutomationRecipe{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}
	return r, nil
}

// ApplyRecipe applies a catalog recipe on demand, bypassing trigger
// matching.
func (s *Service) ApplyRecipe(ctx context.Context, name string) (models.ConfigurationResult, error) {
	r, ok := s.catalog.Get(name)
	if !ok {
		return models.ConfigurationResult{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}

	result := s.applier.Apply(ctx, applier.PlanFromRecipe(r))
	s.metrics.RecordPlan(appliedCount(result), result.FailedCount())
	s.logger.Info("recipe applied on demand",
		zap.String("recipe", name),
		zap.Bool("success", result.Success))
	return result, nil
}

// RevertRecipe undoes the still-applied changes of a recipe. Reverting a
// recipe with no applied changes succeeds and does nothing.
func (s *Service) RevertRecipe(ctx context.Context, name string) (models.ConfigurationResult, error) {
	if _, ok := s.catalog.Get(name); !ok {
		return models.ConfigurationResult{}, fmt.Errorf("%w: %s", ErrRecipeNotFound, name)
	}

	result := s.applier.Revert(ctx, name)
	s.metrics.RecordRevert()
	s.logger.Info("recipe reverted on demand",
		zap.String("recipe", name),
		zap.Bool("success", result.Success))
	return result, nil
}

// SubmitFeedback routes user feedback to the named agent's learning pass.
func (s *Service) SubmitFeedback(fb models.AgentFeedback) error {
	if fb.AgentID == "" || fb.Action == "" {
		return fmt.Errorf("%w: agent_id and action are required", ErrInvalidRequest)
	}
	switch fb.Kind {
	case models.FeedbackSuccess, models.FeedbackPartialSuccess,
		models.FeedbackFailure, models.FeedbackUserRejected:
	default:
		return fmt.Errorf("%w: unknown feedback kind %q", ErrInvalidRequest, fb.Kind)
	}

	if err := s.learner.Update(fb); err != nil {
		if errors.Is(err, learner.ErrUnknownAgent) {
			return fmt.Errorf("%w: %s", ErrAgentNotFound, fb.AgentID)
		}
		return err
	}
	s.metrics.RecordFeedback(string(fb.Kind))
	return nil
}

// ReportActivity records a user-presence reading and adjusts the loop
// cadence.
func (s *Service) ReportActivity(sig sensor.ActivitySignal, focused bool) {
	s.provider.ReportActivity(sig)
	s.scheduler.SetFocus(focused)
}

func appliedCount(r models.ConfigurationResult) int {
	n := 0
	for _, c := range r.Changes {
		if c.Status == models.ChangeApplied {
			n++
		}
	}
	return n
}
