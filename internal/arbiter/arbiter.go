// Package arbiter resolves the competing recommendations and resource
// asks of one reasoning round into a single ordered configuration plan.
package arbiter

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/ledger"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/orchestrator"
)

// Arbiter applies the arbitration algorithm: confidence floor, priority
// ordering, ledger reservation with proportional scale-down, mutual
// conflict resolution, and change deduplication.
type Arbiter struct {
	minConfidence float64
	ledger        *ledger.Ledger
	logger        *zap.Logger
}

// New creates an arbiter over the shared resource ledger.
func New(minConfidence float64, l *ledger.Ledger, logger *zap.Logger) *Arbiter {
	return &Arbiter{
		minConfidence: minConfidence,
		ledger:        l,
		logger:        logger,
	}
}

// Resolve turns a round's contributions into one plan. Rejected
// contributions are carried on the plan's rejection list, never silently
// dropped. Reservations for accepted contributions are committed to the
// ledger; the caller releases them when the optimization ends.
func (a *Arbiter) Resolve(contributions []orchestrator.Contribution, planName string) models.ConfigurationPlan {
	plan := models.ConfigurationPlan{
		Name:      planName,
		CreatedAt: time.Now().UTC(),
	}

	// 1. Confidence floor.
	var qualified []orchestrator.Contribution
	for _, c := range contributions {
		if c.Recommendation.Confidence < a.minConfidence {
			plan.Rejections = append(plan.Rejections, models.Rejection{
				AgentType: c.Requirements.AgentType,
				Reason:    models.RejectBelowConfidence,
				Detail:    fmt.Sprintf("confidence %.2f below %.2f", c.Recommendation.Confidence, a.minConfidence),
			})
			continue
		}
		qualified = append(qualified, c)
	}

	// 2. Priority order: priority desc, then confidence desc. The input
	// arrives in a deterministic order, so stable sort fixes all ties.
	sort.SliceStable(qualified, func(i, j int) bool {
		if qualified[i].Requirements.Priority != qualified[j].Requirements.Priority {
			return qualified[i].Requirements.Priority > qualified[j].Requirements.Priority
		}
		return qualified[i].Recommendation.Confidence > qualified[j].Recommendation.Confidence
	})

	// 3. Mutual conflicts: when two contributions list each other, only
	// the higher-priority one survives. Resolved before reservation so a
	// doomed contribution never holds ledger capacity.
	qualified = a.resolveConflicts(qualified, &plan)

	// 4. Walk in priority order, reserving against the ledger.
	var accepted []orchestrator.Contribution
	for _, c := range qualified {
		if c.Requirements.NonNegotiable {
			if err := a.ledger.ReserveAll(c.Requirements.AgentType, c.Requirements.Requests); err != nil {
				plan.Rejections = append(plan.Rejections, models.Rejection{
					AgentType: c.Requirements.AgentType,
					Reason:    models.RejectResourceExhausted,
					Detail:    err.Error(),
				})
				a.logger.Info("non-negotiable requirement rejected",
					zap.String("agent", string(c.Requirements.AgentType)),
					zap.Error(err))
				continue
			}
			accepted = append(accepted, c)
			continue
		}

		granted, factor := a.ledger.ReserveUpTo(c.Requirements.AgentType, c.Requirements.Requests)
		if factor == 0 {
			plan.Rejections = append(plan.Rejections, models.Rejection{
				AgentType: c.Requirements.AgentType,
				Reason:    models.RejectResourceExhausted,
				Detail:    "no headroom on any requested resource",
			})
			continue
		}
		if factor < 1 {
			a.logger.Info("resource request scaled to headroom",
				zap.String("agent", string(c.Requirements.AgentType)),
				zap.Float64("factor", factor),
				zap.Any("granted", granted))
		}
		accepted = append(accepted, c)
	}

	// 5. Merge accepted actions, in priority order, deduplicating
	// identical changes (same target and same value); the highest-priority
	// source wins.
	plan.Changes = a.mergeChanges(accepted)
	return plan
}

// resolveConflicts drops the lower-priority member of every mutually
// conflicting pair. The input is already priority-sorted, so the first
// member of a pair encountered is the survivor.
func (a *Arbiter) resolveConflicts(sorted []orchestrator.Contribution, plan *models.ConfigurationPlan) []orchestrator.Contribution {
	rejected := make(map[models.AgentType]bool)

	for i := range sorted {
		hi := sorted[i]
		if rejected[hi.Requirements.AgentType] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			lo := sorted[j]
			if rejected[lo.Requirements.AgentType] {
				continue
			}
			if listsType(hi.Requirements.ConflictsWith, lo.Requirements.AgentType) &&
				listsType(lo.Requirements.ConflictsWith, hi.Requirements.AgentType) {
				rejected[lo.Requirements.AgentType] = true
				plan.Rejections = append(plan.Rejections, models.Rejection{
					AgentType: lo.Requirements.AgentType,
					Reason:    models.RejectAgentConflict,
					Detail:    fmt.Sprintf("conflicts with higher-priority %s", hi.Requirements.AgentType),
				})
			}
		}
	}

	var kept []orchestrator.Contribution
	for _, c := range sorted {
		if !rejected[c.Requirements.AgentType] {
			kept = append(kept, c)
		}
	}
	return kept
}

func listsType(list []models.AgentType, t models.AgentType) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// mergeChanges flattens accepted contributions (already priority-ordered)
// into the plan's change list, validating action parameters at this
// boundary and deduplicating identical changes.
func (a *Arbiter) mergeChanges(accepted []orchestrator.Contribution) []models.ConfigChange {
	type targetValue struct {
		t      models.ChangeType
		domain string
		key    string
		value  string
	}
	seen := make(map[targetValue]bool)

	var changes []models.ConfigChange
	for _, c := range accepted {
		for _, action := range c.Recommendation.Actions {
			change, err := changeFromAction(action, c)
			if err != nil {
				a.logger.Warn("action dropped at arbitration boundary",
					zap.String("agent", string(c.Requirements.AgentType)),
					zap.String("action", action.Name),
					zap.Error(err))
				continue
			}
			tv := targetValue{change.Type, change.Domain, change.Key, change.Value}
			if seen[tv] {
				continue
			}
			seen[tv] = true
			changes = append(changes, change)
		}
	}
	return changes
}

// changeFromAction validates typed action parameters and converts them to
// a concrete configuration change.
func changeFromAction(action models.RecommendedAction, c orchestrator.Contribution) (models.ConfigChange, error) {
	p := action.Params
	change := models.ConfigChange{
		ID:                uuid.New().String(),
		Type:              p.Type,
		Source:            c.Recommendation.AgentID,
		Priority:          c.Requirements.Priority,
		RequiresElevation: c.Requirements.RequiresElevation,
	}

	switch p.Type {
	case models.ChangeRegistry:
		if p.Domain == "" || p.Key == "" {
			return change, fmt.Errorf("registry action needs domain and key")
		}
		change.Domain, change.Key, change.Value = p.Domain, p.Key, p.Value

	case models.ChangeService:
		if p.Service == "" {
			return change, fmt.Errorf("service action needs a service name")
		}
		change.Domain = "service"
		change.Key = p.Service
		change.Value = serviceValue(p.Enabled)

	case models.ChangeResource:
		if p.Resource == "" || p.Fraction < 0 || p.Fraction > 1 {
			return change, fmt.Errorf("resource action needs a type and fraction in [0,1]")
		}
		change.Domain = "resource"
		change.Key = string(p.Resource)
		change.Value = fmt.Sprintf("%.2f", p.Fraction)

	case models.ChangeCompanion:
		if p.App == "" {
			return change, fmt.Errorf("companion action needs an app")
		}
		change.Domain = "companion"
		change.Key = p.App
		change.Value = "launch"

	default:
		return change, fmt.Errorf("unknown change type %q", p.Type)
	}

	return change, nil
}

func serviceValue(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
