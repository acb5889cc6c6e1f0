// Package applier executes configuration plans against the actuator.
// Application is best-effort and per-change: one failure never aborts the
// rest of the plan, every attempt is logged, and the captured prior values
// make Revert possible.
package applier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/tunewise/tunewise/internal/actuator"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/store"
)

// Applier applies and reverts configuration plans.
type Applier struct {
	act     actuator.Actuator
	store   *store.Store
	timeout time.Duration
	logger  *zap.Logger

	// flight coalesces concurrent applies of the same recipe: the second
	// caller receives the in-flight result instead of a second run.
	flight singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-recipe, serializes apply vs revert
}

// New creates an applier. timeout bounds each individual actuator call.
func New(act actuator.Actuator, st *store.Store, timeout time.Duration, logger *zap.Logger) *Applier {
	return &Applier{
		act:     act,
		store:   st,
		timeout: timeout,
		logger:  logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

// recipeLock returns the mutex serializing apply/revert for one recipe.
func (ap *Applier) recipeLock(name string) *sync.Mutex {
	ap.mu.Lock()
	defer ap.mu.Unlock()

	l, ok := ap.locks[name]
	if !ok {
		l = &sync.Mutex{}
		ap.locks[name] = l
	}
	return l
}

func planKey(plan models.ConfigurationPlan) string {
	if plan.RecipeName != "" {
		return plan.RecipeName
	}
	return plan.Name
}

// Apply executes the plan's changes in order. Concurrent applies for the
// same recipe coalesce into one run whose result every caller receives;
// sequential re-applies run again and report already-satisfied changes as
// no-ops. Cancellation stops further attempts; work already done stays
// logged and needs an explicit Revert to undo.
func (ap *Applier) Apply(ctx context.Context, plan models.ConfigurationPlan) models.ConfigurationResult {
	key := planKey(plan)
	v, _, shared := ap.flight.Do(key, func() (interface{}, error) {
		return ap.applyOne(ctx, key, plan), nil
	})
	if shared {
		ap.logger.Debug("apply coalesced with in-flight run", zap.String("recipe", key))
	}
	return v.(models.ConfigurationResult)
}

func (ap *Applier) applyOne(ctx context.Context, key string, plan models.ConfigurationPlan) models.ConfigurationResult {
	lock := ap.recipeLock(key)
	lock.Lock()
	defer lock.Unlock()

	result := models.ConfigurationResult{
		ID:         uuid.New().String(),
		RecipeName: key,
		Timestamp:  time.Now().UTC(),
	}

	applied, skipped, failed := 0, 0, 0
	cancelled := false

	for _, change := range plan.Changes {
		if cancelled || ctx.Err() != nil {
			cancelled = true
			outcome := models.ChangeOutcome{
				Change: change,
				Status: models.ChangeSkipped,
				Reason: "apply cancelled",
			}
			result.Changes = append(result.Changes, outcome)
			ap.logOutcome(key, outcome)
			skipped++
			continue
		}

		if last, ok := ap.lastApplied(change); ok && last == change.Value {
			outcome := models.ChangeOutcome{
				Change:     change,
				Status:     models.ChangeSkipped,
				PriorValue: last,
				Reason:     "already applied",
			}
			result.Changes = append(result.Changes, outcome)
			ap.logOutcome(key, outcome)
			skipped++
			continue
		}

		outcome := ap.attempt(ctx, change)
		result.Changes = append(result.Changes, outcome)
		ap.logOutcome(key, outcome)
		if outcome.Status == models.ChangeFailed {
			failed++
		} else {
			applied++
		}
	}

	result.Success = failed == 0 && !cancelled
	switch {
	case cancelled:
		result.Message = fmt.Sprintf("cancelled: %d applied, %d skipped before cancellation", applied, skipped)
	case failed > 0:
		result.Message = fmt.Sprintf("%d of %d changes failed", failed, len(plan.Changes))
	case applied == 0 && skipped > 0:
		result.Message = "all changes already applied"
	default:
		result.Message = fmt.Sprintf("applied %d changes (%d skipped)", applied, skipped)
	}

	if err := ap.store.SaveResult(result); err != nil {
		ap.logger.Error("failed to persist result", zap.Error(err))
	}
	ap.logger.Info("plan applied",
		zap.String("recipe", key),
		zap.Bool("success", result.Success),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
	return result
}

// lastApplied returns the last logged applied value for the change's
// target, used for the no-op check. Log errors fail open: the change is
// attempted.
func (ap *Applier) lastApplied(change models.ConfigChange) (string, bool) {
	last, ok, err := ap.store.LastAppliedValue(change.Domain, change.Key)
	if err != nil {
		ap.logger.Warn("apply log lookup failed", zap.Error(err))
		return "", false
	}
	return last, ok
}

// attempt performs one change through the actuator, capturing the prior
// value before the write lands. Actuator errors become failed outcomes.
func (ap *Applier) attempt(ctx context.Context, change models.ConfigChange) models.ChangeOutcome {
	callCtx, cancel := context.WithTimeout(ctx, ap.timeout)
	defer cancel()

	outcome := models.ChangeOutcome{Change: change}

	var prior string
	var err error
	switch change.Type {
	case models.ChangeRegistry, models.ChangeResource:
		prior, err = ap.act.WriteConfigValue(callCtx, change.Domain, change.Key, change.Value)

	case models.ChangeService:
		var priorEnabled bool
		priorEnabled, err = ap.act.SetServiceState(callCtx, change.Key, change.Value == "enabled")
		prior = serviceValue(priorEnabled)

	case models.ChangeCompanion:
		err = ap.act.LaunchCompanion(callCtx, change.Key)

	default:
		err = fmt.Errorf("unknown change type %q", change.Type)
	}

	if err != nil {
		outcome.Status = models.ChangeFailed
		outcome.Reason = err.Error()
		return outcome
	}
	outcome.Status = models.ChangeApplied
	outcome.PriorValue = prior
	return outcome
}

// logOutcome appends the attempt to the apply log. The log is the source
// of truth for revert; a write failure here is loud.
func (ap *Applier) logOutcome(recipeName string, o models.ChangeOutcome) {
	err := ap.store.AppendApplyLog(store.ApplyLogEntry{
		RecipeName: recipeName,
		ChangeID:   o.Change.ID,
		ChangeType: string(o.Change.Type),
		Domain:     o.Change.Domain,
		Key:        o.Change.Key,
		Value:      o.Change.Value,
		PriorValue: o.PriorValue,
		Status:     string(o.Status),
		Reason:     o.Reason,
		AppliedAt:  time.Now().UTC(),
	})
	if err != nil {
		ap.logger.Error("apply log append failed",
			zap.String("recipe", recipeName),
			zap.String("change", o.Change.ID),
			zap.Error(err))
	}
}

// Revert replays the recipe's apply log backwards, restoring each
// captured prior value. A recipe with no unreverted entries is a no-op
// success. Failed restores are reported individually and stay in the log
// for a later retry; they are never silently dropped.
func (ap *Applier) Revert(ctx context.Context, recipeName string) models.ConfigurationResult {
	lock := ap.recipeLock(recipeName)
	lock.Lock()
	defer lock.Unlock()

	result := models.ConfigurationResult{
		ID:         uuid.New().String(),
		RecipeName: recipeName,
		Timestamp:  time.Now().UTC(),
	}

	entries, err := ap.store.UnrevertedApplied(recipeName)
	if err != nil {
		result.Message = fmt.Sprintf("revert aborted: %v", err)
		return result
	}
	if len(entries) == 0 {
		result.Success = true
		result.Message = "nothing to revert"
		return result
	}

	restored, failed := 0, 0
	for _, e := range entries {
		change := models.ConfigChange{
			ID:     e.ChangeID,
			Type:   models.ChangeType(e.ChangeType),
			Domain: e.Domain,
			Key:    e.Key,
			Value:  e.PriorValue,
			Source: recipeName,
		}

		if ctx.Err() != nil {
			result.Changes = append(result.Changes, models.ChangeOutcome{
				Change: change,
				Status: models.ChangeSkipped,
				Reason: "revert cancelled",
			})
			continue
		}

		if models.ChangeType(e.ChangeType) == models.ChangeCompanion {
			// Launches cannot be un-launched; retire the log entry.
			if err := ap.store.MarkReverted(e.Seq); err != nil {
				ap.logger.Error("mark reverted failed", zap.Int64("seq", e.Seq), zap.Error(err))
			}
			result.Changes = append(result.Changes, models.ChangeOutcome{
				Change: change,
				Status: models.ChangeSkipped,
				Reason: "companion launch is not revertible",
			})
			continue
		}

		outcome := ap.restore(ctx, change, e)
		result.Changes = append(result.Changes, outcome)
		if outcome.Status == models.ChangeFailed {
			failed++
			continue
		}
		restored++
		if err := ap.store.MarkReverted(e.Seq); err != nil {
			ap.logger.Error("mark reverted failed", zap.Int64("seq", e.Seq), zap.Error(err))
		}
	}

	result.Success = failed == 0 && ctx.Err() == nil
	if result.Success {
		result.Message = fmt.Sprintf("reverted %d changes", restored)
	} else {
		result.Message = fmt.Sprintf("partial revert: %d restored, %d failed", restored, failed)
	}

	if err := ap.store.SaveResult(result); err != nil {
		ap.logger.Error("failed to persist result", zap.Error(err))
	}
	return result
}

// restore writes one prior value back through the actuator.
func (ap *Applier) restore(ctx context.Context, change models.ConfigChange, e store.ApplyLogEntry) models.ChangeOutcome {
	callCtx, cancel := context.WithTimeout(ctx, ap.timeout)
	defer cancel()

	outcome := models.ChangeOutcome{Change: change, PriorValue: e.Value}

	var err error
	switch change.Type {
	case models.ChangeRegistry, models.ChangeResource:
		_, err = ap.act.WriteConfigValue(callCtx, e.Domain, e.Key, e.PriorValue)
	case models.ChangeService:
		_, err = ap.act.SetServiceState(callCtx, e.Key, e.PriorValue == "enabled")
	default:
		err = fmt.Errorf("unknown change type %q", change.Type)
	}

	if err != nil {
		outcome.Status = models.ChangeFailed
		outcome.Reason = err.Error()
		return outcome
	}
	outcome.Status = models.ChangeApplied
	return outcome
}

func serviceValue(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}
