// Package scheduler drives the capture, reasoning, arbitration and apply
// cycle on an adaptive tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/applier"
	"github.com/tunewise/tunewise/internal/arbiter"
	"github.com/tunewise/tunewise/internal/audit"
	"github.com/tunewise/tunewise/internal/catalog"
	"github.com/tunewise/tunewise/internal/ledger"
	"github.com/tunewise/tunewise/internal/metrics"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/orchestrator"
	"github.com/tunewise/tunewise/internal/sensor"
)

// Config holds the loop cadence.
type Config struct {
	// ActiveInterval is the tick period while the user is present.
	ActiveInterval time.Duration
	// BackgroundInterval is the tick period otherwise. Never shorter
	// than ActiveInterval.
	BackgroundInterval time.Duration
}

// DefaultConfig returns the default loop cadence.
func DefaultConfig() *Config {
	return &Config{
		ActiveInterval:     5 * time.Second,
		BackgroundInterval: 30 * time.Second,
	}
}

// Scheduler runs the control loop: capture a snapshot, match recipes,
// run a reasoning round, arbitrate, apply.
type Scheduler struct {
	provider *sensor.Provider
	catalog  *catalog.Catalog
	orch     *orchestrator.Orchestrator
	arb      *arbiter.Arbiter
	applier  *applier.Applier
	ledger   *ledger.Ledger
	audit    *audit.Recorder
	metrics  *metrics.Metrics
	config   *Config
	logger   *zap.Logger

	// Loop state
	mu            sync.Mutex
	focused       bool
	activeProfile string
	lastSnapshot  models.Snapshot
	lastRecs      []models.AgentRecommendation
	ticks         int64
	rounds        int64

	// Control
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler. A nil cfg gets defaults.
func New(provider *sensor.Provider, cat *catalog.Catalog, orch *orchestrator.Orchestrator,
	arb *arbiter.Arbiter, ap *applier.Applier, led *ledger.Ledger,
	rec *audit.Recorder, m *metrics.Metrics, cfg *Config, logger *zap.Logger) *Scheduler {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		provider: provider,
		catalog:  cat,
		orch:     orch,
		arb:      arb,
		applier:  ap,
		ledger:   led,
		audit:    rec,
		metrics:  m,
		config:   cfg,
		logger:   logger,
		focused:  true,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins the control loop.
func (sch *Scheduler) Start() {
	sch.wg.Add(1)
	go sch.loop()
	sch.logger.Info("scheduler started",
		zap.Duration("active_interval", sch.config.ActiveInterval),
		zap.Duration("background_interval", sch.config.BackgroundInterval))
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (sch *Scheduler) Stop() {
	sch.cancel()
	sch.wg.Wait()
	sch.logger.Info("scheduler stopped")
}

// SetFocus records whether the user session has focus. The next tick is
// scheduled with the matching interval.
func (sch *Scheduler) SetFocus(focused bool) {
	sch.mu.Lock()
	changed := sch.focused != focused
	sch.focused = focused
	sch.mu.Unlock()
	if changed {
		sch.logger.Info("focus changed", zap.Bool("focused", focused))
	}
}

// interval returns the tick period for the current focus state.
func (sch *Scheduler) interval() time.Duration {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	if sch.focused {
		return sch.config.ActiveInterval
	}
	return sch.config.BackgroundInterval
}

// loop reschedules each tick so a focus change takes effect on the next
// wait instead of the next full background interval.
func (sch *Scheduler) loop() {
	defer sch.wg.Done()

	timer := time.NewTimer(sch.interval())
	defer timer.Stop()

	for {
		select {
		case <-sch.ctx.Done():
			return
		case <-timer.C:
			sch.tick()
			timer.Reset(sch.interval())
		}
	}
}

// tick runs one full cycle of the control loop.
func (sch *Scheduler) tick() {
	ctx := sch.ctx

	snap, err := sch.provider.Capture(ctx)
	if err != nil {
		sch.logger.Warn("snapshot capture failed", zap.Error(err))
		return
	}

	sch.mu.Lock()
	sch.ticks++
	profile := sch.activeProfile
	sch.mu.Unlock()

	profile = sch.reconcileRecipe(ctx, snap, profile)

	snap.ProfileName = profile
	sch.mu.Lock()
	sch.lastSnapshot = snap
	sch.mu.Unlock()

	sch.reasonAndApply(ctx, snap, profile)
}

// reconcileRecipe matches the catalog against the running processes and
// switches the applied recipe when the best match changes. Returns the
// profile now in effect.
func (sch *Scheduler) reconcileRecipe(ctx context.Context, snap models.Snapshot, current string) string {
	best, ok := sch.catalog.SelectBest(sch.catalog.Match(snap.ProcessSet()))

	next := ""
	if ok {
		next = best.Name
		sch.metrics.RecordRecipeMatch()
	}
	if next == current {
		return current
	}

	if current != "" {
		sch.logger.Info("recipe no longer active, reverting", zap.String("recipe", current))
		result := sch.applier.Revert(ctx, current)
		sch.metrics.RecordRevert()
		if !result.Success {
			sch.logger.Warn("revert incomplete",
				zap.String("recipe", current),
				zap.Int("failed", result.FailedCount()))
		}
	}

	if next != "" {
		sch.logger.Info("recipe matched, applying", zap.String("recipe", next))
		plan := applier.PlanFromRecipe(best)
		result := sch.applier.Apply(ctx, plan)
		sch.metrics.RecordPlan(appliedCount(result), result.FailedCount())
		if !result.Success {
			sch.logger.Warn("recipe apply incomplete",
				zap.String("recipe", next),
				zap.Int("failed", result.FailedCount()))
		}
	}

	sch.mu.Lock()
	sch.activeProfile = next
	sch.mu.Unlock()
	return next
}

// reasonAndApply runs one reasoning round, arbitrates the contributions
// and applies the approved plan.
func (sch *Scheduler) reasonAndApply(ctx context.Context, snap models.Snapshot, scenario string) {
	// Reservations last one round.
	sch.ledger.ReleaseAll()

	contributions := sch.orch.ReasonRound(ctx, snap, scenario)
	sch.metrics.RecordRound()

	sch.mu.Lock()
	sch.rounds++
	round := fmt.Sprintf("round-%d", sch.rounds)
	recs := make([]models.AgentRecommendation, 0, len(contributions))
	for _, c := range contributions {
		recs = append(recs, c.Recommendation)
	}
	sch.lastRecs = recs
	sch.mu.Unlock()

	if len(contributions) == 0 {
		return
	}

	plan := sch.arb.Resolve(contributions, round)
	for _, rej := range plan.Rejections {
		sch.metrics.RecordRejection(string(rej.Reason))
	}
	if err := sch.audit.RecordPlan(round, plan); err != nil {
		sch.logger.Warn("decision record failed", zap.Error(err))
	}

	if len(plan.Changes) == 0 {
		return
	}

	auto := onlyAutoApply(plan, contributions)
	if len(auto.Changes) == 0 {
		sch.logger.Debug("plan approved but nothing marked auto-apply",
			zap.String("round", round),
			zap.Int("changes", len(plan.Changes)))
		return
	}

	result := sch.applier.Apply(ctx, auto)
	sch.metrics.RecordPlan(appliedCount(result), result.FailedCount())
	sch.logger.Info("plan applied",
		zap.String("round", round),
		zap.Bool("success", result.Success),
		zap.Int("changes", len(result.Changes)),
		zap.Int("failed", result.FailedCount()))
}

// onlyAutoApply filters the plan down to changes from contributions whose
// recommendation is marked for automatic application. The rest stay
// visible through the recommendations endpoint until a user acts on them.
func onlyAutoApply(plan models.ConfigurationPlan, contributions []orchestrator.Contribution) models.ConfigurationPlan {
	autoSources := make(map[string]bool, len(contributions))
	for _, c := range contributions {
		if c.Recommendation.AutoApply {
			autoSources[c.Recommendation.AgentID] = true
		}
	}

	out := plan
	out.Changes = nil
	for _, ch := range plan.Changes {
		if autoSources[ch.Source] {
			out.Changes = append(out.Changes, ch)
		}
	}
	return out
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

// LatestSnapshot returns the most recent snapshot captured by the loop.
func (sch *Scheduler) LatestSnapshot() models.Snapshot {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.lastSnapshot
}

// LatestRecommendations returns the recommendations from the most recent
// reasoning round.
func (sch *Scheduler) LatestRecommendations() []models.AgentRecommendation {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	out := make([]models.AgentRecommendation, len(sch.lastRecs))
	copy(out, sch.lastRecs)
	return out
}

// AgentStatuses reports the current state of every registered agent.
func (sch *Scheduler) AgentStatuses() []models.AgentStatus {
	return sch.orch.Registry().Statuses()
}

// ActiveProfile returns the name of the recipe currently in effect, or
// the empty string.
func (sch *Scheduler) ActiveProfile() string {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return sch.activeProfile
}

// Stats returns current loop statistics.
func (sch *Scheduler) Stats() map[string]interface{} {
	sch.mu.Lock()
	defer sch.mu.Unlock()
	return map[string]interface{}{
		"ticks":          sch.ticks,
		"rounds":         sch.rounds,
		"focused":        sch.focused,
		"active_profile": sch.activeProfile,
	}
}
