// Package orchestrator drives the reasoning rounds: it fans Reason and
// GetResourceRequirements out to every runnable agent concurrently, bounds
// each call with its own timeout, and collects the contributions for
// arbitration.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/agent"
	"github.com/tunewise/tunewise/internal/models"
)

// Contribution pairs one agent's recommendation with its resource ask for
// a round.
type Contribution struct {
	Agent          agent.TaskAgent
	Recommendation models.AgentRecommendation
	Requirements   models.AgentResourceRequirements
}

// timeoutTracker is the escalation hook agents expose for repeated
// reasoning timeouts.
type timeoutTracker interface {
	NoteTimeout() int
	ClearTimeouts()
	ForceError(reason string)
}

// Orchestrator owns the registry of live agents and runs reasoning rounds.
type Orchestrator struct {
	registry   *agent.Registry
	timeout    time.Duration
	maxStrikes int
	logger     *zap.Logger
}

// New creates an orchestrator. timeout bounds each agent's reasoning call;
// maxStrikes is the number of consecutive timeouts that force an agent
// into the error state.
func New(registry *agent.Registry, timeout time.Duration, maxStrikes int, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry:   registry,
		timeout:    timeout,
		maxStrikes: maxStrikes,
		logger:     logger,
	}
}

// Registry exposes the agent registry for the control plane.
func (o *Orchestrator) Registry() *agent.Registry {
	return o.registry
}

// ReasonRound dispatches Reason and GetResourceRequirements to every agent
// in a runnable state, concurrently, each bounded by the per-agent
// timeout. Agents that are not runnable are skipped and logged; a
// timed-out agent's contribution is dropped from the round. The round
// never blocks on a slow agent beyond that agent's own timeout.
func (o *Orchestrator) ReasonRound(ctx context.Context, snap models.Snapshot, scenario string) []Contribution {
	agents := o.registry.All()

	var (
		mu            sync.Mutex
		contributions []Contribution
		wg            sync.WaitGroup
	)

	for _, a := range agents {
		if !a.CurrentState().Runnable() {
			o.logger.Debug("agent skipped for round",
				zap.String("agent", a.Name()),
				zap.String("state", string(a.CurrentState())))
			continue
		}

		wg.Add(1)
		go func(a agent.TaskAgent) {
			defer wg.Done()

			rec, err := o.reasonOne(ctx, a, scenario, snap)
			if err != nil {
				o.handleReasonError(ctx, a, err)
				return
			}

			if t, ok := a.(timeoutTracker); ok {
				t.ClearTimeouts()
			}

			contribution := Contribution{
				Agent:          a,
				Recommendation: rec,
				Requirements:   a.GetResourceRequirements(),
			}
			mu.Lock()
			contributions = append(contributions, contribution)
			mu.Unlock()
		}(a)
	}

	wg.Wait()

	// Deterministic order for the arbiter's stable sort.
	sort.Slice(contributions, func(i, j int) bool {
		return contributions[i].Agent.ID() < contributions[j].Agent.ID()
	})

	o.logger.Debug("reasoning round complete",
		zap.String("scenario", scenario),
		zap.Int("contributions", len(contributions)))
	return contributions
}

// reasonOne runs one agent's Reason under its own deadline. The inner
// goroutine shields the round from agents that ignore cancellation: the
// round moves on at the deadline even if the call is still running.
func (o *Orchestrator) reasonOne(ctx context.Context, a agent.TaskAgent, scenario string, snap models.Snapshot) (models.AgentRecommendation, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type reply struct {
		rec models.AgentRecommendation
		err error
	}
	ch := make(chan reply, 1)
	go func() {
		rec, err := a.Reason(callCtx, scenario, snap)
		ch <- reply{rec, err}
	}()

	select {
	case r := <-ch:
		return r.rec, r.err
	case <-callCtx.Done():
		return models.AgentRecommendation{}, callCtx.Err()
	}
}

// handleReasonError classifies a failed reasoning call. Timeouts accrue
// strikes and escalate to the error state at the threshold; a not-ready
// agent is merely skipped; cancellation of the whole round counts against
// nobody.
func (o *Orchestrator) handleReasonError(ctx context.Context, a agent.TaskAgent, err error) {
	switch {
	case errors.Is(err, agent.ErrAgentNotReady), errors.Is(err, agent.ErrAgentShutdown):
		o.logger.Debug("agent not ready, contribution skipped",
			zap.String("agent", a.Name()))

	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		strikes := 1
		if t, ok := a.(timeoutTracker); ok {
			strikes = t.NoteTimeout()
			if strikes >= o.maxStrikes {
				t.ForceError(fmt.Sprintf("%d consecutive reasoning timeouts", strikes))
			}
		}
		o.logger.Warn("agent reasoning timed out",
			zap.String("agent", a.Name()),
			zap.Int("consecutive", strikes),
			zap.Int("threshold", o.maxStrikes))

	case ctx.Err() != nil:
		// Round cancelled; not an agent fault.

	default:
		o.logger.Warn("agent reasoning failed",
			zap.String("agent", a.Name()),
			zap.Error(err))
	}
}
