// Package models defines the core domain types for tunewise.
package models

import (
	"time"
)

// ResourceType identifies a host resource tracked by the ledger.
type ResourceType string

const (
	ResourceCPU     ResourceType = "cpu"
	ResourceGPU     ResourceType = "gpu"
	ResourceRAM     ResourceType = "ram"
	ResourceNetwork ResourceType = "network"
	ResourceStorage ResourceType = "storage"
)

// AllResourceTypes lists every resource type the ledger tracks.
var AllResourceTypes = []ResourceType{
	ResourceCPU, ResourceGPU, ResourceRAM, ResourceNetwork, ResourceStorage,
}

// AgentType identifies an optimization domain.
type AgentType string

const (
	AgentTypeGaming      AgentType = "gaming"
	AgentTypeDevelopment AgentType = "development"
	AgentTypeMedia       AgentType = "media"
)

// AgentState is the lifecycle state of a task agent.
type AgentState string

const (
	AgentStateUninitialized AgentState = "uninitialized"
	AgentStateReady         AgentState = "ready"
	AgentStateActive        AgentState = "active"
	AgentStateMonitoring    AgentState = "monitoring"
	AgentStateOptimizing    AgentState = "optimizing"
	AgentStatePaused        AgentState = "paused"
	AgentStateError         AgentState = "error"
	AgentStateShutdown      AgentState = "shutdown"
)

// Runnable reports whether an agent in this state may contribute to a
// reasoning round.
func (s AgentState) Runnable() bool {
	switch s {
	case AgentStateReady, AgentStateActive, AgentStateMonitoring, AgentStateOptimizing:
		return true
	}
	return false
}

// Snapshot is an immutable point-in-time capture of host state. It is
// always passed by value; core components never mutate one.
type Snapshot struct {
	Timestamp      time.Time `json:"timestamp"`
	CPUPercent     float64   `json:"cpu_percent"`
	GPUPercent     float64   `json:"gpu_percent"`
	RAMPercent     float64   `json:"ram_percent"`
	DiskPercent    float64   `json:"disk_percent"`
	NetworkPercent float64   `json:"network_percent"`

	// Temperatures is keyed by sensor name (e.g. "cpu", "gpu"). Nil when
	// the host exposes no thermal sensors.
	Temperatures map[string]float64 `json:"temperatures,omitempty"`

	// Processes is the ordered set of running process names.
	Processes []string `json:"processes"`

	ActiveWindow  string `json:"active_window,omitempty"`
	ActiveProcess string `json:"active_process,omitempty"`

	KeyboardActivity float64 `json:"keyboard_activity"`
	MouseActivity    float64 `json:"mouse_activity"`
	IsUserActive     bool    `json:"is_user_active"`

	ProfileName         string   `json:"profile_name,omitempty"`
	ActiveOptimizations []string `json:"active_optimizations,omitempty"`
}

// ProcessSet returns the running process names as a lookup set.
func (s Snapshot) ProcessSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Processes))
	for _, p := range s.Processes {
		set[p] = struct{}{}
	}
	return set
}

// HasProcess reports whether the named process is running.
func (s Snapshot) HasProcess(name string) bool {
	for _, p := range s.Processes {
		if p == name {
			return true
		}
	}
	return false
}

// AutomationRecipe is a named bundle of configuration changes triggered by
// a set of running processes. Recipes are immutable after catalog load.
type AutomationRecipe struct {
	ID               string                   `json:"id" yaml:"id"`
	Name             string                   `json:"name" yaml:"name"`
	TriggerProcesses []string                 `json:"trigger_processes" yaml:"trigger_processes"`
	RegistryChanges  map[string]string        `json:"registry_changes,omitempty" yaml:"registry_changes,omitempty"`
	ServiceStates    map[string]bool          `json:"service_states,omitempty" yaml:"service_states,omitempty"`
	ResourceAlloc    map[ResourceType]float64 `json:"resource_allocations,omitempty" yaml:"resource_allocations,omitempty"`
	CompanionApps    []string                 `json:"companion_apps,omitempty" yaml:"companion_apps,omitempty"`
}

// Specificity is the size of the trigger-process set, used to rank
// overlapping matches.
func (r AutomationRecipe) Specificity() int {
	return len(r.TriggerProcesses)
}

// ChangeType classifies a single configuration change.
type ChangeType string

const (
	ChangeRegistry  ChangeType = "registry"
	ChangeService   ChangeType = "service"
	ChangeResource  ChangeType = "resource"
	ChangeCompanion ChangeType = "companion"
)

// ConfigChange is one desired configuration change inside a plan.
type ConfigChange struct {
	ID                string     `json:"id"`
	Type              ChangeType `json:"type"`
	Domain            string     `json:"domain"`
	Key               string     `json:"key"`
	Value             string     `json:"value"`
	Source            string     `json:"source"`
	Priority          float64    `json:"priority"`
	RequiresElevation bool       `json:"requires_elevation"`
}

// SameTarget reports whether two changes address the same configuration
// target (used for plan deduplication).
func (c ConfigChange) SameTarget(other ConfigChange) bool {
	return c.Type == other.Type && c.Domain == other.Domain && c.Key == other.Key
}

// ActionParams carries the typed parameters of a recommended action. The
// populated fields depend on the change type; the arbiter validates the
// combination before anything reaches the applier.
type ActionParams struct {
	Type     ChangeType   `json:"type"`
	Domain   string       `json:"domain,omitempty"`
	Key      string       `json:"key,omitempty"`
	Value    string       `json:"value,omitempty"`
	Service  string       `json:"service,omitempty"`
	Enabled  bool         `json:"enabled,omitempty"`
	Resource ResourceType `json:"resource,omitempty"`
	Fraction float64      `json:"fraction,omitempty"`
	App      string       `json:"app,omitempty"`
}

// RecommendedAction is one step of a recommendation.
type RecommendedAction struct {
	Name   string       `json:"name"`
	Params ActionParams `json:"params"`
}

// AgentRecommendation is the output of one agent's reasoning pass. It is
// never mutated after creation; superseded recommendations are discarded.
type AgentRecommendation struct {
	ID                  string              `json:"id"`
	AgentID             string              `json:"agent_id"`
	AgentType           AgentType           `json:"agent_type"`
	Title               string              `json:"title"`
	Reasoning           string              `json:"reasoning"`
	Actions             []RecommendedAction `json:"actions"`
	Confidence          float64             `json:"confidence"`
	ExpectedImprovement float64             `json:"expected_improvement"`
	TargetMetric        string              `json:"target_metric"`
	AutoApply           bool                `json:"auto_apply"`
	CreatedAt           time.Time           `json:"created_at"`
}

// AgentResourceRequirements is an agent's resource ask for one round.
type AgentResourceRequirements struct {
	AgentType AgentType                `json:"agent_type"`
	Requests  map[ResourceType]float64 `json:"requests"`
	Priority  float64                  `json:"priority"`

	// NonNegotiable marks the request as all-or-nothing: the arbiter
	// rejects it outright rather than scaling it down.
	NonNegotiable     bool        `json:"non_negotiable"`
	RequiresElevation bool        `json:"requires_elevation"`
	ConflictsWith     []AgentType `json:"conflicts_with,omitempty"`
}

// RejectionReason classifies why an arbitration contribution was dropped.
type RejectionReason string

const (
	RejectBelowConfidence   RejectionReason = "below_confidence"
	RejectResourceExhausted RejectionReason = "resource_exhausted"
	RejectAgentConflict     RejectionReason = "agent_conflict"
)

// Rejection records one contribution the arbiter refused, with the reason.
type Rejection struct {
	AgentType AgentType       `json:"agent_type"`
	Reason    RejectionReason `json:"reason"`
	Detail    string          `json:"detail,omitempty"`
}

// ConfigurationPlan is the ordered, deduplicated list of changes approved
// by arbitration, plus the contributions that were rejected.
type ConfigurationPlan struct {
	Name       string         `json:"name"`
	RecipeName string         `json:"recipe_name,omitempty"`
	Changes    []ConfigChange `json:"changes"`
	Rejections []Rejection    `json:"rejections,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ChangeStatus is the per-change outcome of an apply pass.
type ChangeStatus string

const (
	ChangeApplied ChangeStatus = "applied"
	ChangeSkipped ChangeStatus = "skipped"
	ChangeFailed  ChangeStatus = "failed"
)

// ChangeOutcome is the result of attempting one change.
type ChangeOutcome struct {
	Change     ConfigChange `json:"change"`
	Status     ChangeStatus `json:"status"`
	PriorValue string       `json:"prior_value,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

// ConfigurationResult reports the outcome of applying (or reverting) a
// plan. Success is true only when zero changes failed.
type ConfigurationResult struct {
	ID         string          `json:"id"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	RecipeName string          `json:"recipe_name"`
	Changes    []ChangeOutcome `json:"changes"`
	Timestamp  time.Time       `json:"timestamp"`
}

// FailedCount returns the number of failed change outcomes.
func (r ConfigurationResult) FailedCount() int {
	n := 0
	for _, c := range r.Changes {
		if c.Status == ChangeFailed {
			n++
		}
	}
	return n
}

// FeedbackKind classifies explicit feedback on an applied optimization.
type FeedbackKind string

const (
	FeedbackSuccess        FeedbackKind = "success"
	FeedbackPartialSuccess FeedbackKind = "partial_success"
	FeedbackFailure        FeedbackKind = "failure"
	FeedbackUserRejected   FeedbackKind = "user_rejected"
)

// AgentFeedback is one explicit feedback record. It is consumed exactly
// once by the learner, then archived.
type AgentFeedback struct {
	ID                  string       `json:"id"`
	AgentID             string       `json:"agent_id"`
	Action              string       `json:"action"`
	Scenario            string       `json:"scenario,omitempty"`
	Kind                FeedbackKind `json:"kind"`
	MeasuredImprovement float64      `json:"measured_improvement"`
	ExpectedImprovement float64      `json:"expected_improvement"`
	Comment             string       `json:"comment,omitempty"`
	Timestamp           time.Time    `json:"timestamp"`
}

// AgentKnowledge is an agent's durable learned state: per-action success
// rates maintained as exponential moving averages, sample counts, and user
// preferences. Patterns are never deleted, only reweighted.
type AgentKnowledge struct {
	AgentID      string             `json:"agent_id"`
	SuccessRates map[string]float64 `json:"success_rates"`
	SampleCounts map[string]int     `json:"sample_counts"`
	Preferences  map[string]string  `json:"preferences,omitempty"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NewAgentKnowledge returns an empty knowledge store for the given agent.
func NewAgentKnowledge(agentID string) *AgentKnowledge {
	return &AgentKnowledge{
		AgentID:      agentID,
		SuccessRates: make(map[string]float64),
		SampleCounts: make(map[string]int),
		Preferences:  make(map[string]string),
	}
}

// Merge folds another knowledge record for the same agent into this one.
// Rates are kept from the record with more samples per action; counts are
// summed. Used when reconciling persisted knowledge across restarts.
func (k *AgentKnowledge) Merge(other *AgentKnowledge) {
	if other == nil {
		return
	}
	for action, rate := range other.SuccessRates {
		if other.SampleCounts[action] >= k.SampleCounts[action] {
			k.SuccessRates[action] = rate
		}
	}
	for action, n := range other.SampleCounts {
		k.SampleCounts[action] += n
	}
	for key, v := range other.Preferences {
		if _, ok := k.Preferences[key]; !ok {
			k.Preferences[key] = v
		}
	}
	if other.UpdatedAt.After(k.UpdatedAt) {
		k.UpdatedAt = other.UpdatedAt
	}
}

// AgentActionResult is the outcome of one ExecuteAction call.
type AgentActionResult struct {
	Action   string        `json:"action"`
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// AgentStatus is a read-only view of one agent for the control plane.
type AgentStatus struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Type                AgentType  `json:"type"`
	State               AgentState `json:"state"`
	Confidence          float64    `json:"confidence"`
	ConsecutiveTimeouts int        `json:"consecutive_timeouts,omitempty"`
}
