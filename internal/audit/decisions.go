// Package audit records arbitration decisions for later inspection. Every
// verdict (accepted, scaled, rejected) lands as an append-only record
// stamped with a hash of the round's inputs.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/store"
)

// Recorder writes decision records through the store.
type Recorder struct {
	store *store.Store
}

// NewRecorder creates a decision recorder.
func NewRecorder(s *store.Store) *Recorder {
	return &Recorder{store: s}
}

// Record writes one decision record for a round.
func (r *Recorder) Record(round, agentType, verdict, detail string, inputs interface{}) error {
	return r.store.WriteDecision(round, agentType, verdict, detail, hashInputs(inputs))
}

// RecordPlan writes one record per rejection on the plan plus an accepted
// record per change source. Failures to write are returned but callers
// treat audit as best-effort.
func (r *Recorder) RecordPlan(round string, plan models.ConfigurationPlan) error {
	hash := hashInputs(plan)

	for _, rej := range plan.Rejections {
		if err := r.store.WriteDecision(round, string(rej.AgentType), string(rej.Reason), rej.Detail, hash); err != nil {
			return err
		}
	}

	accepted := make(map[string]bool)
	for _, ch := range plan.Changes {
		if accepted[ch.Source] {
			continue
		}
		accepted[ch.Source] = true
		if err := r.store.WriteDecision(round, ch.Source, "accepted", "", hash); err != nil {
			return err
		}
	}
	return nil
}

// hashInputs creates a SHA256 hash of the inputs for reproducibility.
func hashInputs(inputs interface{}) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
