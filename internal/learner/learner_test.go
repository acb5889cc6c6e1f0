package learner

import (
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/tunewise/tunewise/internal/agent"
	"github.com/tunewise/tunewise/internal/models"
	"github.com/tunewise/tunewise/internal/store"
)

func newTestLearner(t *testing.T) (*Learner, *agent.Registry, *store.Store) {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	reg := agent.NewRegistry(zap.NewNop())
	if err := reg.Register(agent.NewGaming(agent.DefaultLearnParams(), nil, zap.NewNop())); err != nil {
		t.Fatal(err)
	}
	reg.InitializeAll(models.Snapshot{})

	return New(reg, st, zap.NewNop()), reg, st
}

func TestUpdateUnknownAgent(t *testing.T) {
	l, _, _ := newTestLearner(t)

	err := l.Update(models.AgentFeedback{
		AgentID: "agent-nobody",
		Action:  "whatever",
		Kind:    models.FeedbackSuccess,
	})
	if !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("got %v, want ErrUnknownAgent", err)
	}
}

func TestUpdateAdjustsAndPersists(t *testing.T) {
	l, reg, st := newTestLearner(t)

	g, _ := reg.GetByID("agent-gaming")
	before := g.Confidence()

	err := l.Update(models.AgentFeedback{
		AgentID: "agent-gaming",
		Action:  "gpu_priority_boost",
		Kind:    models.FeedbackSuccess,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if g.Confidence() <= before {
		t.Errorf("confidence %f -> %f, want increase", before, g.Confidence())
	}

	// The updated knowledge is durable, not just in memory.
	k, err := st.LoadKnowledge("agent-gaming")
	if err != nil {
		t.Fatal(err)
	}
	if k == nil {
		t.Fatal("knowledge not persisted")
	}
	if k.SampleCounts["gpu_priority_boost"] != 1 {
		t.Errorf("persisted sample count = %d, want 1", k.SampleCounts["gpu_priority_boost"])
	}
}

func TestUpdateFailureKind(t *testing.T) {
	l, reg, _ := newTestLearner(t)
	g, _ := reg.GetByID("agent-gaming")

	err := l.Update(models.AgentFeedback{
		AgentID: "agent-gaming",
		Action:  "gpu_priority_boost",
		Kind:    models.FeedbackFailure,
	})
	if err != nil {
		t.Fatal(err)
	}
	if g.Confidence() >= 0.5 {
		t.Errorf("confidence after failure = %f, want below neutral", g.Confidence())
	}
}

func TestRestoreAll(t *testing.T) {
	l, reg, st := newTestLearner(t)

	saved := models.NewAgentKnowledge("agent-gaming")
	saved.SuccessRates["gpu_priority_boost"] = 0.91
	saved.SampleCounts["gpu_priority_boost"] = 7
	if err := st.SaveKnowledge(saved); err != nil {
		t.Fatal(err)
	}

	if err := l.RestoreAll(); err != nil {
		t.Fatalf("RestoreAll failed: %v", err)
	}

	g, _ := reg.GetByID("agent-gaming")
	if g.Knowledge().SuccessRates["gpu_priority_boost"] != 0.91 {
		t.Errorf("restored rate = %f, want 0.91", g.Knowledge().SuccessRates["gpu_priority_boost"])
	}
}

func TestRestoreAllMissingIsFine(t *testing.T) {
	l, _, _ := newTestLearner(t)
	if err := l.RestoreAll(); err != nil {
		t.Errorf("fresh store should restore cleanly: %v", err)
	}
}

func TestPersistAllRoundTrip(t *testing.T) {
	l, _, st := newTestLearner(t)

	if err := l.Update(models.AgentFeedback{
		AgentID: "agent-gaming",
		Action:  "power_profile_max",
		Kind:    models.FeedbackPartialSuccess,
	}); err != nil {
		t.Fatal(err)
	}

	l.PersistAll()

	k, err := st.LoadKnowledge("agent-gaming")
	if err != nil {
		t.Fatal(err)
	}
	if k == nil || k.SampleCounts["power_profile_max"] != 1 {
		t.Error("PersistAll did not write the live knowledge")
	}
}
