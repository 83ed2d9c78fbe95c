package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore[testState] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steps.db")
	st, err := NewSQLiteStore[testState](path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestSQLiteStore_SaveAndLoadLatest(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	steps := []struct {
		step   int
		nodeID string
		state  testState
	}{
		{1, "generate_query", testState{}},
		{2, "web_research_search", testState{Loops: 0, Summaries: nil}},
		{3, "reflection", testState{Loops: 1, Summaries: []string{"s1"}}},
	}
	for _, s := range steps {
		if err := st.SaveStep(ctx, "run-1", s.step, s.nodeID, s.state); err != nil {
			t.Fatalf("SaveStep(%d) failed: %v", s.step, err)
		}
	}

	state, step, err := st.LoadLatest(ctx, "run-1")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if step != 3 {
		t.Errorf("expected step 3, got %d", step)
	}
	if state.Loops != 1 || len(state.Summaries) != 1 || state.Summaries[0] != "s1" {
		t.Errorf("unexpected state: %+v", state)
	}
}

func TestSQLiteStore_UnknownRun(t *testing.T) {
	st := newTestSQLite(t)
	_, _, err := st.LoadLatest(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_DuplicateStepRejected(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	if err := st.SaveStep(ctx, "run-2", 1, "n", testState{}); err != nil {
		t.Fatalf("first SaveStep failed: %v", err)
	}
	if err := st.SaveStep(ctx, "run-2", 1, "n", testState{}); err == nil {
		t.Fatal("expected unique constraint violation for duplicate step")
	}
}

func TestSQLiteStore_RunsAreIsolated(t *testing.T) {
	ctx := context.Background()
	st := newTestSQLite(t)

	if err := st.SaveStep(ctx, "run-a", 1, "n", testState{Loops: 1}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}
	if err := st.SaveStep(ctx, "run-b", 5, "n", testState{Loops: 9}); err != nil {
		t.Fatalf("SaveStep failed: %v", err)
	}

	state, step, err := st.LoadLatest(ctx, "run-a")
	if err != nil {
		t.Fatalf("LoadLatest failed: %v", err)
	}
	if step != 1 || state.Loops != 1 {
		t.Errorf("run-a leaked state from another run: step=%d state=%+v", step, state)
	}
}
