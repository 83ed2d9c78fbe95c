package graph

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/medgraph/prosearch/graph/store"
)

func TestMetrics_ObserveStep(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveStep("generate_query", "success", 5*time.Millisecond)
	metrics.ObserveStep("generate_query", "success", 7*time.Millisecond)
	metrics.ObserveStep("reflection", "error", time.Millisecond)

	if got := testutil.ToFloat64(metrics.steps.WithLabelValues("generate_query", "success")); got != 2 {
		t.Errorf("expected 2 successful steps, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.steps.WithLabelValues("reflection", "error")); got != 1 {
		t.Errorf("expected 1 failed step, got %v", got)
	}
}

func TestMetrics_CollectedThroughEngine(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	engine := New(testReducer, store.NewMemStore[TestState](), nil, Options{MaxSteps: 20}).WithMetrics(metrics)
	engine.Add("spread", NodeFunc[TestState](func(_ context.Context, s TestState) NodeResult[TestState] {
		return NodeResult[TestState]{
			Tasks: []Task[TestState]{
				{Node: "branch", State: TestState{}},
				{Node: "branch", State: TestState{}},
			},
		}
	}))
	engine.Add("branch", NodeFunc[TestState](func(_ context.Context, s TestState) NodeResult[TestState] {
		return NodeResult[TestState]{Delta: TestState{Counter: 1}}
	}))
	engine.Add("join", NodeFunc[TestState](func(_ context.Context, s TestState) NodeResult[TestState] {
		return NodeResult[TestState]{Route: Stop()}
	}))
	engine.Connect("branch", "join", nil)
	engine.StartAt("spread")

	if _, err := engine.Run(context.Background(), "run-metrics", TestState{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := testutil.ToFloat64(metrics.steps.WithLabelValues("branch", "success")); got != 2 {
		t.Errorf("expected 2 branch executions observed, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.steps.WithLabelValues("spread", "success")); got != 1 {
		t.Errorf("expected 1 spread execution observed, got %v", got)
	}
	if got := testutil.CollectAndCount(registry, "prosearch_fanout_tasks"); got != 1 {
		t.Errorf("expected fanout_tasks metric registered, got %d collected", got)
	}
}
