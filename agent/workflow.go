package agent

import (
	"context"

	"github.com/medgraph/prosearch/graph"
	"github.com/medgraph/prosearch/graph/emit"
	"github.com/medgraph/prosearch/graph/model"
	"github.com/medgraph/prosearch/graph/store"
)

// Node IDs for the research pipeline.
const (
	NodeGenerateQuery    = "generate_query"
	NodeWebSearch        = "web_research_search"
	NodeSummarize        = "web_research_report"
	NodeReflect          = "reflection"
	NodeEvaluateResearch = "evaluate_research"
	NodeFinalize         = "finalize_answer"
)

// maxEngineSteps bounds a run well past any legal loop count so a
// routing bug cannot spin forever.
const maxEngineSteps = 200

// Workflow is a configured research pipeline ready to run.
type Workflow struct {
	engine *graph.Engine[OverallState]
	cfg    Config
}

// NewWorkflow assembles the pipeline graph:
//
//	generate_query -> web_research_search (fan-out, one task per query)
//	web_research_search -> web_research_report -> reflection -> evaluate_research
//	evaluate_research -> web_research_search (follow-ups) or finalize_answer
func NewWorkflow(cfg Config, llm model.ChatModel, search Searcher, st store.Store[OverallState], emitter emit.Emitter, metrics *graph.Metrics) (*Workflow, error) {
	nodes := NewNodes(cfg, llm, search)

	engine := graph.New(Merge, st, emitter, graph.Options{MaxSteps: maxEngineSteps})
	if metrics != nil {
		engine.WithMetrics(metrics)
	}

	registrations := []struct {
		id string
		fn graph.NodeFunc[OverallState]
	}{
		{NodeGenerateQuery, nodes.GenerateQuery},
		{NodeWebSearch, nodes.WebSearch},
		{NodeSummarize, nodes.Summarize},
		{NodeReflect, nodes.Reflect},
		{NodeEvaluateResearch, nodes.EvaluateResearch},
		{NodeFinalize, nodes.Finalize},
	}
	for _, r := range registrations {
		if err := engine.Add(r.id, r.fn); err != nil {
			return nil, err
		}
	}

	edges := []struct{ from, to string }{
		{NodeWebSearch, NodeSummarize},
		{NodeSummarize, NodeReflect},
		{NodeReflect, NodeEvaluateResearch},
	}
	for _, e := range edges {
		if err := engine.Connect(e.from, e.to, nil); err != nil {
			return nil, err
		}
	}

	if err := engine.StartAt(NodeGenerateQuery); err != nil {
		return nil, err
	}

	return &Workflow{engine: engine, cfg: cfg}, nil
}

// RunOption overrides per-run settings.
type RunOption func(*OverallState)

// WithInitialQueryCount overrides the configured initial query count
// for one run.
func WithInitialQueryCount(n int) RunOption {
	return func(s *OverallState) { s.InitialSearchQueryCount = n }
}

// WithMaxResearchLoops overrides the configured loop limit for one run.
func WithMaxResearchLoops(n int) RunOption {
	return func(s *OverallState) { s.MaxResearchLoops = n }
}

// Run executes the pipeline for one conversation and returns the final
// state: the conversation extended with the answer message, plus the
// deduplicated sources.
func (w *Workflow) Run(ctx context.Context, runID string, messages []model.Message, opts ...RunOption) (OverallState, error) {
	initial := OverallState{Messages: messages}
	for _, opt := range opts {
		opt(&initial)
	}
	return w.engine.Run(ctx, runID, initial)
}
