package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medgraph/prosearch/graph/emit"
	"github.com/medgraph/prosearch/graph/store"
)

// Reducer merges a node's partial state update into the running state.
// It must be deterministic; the engine calls it once per completed node
// (and once per fan-out branch, in task order).
type Reducer[S any] func(prev, delta S) S

// Engine orchestrates stateful graph execution.
//
// The Engine:
//   - Manages graph topology (nodes and edges)
//   - Executes nodes sequentially, or concurrently for fan-out tasks
//   - Merges state deltas via the reducer at each completion boundary
//   - Persists state per step via the store
//   - Emits observability events via the emitter
//   - Enforces MaxSteps
//
// Type parameter S is the state type shared across the run.
//
// Example:
//
//	engine := graph.New(mergeFn, store.NewMemStore[State](), emit.NewLogEmitter(os.Stderr, false), graph.Options{MaxSteps: 100})
//	engine.Add("work", workNode)
//	engine.StartAt("work")
//	final, err := engine.Run(ctx, "run-001", State{})
type Engine[S any] struct {
	mu sync.RWMutex

	reducer   Reducer[S]
	nodes     map[string]Node[S]
	edges     []Edge[S]
	startNode string
	store     store.Store[S]
	emitter   emit.Emitter
	metrics   *Metrics
	opts      Options
}

// Options configures Engine execution behavior. Zero values are valid.
type Options struct {
	// MaxSteps limits a run to prevent infinite loops. 0 means no limit.
	MaxSteps int
}

// New creates an Engine. The emitter may be nil; the reducer and store
// are validated when Run is called.
func New[S any](reducer Reducer[S], st store.Store[S], emitter emit.Emitter, opts Options) *Engine[S] {
	return &Engine[S]{
		reducer: reducer,
		nodes:   make(map[string]Node[S]),
		edges:   make([]Edge[S], 0),
		store:   st,
		emitter: emitter,
		opts:    opts,
	}
}

// WithMetrics attaches a Prometheus metrics collector. Returns the engine
// for chaining.
func (e *Engine[S]) WithMetrics(m *Metrics) *Engine[S] {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
	return e
}

// Add registers a node. Node IDs must be unique and non-empty.
func (e *Engine[S]) Add(nodeID string, node Node[S]) error {
	if nodeID == "" {
		return &EngineError{Message: "node ID cannot be empty"}
	}
	if node == nil {
		return &EngineError{Message: "node cannot be nil"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; exists {
		return &EngineError{Message: "duplicate node ID: " + nodeID, Code: "DUPLICATE_NODE"}
	}

	e.nodes[nodeID] = node
	return nil
}

// StartAt sets the entry node for execution. The node must already be
// registered via Add.
func (e *Engine[S]) StartAt(nodeID string) error {
	if nodeID == "" {
		return &EngineError{Message: "start node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.nodes[nodeID]; !exists {
		return &EngineError{Message: "start node does not exist: " + nodeID, Code: "NODE_NOT_FOUND"}
	}

	e.startNode = nodeID
	return nil
}

// Connect declares an edge from one node to another, optionally guarded
// by a predicate. Node existence is not validated here so graphs can be
// built in any order.
func (e *Engine[S]) Connect(from, to string, predicate Predicate[S]) error {
	if from == "" {
		return &EngineError{Message: "from node ID cannot be empty"}
	}
	if to == "" {
		return &EngineError{Message: "to node ID cannot be empty"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.edges = append(e.edges, Edge[S]{From: from, To: to, When: predicate})
	return nil
}

// Run executes the graph from the start node until a node stops the run
// or an error occurs.
//
// Per completed node the engine merges the delta, persists the state, and
// emits an event. Fan-out tasks run concurrently; their deltas are merged
// in task order so the fan-in is deterministic regardless of completion
// order. Any node or branch error aborts the run immediately.
func (e *Engine[S]) Run(ctx context.Context, runID string, initial S) (S, error) {
	var zero S

	if e.reducer == nil {
		return zero, &EngineError{Message: "reducer is required", Code: "MISSING_REDUCER"}
	}
	if e.store == nil {
		return zero, &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}
	if e.startNode == "" {
		return zero, &EngineError{Message: "start node not set (call StartAt before Run)", Code: "NO_START_NODE"}
	}

	currentState := initial
	currentNode := e.startNode
	step := 0

	for {
		step++

		if e.opts.MaxSteps > 0 && step > e.opts.MaxSteps {
			return zero, fmt.Errorf("step %d: %w", step, ErrMaxStepsExceeded)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		e.mu.RLock()
		nodeImpl, exists := e.nodes[currentNode]
		e.mu.RUnlock()

		if !exists {
			return zero, &EngineError{Message: "node not found during execution: " + currentNode, Code: "NODE_NOT_FOUND"}
		}

		start := time.Now()
		result := nodeImpl.Run(ctx, currentState)
		e.observeStep(currentNode, start, result.Err)

		if result.Err != nil {
			e.emitEvent(runID, step, currentNode, "node failed", map[string]interface{}{"error": result.Err.Error()})
			return zero, result.Err
		}

		currentState = e.reducer(currentState, result.Delta)

		if err := e.store.SaveStep(ctx, runID, step, currentNode, currentState); err != nil {
			return zero, &EngineError{Message: "failed to save step: " + err.Error(), Code: "STORE_ERROR"}
		}

		e.emitEvent(runID, step, currentNode, "node completed", nil)

		if len(result.Tasks) > 0 {
			merged, consumed, err := e.runFanOut(ctx, runID, step, currentState, result.Tasks)
			if err != nil {
				return zero, err
			}
			currentState = merged
			step += consumed

			next := e.evaluateEdges(result.Tasks[0].Node, currentState)
			if next == "" {
				return zero, fmt.Errorf("%w: %s (fan-out)", ErrNoRoute, result.Tasks[0].Node)
			}
			currentNode = next
			continue
		}

		if result.Route.Terminal {
			return currentState, nil
		}

		if result.Route.To != "" {
			currentNode = result.Route.To
			continue
		}

		next := e.evaluateEdges(currentNode, currentState)
		if next == "" {
			return zero, fmt.Errorf("%w: %s", ErrNoRoute, currentNode)
		}
		currentNode = next
	}
}

// runFanOut executes a batch of tasks concurrently and merges their
// deltas into state in task order. It returns the merged state and the
// number of steps consumed (one per task).
//
// All tasks must target the same node, and branches may not fan out
// again; both conditions are reported as engine errors.
func (e *Engine[S]) runFanOut(ctx context.Context, runID string, step int, state S, tasks []Task[S]) (S, int, error) {
	var zero S

	target := tasks[0].Node
	for _, t := range tasks {
		if t.Node != target {
			return zero, 0, &EngineError{Message: "fan-out tasks must target a single node", Code: "FANOUT_MIXED_TARGET"}
		}
	}

	e.mu.RLock()
	nodeImpl, exists := e.nodes[target]
	e.mu.RUnlock()
	if !exists {
		return zero, 0, &EngineError{Message: "fan-out node not found: " + target, Code: "NODE_NOT_FOUND"}
	}

	if e.metrics != nil {
		e.metrics.ObserveFanOut(len(tasks))
	}

	results := make([]NodeResult[S], len(tasks))
	var wg sync.WaitGroup
	for i, t := range tasks {
		wg.Add(1)
		go func(i int, input S) {
			defer wg.Done()
			start := time.Now()
			results[i] = nodeImpl.Run(ctx, input)
			e.observeStep(target, start, results[i].Err)
		}(i, t.State)
	}
	wg.Wait()

	for _, r := range results {
		if r.Err != nil {
			e.emitEvent(runID, step, target, "fan-out branch failed", map[string]interface{}{"error": r.Err.Error()})
			return zero, 0, r.Err
		}
		if len(r.Tasks) > 0 {
			return zero, 0, &EngineError{Message: "nested fan-out is not supported", Code: "FANOUT_NESTED"}
		}
	}

	// Deterministic fan-in: merge in task order, not completion order.
	for i, r := range results {
		step++
		state = e.reducer(state, r.Delta)
		if err := e.store.SaveStep(ctx, runID, step, target, state); err != nil {
			return zero, 0, &EngineError{Message: "failed to save step: " + err.Error(), Code: "STORE_ERROR"}
		}
		e.emitEvent(runID, step, target, "fan-out branch merged", map[string]interface{}{"branch": i, "branches": len(tasks)})
	}

	return state, len(tasks), nil
}

// evaluateEdges finds the first matching edge from the given node.
// Unconditional edges always match; otherwise the predicate decides.
// Returns "" when no edge matches.
func (e *Engine[S]) evaluateEdges(fromNode string, state S) string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, edge := range e.edges {
		if edge.From != fromNode {
			continue
		}
		if edge.When == nil || edge.When(state) {
			return edge.To
		}
	}
	return ""
}

func (e *Engine[S]) emitEvent(runID string, step int, nodeID, msg string, meta map[string]interface{}) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(emit.Event{RunID: runID, Step: step, NodeID: nodeID, Msg: msg, Meta: meta})
}

func (e *Engine[S]) observeStep(nodeID string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.ObserveStep(nodeID, status, time.Since(start))
}

// EngineError is an error from Engine configuration or execution.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
