package graph

import "context"

// Node is a processing unit in the research graph. It receives the run
// state, performs its work (an LLM call, a literature search, pure
// routing), and returns a NodeResult describing state changes and where
// execution goes next.
//
// Type parameter S is the state type shared across the run.
type Node[S any] interface {
	Run(ctx context.Context, state S) NodeResult[S]
}

// NodeResult is the output of one node execution.
//
// Exactly one routing mechanism applies, checked in this order:
//   - Err non-nil: the run aborts
//   - Tasks non-empty: dynamic fan-out (see Task)
//   - Route.Terminal: the run completes
//   - Route.To: explicit successor
//   - otherwise: edge-based routing from this node
type NodeResult[S any] struct {
	// Delta is the partial state update produced by this node. It is
	// merged into the run state by the engine's reducer.
	Delta S

	// Route is the next hop after this node completes.
	Route Next

	// Tasks, when non-empty, fans execution out to one concurrent branch
	// per task. All tasks must target the same node; branch deltas are
	// merged in task order at the fan-in boundary.
	Tasks []Task[S]

	// Err aborts the run when non-nil. There is no retry.
	Err error
}

// Task is a payload-carrying unit of fan-out work. The target node runs
// concurrently with its sibling tasks, each on its own copy of the state.
type Task[S any] struct {
	// Node is the ID of the node to execute for this task.
	Node string

	// State is the input state for this branch. Callers copy the current
	// state and set branch-local fields on it.
	State S
}

// Next specifies where execution goes after a node completes.
type Next struct {
	// To names the next node. Mutually exclusive with Terminal.
	To string

	// Terminal stops the run.
	Terminal bool
}

// Stop returns a Next that terminates the run.
func Stop() Next {
	return Next{Terminal: true}
}

// Goto returns a Next that routes to the named node.
func Goto(nodeID string) Next {
	return Next{To: nodeID}
}

// NodeFunc adapts a plain function to the Node interface.
type NodeFunc[S any] func(ctx context.Context, state S) NodeResult[S]

// Run implements Node.
func (f NodeFunc[S]) Run(ctx context.Context, state S) NodeResult[S] {
	return f(ctx, state)
}

// NodeError is a structured error produced during node execution.
type NodeError struct {
	// Message is the human-readable description.
	Message string

	// Code is a machine-readable error code.
	Code string

	// NodeID identifies which node produced this error.
	NodeID string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Cause
}
