// Package graph provides the task-graph executor that drives the research
// pipeline.
package graph

// Edge is a possible transition between two nodes.
//
// Edges can be:
//   - Unconditional: always traverse (When = nil).
//   - Conditional: traverse only if the predicate returns true.
//
// Explicit routing via NodeResult (Goto, Stop, Tasks) overrides edges.
// Edges declared first win when several match.
//
// Type parameter S is the state type evaluated by predicates.
type Edge[S any] struct {
	// From is the source node ID.
	From string

	// To is the destination node ID.
	To string

	// When is an optional traversal predicate. Nil means unconditional.
	When Predicate[S]
}

// Predicate evaluates state to decide whether an edge is traversed.
// Predicates must be pure: deterministic, no side effects.
type Predicate[S any] func(state S) bool
