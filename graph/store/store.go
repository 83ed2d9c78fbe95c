// Package store provides run-state persistence for graph execution.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested run ID does not exist.
var ErrNotFound = errors.New("not found")

// Store persists the state of a run after each step.
//
// The pipeline has no retry or resume semantics; an aborted run loses
// its progress. The per-step history still makes a finished or failed
// run's trajectory inspectable after the fact.
//
// Implementations: MemStore (tests, short-lived runs), SQLiteStore
// (single file, zero setup), MySQLStore (shared server).
//
// Type parameter S is the state type to persist; it must be
// JSON-serializable.
type Store[S any] interface {
	// SaveStep persists the merged state after one node execution.
	// Steps are identified by runID + step number (1-indexed).
	SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error

	// LoadLatest returns the most recent persisted state for a run and
	// its step number. Returns ErrNotFound for unknown run IDs.
	LoadLatest(ctx context.Context, runID string) (state S, step int, err error)
}

// StepRecord is one persisted execution step.
type StepRecord[S any] struct {
	// Step is the sequential step number (1-indexed).
	Step int

	// NodeID identifies which node produced this state.
	NodeID string

	// State is the run state after this step's merge.
	State S
}
