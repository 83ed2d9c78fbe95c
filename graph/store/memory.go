package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store implementation.
//
// Designed for tests and single-process runs where persistence across
// restarts is not needed. Thread-safe. States are stored as deep copies
// (JSON round-trip) so later mutations of the caller's state cannot
// corrupt the history.
type MemStore[S any] struct {
	mu    sync.RWMutex
	steps map[string][]StepRecord[S]
}

// NewMemStore creates an empty in-memory store.
func NewMemStore[S any]() *MemStore[S] {
	return &MemStore[S]{steps: make(map[string][]StepRecord[S])}
}

// SaveStep implements Store.
func (m *MemStore[S]) SaveStep(ctx context.Context, runID string, step int, nodeID string, state S) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	copied, err := deepCopy(state)
	if err != nil {
		return fmt.Errorf("memstore: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[runID] = append(m.steps[runID], StepRecord[S]{Step: step, NodeID: nodeID, State: copied})
	return nil
}

// LoadLatest implements Store.
func (m *MemStore[S]) LoadLatest(ctx context.Context, runID string) (S, int, error) {
	var zero S
	if ctx.Err() != nil {
		return zero, 0, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	records, ok := m.steps[runID]
	if !ok || len(records) == 0 {
		return zero, 0, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}

	latest := records[0]
	for _, r := range records[1:] {
		if r.Step > latest.Step {
			latest = r
		}
	}
	return latest.State, latest.Step, nil
}

// StepCount returns the number of recorded steps for a run. Useful in
// tests asserting how many merges a run performed.
func (m *MemStore[S]) StepCount(runID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.steps[runID])
}

// deepCopy round-trips the state through JSON to detach it from the
// caller. Unexported fields and non-marshalable types are not preserved.
func deepCopy[S any](state S) (S, error) {
	var copied S
	data, err := json.Marshal(state)
	if err != nil {
		return copied, fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := json.Unmarshal(data, &copied); err != nil {
		return copied, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return copied, nil
}
