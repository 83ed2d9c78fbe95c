// Package emit provides pluggable observability for graph execution.
package emit

// Event is an observability event emitted during a research run.
//
// Events cover node completions, fan-out branch merges, and failures.
// They can be logged, turned into OpenTelemetry spans, or discarded.
type Event struct {
	// RunID identifies the run that emitted this event.
	RunID string

	// Step is the sequential step number within the run (1-indexed).
	Step int

	// NodeID identifies the node this event concerns.
	NodeID string

	// Msg is a human-readable description of the event.
	Msg string

	// Meta carries additional structured data. Common keys:
	//   - "error": failure details
	//   - "branch", "branches": fan-out merge position and batch width
	Meta map[string]interface{}
}
