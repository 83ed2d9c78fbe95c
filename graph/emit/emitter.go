package emit

// Emitter receives observability events from graph execution.
//
// Implementations should be:
//   - Non-blocking: avoid slowing down the pipeline
//   - Thread-safe: events arrive from concurrent fan-out branches
//   - Resilient: a failing backend must not crash the run
type Emitter interface {
	// Emit sends an event to the configured backend. Emit must not
	// panic; backend errors are handled internally.
	Emit(event Event)
}
