package emit

// Emitter receives and processes observability events from graph
// validation.
//
// Emitters enable pluggable observability backends: stdout/file logging,
// distributed tracing, or nothing at all. Implementations should be
// non-blocking, thread-safe, and resilient — an emitter failure must
// never fail a validation call.
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	// Emit should not panic; errors are handled internally.
	Emit(event Event)
}
