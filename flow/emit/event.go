package emit

// Event represents an observability event emitted during graph validation.
//
// The validator emits three event kinds:
//   - "validate_start": a validation call began (Meta: nodes, connections)
//   - "finding": one finding was produced (Meta: kind, severity, detail)
//   - "validate_end": the call completed (Meta: errors, warnings)
//
// Events are delivered to an Emitter which can log them, convert them to
// OpenTelemetry spans, or discard them.
type Event struct {
	// Workflow is the name of the workflow being validated. May be empty
	// when the source document has no name.
	Workflow string

	// Node identifies the node a finding concerns. Empty for lifecycle
	// and graph-level events.
	Node string

	// Msg names the event ("validate_start", "finding", "validate_end").
	Msg string

	// Meta carries additional structured data specific to this event.
	Meta map[string]any
}
