package emit

// NullEmitter implements Emitter by discarding all events.
//
// This is the validator's default emitter: validation stays a pure
// function of its inputs unless the caller opts into observability.
type NullEmitter struct{}

// NewNullEmitter creates a new NullEmitter. It is safe for concurrent
// use and has zero overhead.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event without any processing.
func (n *NullEmitter) Emit(event Event) {}
