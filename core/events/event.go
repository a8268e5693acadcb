package events

import "nftescrow/core/types"

// Event represents a structured state change emitted by the marketplace.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Typed adapts a canonical event payload to the Event interface.
type Typed struct {
	Payload *types.Event
}

// EventType implements Event.
func (t Typed) EventType() string {
	if t.Payload == nil {
		return ""
	}
	return t.Payload.Type
}

// Event returns the wrapped payload.
func (t Typed) Event() *types.Event { return t.Payload }

// PayloadOf extracts the canonical payload from evt when it carries one.
func PayloadOf(evt Event) *types.Event {
	if evt == nil {
		return nil
	}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		return carrier.Event()
	}
	return &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
}

// Multi fans a single emission out to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
