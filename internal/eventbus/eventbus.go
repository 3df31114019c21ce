// Package eventbus carries dispatcher, topology and CDR events to
// collectors such as metrics sinks and the audit log.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event interface{}

// EventBus implements a simple publish/subscribe event bus.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus: an untyped TypedBus.
type Bus struct {
	*TypedBus[Event]
}

// New creates a new Bus.
func New() *Bus { return &Bus{TypedBus: NewTyped[Event]()} }

var _ EventBus = (*Bus)(nil)
