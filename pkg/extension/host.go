package extension

import (
	"github.com/inbucket/reroute/pkg/extension/event"
)

// Host defines the transport extension points the reroute engine attaches to.
type Host struct {
	Events *Events
}

// Events defines all the event types supported by the extension host.
//
// OnResolvedMessage is emitted synchronously by the transport once recipients have been resolved.
// Listeners may modify the message headers and register routing overrides through the event's
// routing context.  The first listener to respond with a non-nil value stops the remaining
// listeners from being called; the reroute engine always responds with nil.
//
// After-events allow extensions to take an action after an event has completed.  These events are
// processed asynchronously with respect to the transport.
type Events struct {
	AfterMessageEvaluated AsyncEventBroker[event.EvaluationReport]
	OnResolvedMessage     EventBroker[event.ResolvedMessage, Void]
}

// Void indicates the event emitter will ignore any value returned by listeners.
type Void struct{}

// NewHost creates a new extension host.
func NewHost() *Host {
	return &Host{Events: &Events{}}
}
