package reroute

import (
	"strings"

	"github.com/inbucket/reroute/pkg/message"
)

// Gate is the decision of Inspect on whether a message is evaluated at all.
type Gate int

const (
	// GateEvaluate lets the message through to validation.
	GateEvaluate Gate = iota
	// GateSkipSystem skips system messages.
	GateSkipSystem
	// GateSkipLoop skips messages that already carry the loop-prevention marker.
	GateSkipLoop
	// GateSkipNoControl skips messages without the control header.
	GateSkipNoControl
)

// Inspection is the result of Inspect.
type Inspection struct {
	Gate    Gate
	Control string         // Trimmed control header value, set for GateEvaluate.
	Marker  message.Header // The loop-prevention header found, set for GateSkipLoop.
}

// Outcome returns the terminal outcome for a skipping gate.  GateEvaluate has no outcome of its
// own and reports false.
func (i Inspection) Outcome() (Outcome, bool) {
	switch i.Gate {
	case GateSkipSystem:
		return SkippedSystemMessage, true
	case GateSkipLoop:
		return SkippedLoopDetected, true
	case GateSkipNoControl:
		return SkippedNoControlHeader, true
	}
	return Processed, false
}

// Inspect decides whether msg is subject to evaluation.  System messages are checked first, then
// the loop-prevention marker, then the control header.
func Inspect(msg *message.Message, controlHeader, markerHeader string) Inspection {
	control, hasControl := msg.Header.FindFirst(controlHeader)
	marker, hasMarker := msg.Header.FindFirst(markerHeader)

	switch {
	case msg.IsSystemMessage:
		return Inspection{Gate: GateSkipSystem}
	case hasMarker:
		return Inspection{Gate: GateSkipLoop, Marker: marker}
	case !hasControl:
		return Inspection{Gate: GateSkipNoControl}
	}
	return Inspection{Gate: GateEvaluate, Control: strings.TrimSpace(control.Value)}
}
