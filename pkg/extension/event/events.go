package event

import (
	"time"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/routing"
)

// ResolvedMessage is emitted by the transport after recipient resolution.  Message and Recipients
// are shared with the transport for the duration of the event; Routing registers overrides for
// this message only.
type ResolvedMessage struct {
	Message    *message.Message
	Recipients []*message.Recipient
	Routing    routing.Context
}

// EvaluationReport summarizes one evaluation of a message by the reroute engine.
type EvaluationReport struct {
	ID         string        // Evaluation ID.
	MessageID  string        // Message-ID of the evaluated message.
	Sender     string        // Normalized sender address.
	Subject    string        // Trimmed subject.
	Policy     string        // Policy variant that evaluated the message.
	Outcome    string        // Terminal outcome name.
	Severity   string        // Terminal log severity.
	Target     string        // Validated target domain, empty when not evaluated or invalid.
	Overridden []string      // Recipients whose routing was overridden.
	Stamped    []string      // Marker headers added to the message.
	Elapsed    time.Duration // Wall-clock duration of the evaluation.
	Fault      string        // Fault detail for the Error outcome.
	Date       time.Time     // When the evaluation finished.
}
