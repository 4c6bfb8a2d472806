package reroute

import (
	"fmt"
	"time"

	"github.com/inbucket/reroute/pkg/policy"
	"github.com/oklog/ulid/v2"
)

// Outcome is the terminal classification of one message evaluation.
type Outcome int

const (
	// Processed means the directive was valid and every eligible recipient was overridden.
	Processed Outcome = iota
	// SkippedSystemMessage means the host flagged the message as a system message.
	SkippedSystemMessage
	// SkippedLoopDetected means the loop-prevention marker was already present.
	SkippedLoopDetected
	// SkippedNoControlHeader means the message carries no control header.
	SkippedNoControlHeader
	// WarningInvalidDomain means the control header value is not a usable hostname.
	WarningInvalidDomain
	// Error means an unexpected fault ended the evaluation.
	Error
)

var outcomeNames = [...]string{
	Processed:              "Processed",
	SkippedSystemMessage:   "SkippedSystemMessage",
	SkippedLoopDetected:    "SkippedLoopDetected",
	SkippedNoControlHeader: "SkippedNoControlHeader",
	WarningInvalidDomain:   "WarningInvalidDomain",
	Error:                  "Error",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Severity returns the terminal log severity for the outcome.
func (o Outcome) Severity() Severity {
	switch o {
	case Error:
		return SeverityError
	case SkippedLoopDetected, WarningInvalidDomain:
		return SeverityWarning
	}
	return SeverityDebug
}

// Severity is the level of the single log entry finalizing an evaluation.
type Severity int

const (
	// SeverityDebug is only logged when debug logging is enabled.
	SeverityDebug Severity = iota
	// SeverityWarning is always logged.
	SeverityWarning
	// SeverityError is always logged.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	}
	return "Debug"
}

// Stage names the part of the evaluation a Fault occurred in.
type Stage string

// Evaluation stages, in order.
const (
	StageInspect  Stage = "inspect"
	StageValidate Stage = "validate"
	StageClassify Stage = "classify"
	StageOverride Stage = "override"
	StageStamp    Stage = "stamp"
)

// Fault is an unexpected failure caught at the evaluation boundary.
type Fault struct {
	Stage Stage
	Err   error
	Stack []byte // Set when the fault was a recovered panic.
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Result describes a finished evaluation.  Fault is non-nil exactly when Outcome is Error.
type Result struct {
	ID         ulid.ULID
	MessageID  string
	Policy     policy.Variant
	Outcome    Outcome
	Target     string        // Validated target domain.
	Overridden []string      // Recipients whose routing now points at Target.
	Stamped    []Marker      // Markers appended to the message headers.
	Elapsed    time.Duration // Wall-clock duration of the evaluation.
	Fault      *Fault
}
