package reroute_test

import (
	"testing"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/stretchr/testify/assert"
)

const (
	controlHeader = "X-ACSOnPremConnector-Target"
	markerHeader  = "X-ACSOnPremConnector-Name"
)

func TestInspect(t *testing.T) {
	control := message.Header{Name: controlHeader, Value: "  mail.contoso.example "}
	marker := message.Header{Name: markerHeader, Value: "ACSOnPremConnector-RerouteAll"}

	testCases := []struct {
		name    string
		system  bool
		headers message.HeaderList
		gate    reroute.Gate
		outcome reroute.Outcome
		skip    bool
	}{
		{
			name:    "evaluate",
			headers: message.HeaderList{control},
			gate:    reroute.GateEvaluate,
			outcome: reroute.Processed,
		},
		{
			name:    "system message",
			system:  true,
			headers: message.HeaderList{control},
			gate:    reroute.GateSkipSystem,
			outcome: reroute.SkippedSystemMessage,
			skip:    true,
		},
		{
			name:    "system message wins over loop",
			system:  true,
			headers: message.HeaderList{control, marker},
			gate:    reroute.GateSkipSystem,
			outcome: reroute.SkippedSystemMessage,
			skip:    true,
		},
		{
			name:    "loop",
			headers: message.HeaderList{control, marker},
			gate:    reroute.GateSkipLoop,
			outcome: reroute.SkippedLoopDetected,
			skip:    true,
		},
		{
			name:    "loop without control header",
			headers: message.HeaderList{marker},
			gate:    reroute.GateSkipLoop,
			outcome: reroute.SkippedLoopDetected,
			skip:    true,
		},
		{
			name:    "no control header",
			headers: message.HeaderList{{Name: "Subject", Value: "hi"}},
			gate:    reroute.GateSkipNoControl,
			outcome: reroute.SkippedNoControlHeader,
			skip:    true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &message.Message{IsSystemMessage: tc.system, Header: tc.headers}
			got := reroute.Inspect(msg, controlHeader, markerHeader)
			assert.Equal(t, tc.gate, got.Gate)
			outcome, skip := got.Outcome()
			assert.Equal(t, tc.skip, skip)
			if skip {
				assert.Equal(t, tc.outcome, outcome)
			}
		})
	}
}

func TestInspectTrimsAndMatchesFirst(t *testing.T) {
	msg := &message.Message{Header: message.HeaderList{
		{Name: "x-acsonpremconnector-target", Value: "\tfirst.example "},
		{Name: controlHeader, Value: "second.example"},
	}}
	got := reroute.Inspect(msg, controlHeader, markerHeader)
	assert.Equal(t, reroute.GateEvaluate, got.Gate)
	assert.Equal(t, "first.example", got.Control)
}

func TestInspectReportsMarker(t *testing.T) {
	msg := &message.Message{Header: message.HeaderList{
		{Name: "x-acsonpremconnector-name", Value: "other"},
	}}
	got := reroute.Inspect(msg, controlHeader, markerHeader)
	assert.Equal(t, "x-acsonpremconnector-name", got.Marker.Name)
}

func TestOutcomeSeverity(t *testing.T) {
	assert.Equal(t, reroute.SeverityDebug, reroute.Processed.Severity())
	assert.Equal(t, reroute.SeverityDebug, reroute.SkippedSystemMessage.Severity())
	assert.Equal(t, reroute.SeverityDebug, reroute.SkippedNoControlHeader.Severity())
	assert.Equal(t, reroute.SeverityWarning, reroute.SkippedLoopDetected.Severity())
	assert.Equal(t, reroute.SeverityWarning, reroute.WarningInvalidDomain.Severity())
	assert.Equal(t, reroute.SeverityError, reroute.Error.Severity())
	assert.Equal(t, "WarningInvalidDomain", reroute.WarningInvalidDomain.String())
	assert.Equal(t, "Outcome(42)", reroute.Outcome(42).String())
}
