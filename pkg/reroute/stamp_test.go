package reroute_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/jhillyerd/goldiff"
	"github.com/stretchr/testify/assert"
)

var testMarkers = []reroute.Marker{
	{Name: "X-ACSOnPremConnector-Name", Value: "ACSOnPremConnector-RerouteAll"},
	{Name: "X-ACSOnPremConnector-Creator", Value: "reroute"},
	{Name: "X-ACSOnPremConnector-Contact", Value: "postmaster@contoso.example"},
}

func stampHeaders() message.HeaderList {
	return message.HeaderList{
		{Name: "From", Value: "sender@x.com"},
		{Name: "Subject", Value: "hello"},
		{Name: "X-ACSOnPremConnector-Creator", Value: "reroute"},
	}
}

func formatHeaders(hl message.HeaderList) []byte {
	b := &bytes.Buffer{}
	for _, h := range hl {
		fmt.Fprintf(b, "%s: %s\n", h.Name, h.Value)
	}
	return b.Bytes()
}

func TestStampIdempotent(t *testing.T) {
	s := reroute.Stamper{Markers: testMarkers, Mode: config.IdempotentStamping}
	h := stampHeaders()

	added := s.Stamp(&h)
	assert.Equal(t, []reroute.Marker{testMarkers[0], testMarkers[2]}, added)

	added = s.Stamp(&h)
	assert.Empty(t, added)

	for _, m := range testMarkers {
		assert.Equal(t, 1, h.Count(m.Name), "copies of %s", m.Name)
	}
	goldiff.File(t, formatHeaders(h), "testdata", "stamp-idempotent.golden")
}

func TestStampUnconditional(t *testing.T) {
	s := reroute.Stamper{Markers: testMarkers, Mode: config.UnconditionalStamping}
	h := stampHeaders()

	assert.Equal(t, testMarkers, s.Stamp(&h))
	assert.Equal(t, testMarkers, s.Stamp(&h))

	assert.Equal(t, 2, h.Count("X-ACSOnPremConnector-Name"))
	assert.Equal(t, 2, h.Count("X-ACSOnPremConnector-Contact"))
	assert.Equal(t, 3, h.Count("X-ACSOnPremConnector-Creator"))
	goldiff.File(t, formatHeaders(h), "testdata", "stamp-unconditional.golden")
}

func TestStampIdempotentDifferentValue(t *testing.T) {
	s := reroute.Stamper{Markers: testMarkers[:1], Mode: config.IdempotentStamping}
	h := message.HeaderList{
		{Name: "x-acsonpremconnector-name", Value: "acsonpremconnector-rerouteall"},
	}

	// Names match case-insensitively, values do not.
	added := s.Stamp(&h)
	assert.Equal(t, testMarkers[:1], added)
	assert.Equal(t, 2, h.Count("X-ACSOnPremConnector-Name"))
}

func TestStampDefaultModeIsIdempotent(t *testing.T) {
	s := reroute.Stamper{Markers: testMarkers}
	h := message.HeaderList{}
	s.Stamp(&h)
	s.Stamp(&h)
	assert.Len(t, h, len(testMarkers))
}
