package reroute

import (
	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/message"
)

// Marker is a header stamped onto every evaluated message.
type Marker struct {
	Name  string
	Value string
}

// Stamper appends marker headers to a message.
type Stamper struct {
	Markers []Marker
	Mode    config.StampMode
}

// Stamp appends the markers to h, in order, and returns the markers it added.  In idempotent mode
// a marker is skipped when the first header with its name already carries the same value; values
// are compared case-sensitively.
func (s Stamper) Stamp(h *message.HeaderList) []Marker {
	added := make([]Marker, 0, len(s.Markers))
	for _, m := range s.Markers {
		if s.Mode != config.UnconditionalStamping {
			if existing, ok := h.FindFirst(m.Name); ok && existing.Value == m.Value {
				continue
			}
		}
		h.Append(m.Name, m.Value)
		added = append(added, m)
	}
	return added
}
