package reroute

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/policy"
)

// Default header names.
const (
	DefaultControlHeader = "X-ACSOnPremConnector-Target"
	DefaultMarkerHeader  = "X-ACSOnPremConnector-Name"
)

// Options configures an Engine.  The Engine keeps its own copy; changing Options after New has
// no effect.
type Options struct {
	ControlHeader string   // Header carrying the target domain.
	MarkerHeader  string   // Loop-prevention header; stamped with MarkerValue.
	MarkerValue   string   // Provenance value; defaults to the classifier variant's.
	Markers       []Marker // Informational markers stamped after the loop-prevention marker.
	Stamping      config.StampMode
	DebugEnabled  bool
}

// OptionsFromConfig builds Options from the environment configuration and the persisted
// settings store.
func OptionsFromConfig(c config.Reroute, s config.Settings) (Options, error) {
	variant, err := policy.ParseVariant(c.Policy)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		ControlHeader: c.ControlHeader,
		MarkerHeader:  c.MarkerHeader,
		MarkerValue:   c.MarkerValue,
		Stamping:      c.Stamping,
		DebugEnabled:  s.DebugEnabled,
	}
	if opts.MarkerValue == "" {
		opts.MarkerValue = variant.Provenance()
	}
	for _, m := range config.ParseMarkers(c.Markers) {
		opts.Markers = append(opts.Markers, Marker{Name: m.Name, Value: m.Value})
	}
	return opts, opts.validate()
}

func (o *Options) withDefaults(variant policy.Variant) Options {
	c := *o
	if c.ControlHeader == "" {
		c.ControlHeader = DefaultControlHeader
	}
	if c.MarkerHeader == "" {
		c.MarkerHeader = DefaultMarkerHeader
	}
	if c.MarkerValue == "" {
		c.MarkerValue = variant.Provenance()
	}
	if c.Stamping == "" {
		c.Stamping = config.IdempotentStamping
	}
	c.Markers = append([]Marker(nil), o.Markers...)
	return c
}

func (o *Options) validate() error {
	switch o.Stamping {
	case config.IdempotentStamping, config.UnconditionalStamping, "":
	default:
		return fmt.Errorf("unknown stamping mode %q", o.Stamping)
	}
	if o.ControlHeader != "" && o.MarkerHeader != "" && strings.EqualFold(o.ControlHeader, o.MarkerHeader) {
		return errors.New("control header and marker header must differ")
	}
	for _, m := range o.Markers {
		if m.Name == "" {
			return errors.New("marker header with empty name")
		}
	}
	return nil
}

// stamper returns the Stamper for o: the loop-prevention marker first, then the extra markers.
func (o *Options) stamper() Stamper {
	markers := make([]Marker, 0, len(o.Markers)+1)
	markers = append(markers, Marker{Name: o.MarkerHeader, Value: o.MarkerValue})
	markers = append(markers, o.Markers...)
	return Stamper{Markers: markers, Mode: o.Stamping}
}
