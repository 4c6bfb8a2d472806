package test

import (
	"errors"
	"sync"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/routing"
)

var (
	// ErrRoutingFailed is returned by FailingRouting.
	ErrRoutingFailed = errors.New("routing context failure")

	// ErrClearFailed is returned by ClearRoutingOverride when ClearFails is set.
	ErrClearFailed = errors.New("routing override could not be cleared")
)

// RoutingStub is a routing.Context recording every call.  It can be configured to fail or panic
// once a number of overrides have been registered.
type RoutingStub struct {
	sync.Mutex
	table      *routing.Table
	FailAfter  int  // Number of successful SetRoutingOverride calls before failing; -1 never fails.
	Panic      bool // Panic instead of returning ErrRoutingFailed.
	ClearFails bool // ClearRoutingOverride leaves the override in place.
	Sets       []string
	Clears     []string
}

var _ routing.Context = &RoutingStub{}

// NewRouting creates a RoutingStub that never fails.
func NewRouting() *RoutingStub {
	return &RoutingStub{table: routing.NewTable(), FailAfter: -1}
}

// FailingRouting creates a RoutingStub that fails after n overrides.
func FailingRouting(n int) *RoutingStub {
	r := NewRouting()
	r.FailAfter = n
	return r
}

// SetRoutingOverride implements routing.Context.
func (r *RoutingStub) SetRoutingOverride(rcpt *message.Recipient, o routing.Override) error {
	r.Lock()
	defer r.Unlock()
	if r.FailAfter >= 0 && len(r.Sets) >= r.FailAfter {
		if r.Panic {
			panic(ErrRoutingFailed)
		}
		return ErrRoutingFailed
	}
	if err := r.table.SetRoutingOverride(rcpt, o); err != nil {
		return err
	}
	r.Sets = append(r.Sets, rcpt.Address)
	return nil
}

// ClearRoutingOverride implements routing.Context.
func (r *RoutingStub) ClearRoutingOverride(rcpt *message.Recipient) error {
	r.Lock()
	defer r.Unlock()
	r.Clears = append(r.Clears, rcpt.Address)
	if r.ClearFails {
		return ErrClearFailed
	}
	return r.table.ClearRoutingOverride(rcpt)
}

// Lookup returns the override currently registered for address.
func (r *RoutingStub) Lookup(address string) (routing.Override, bool) {
	r.Lock()
	defer r.Unlock()
	return r.table.Lookup(address)
}

// Overridden returns the currently overridden addresses, sorted.
func (r *RoutingStub) Overridden() []string {
	r.Lock()
	defer r.Unlock()
	return r.table.Addresses()
}
