// Package routing models per-message routing overrides registered with the transport.
package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/inbucket/reroute/pkg/message"
)

// QueueDomain selects which domain the transport uses to pick the delivery queue.
type QueueDomain int

const (
	// UseOverrideDomain queues the recipient under the override domain.
	UseOverrideDomain QueueDomain = iota
	// UseRecipientDomain keeps the recipient's own domain for queueing.
	UseRecipientDomain
)

func (q QueueDomain) String() string {
	if q == UseRecipientDomain {
		return "UseRecipientDomain"
	}
	return "UseOverrideDomain"
}

// Override replaces the effective delivery domain of one recipient for the current message.
type Override struct {
	Domain string
	Queue  QueueDomain
}

// NewOverride returns an Override binding the delivery queue to domain.
func NewOverride(domain string) Override {
	return Override{Domain: domain, Queue: UseOverrideDomain}
}

// Context is the routing state of the message being evaluated.  The transport hands a Context to
// each evaluation; it is never shared between messages.
type Context interface {
	// SetRoutingOverride registers o for rcpt.
	SetRoutingOverride(rcpt *message.Recipient, o Override) error
	// ClearRoutingOverride removes any override registered for rcpt.
	ClearRoutingOverride(rcpt *message.Recipient) error
}

// ErrDuplicateOverride is returned by Table when a recipient is overridden twice.
var ErrDuplicateOverride = errors.New("recipient already has a routing override")

// Table is an in-memory Context, used when no transport is attached (CLI, REST dry runs, tests).
// It is not safe for concurrent use, matching the one-Context-per-message contract.
type Table struct {
	overrides map[string]Override
}

var _ Context = &Table{}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{overrides: make(map[string]Override)}
}

func tableKey(rcpt *message.Recipient) string {
	return strings.ToLower(rcpt.Address)
}

// SetRoutingOverride implements Context.
func (t *Table) SetRoutingOverride(rcpt *message.Recipient, o Override) error {
	if o.Domain == "" {
		return fmt.Errorf("override for %q has no domain", rcpt.Address)
	}
	key := tableKey(rcpt)
	if _, ok := t.overrides[key]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOverride, rcpt.Address)
	}
	t.overrides[key] = o
	return nil
}

// ClearRoutingOverride implements Context.
func (t *Table) ClearRoutingOverride(rcpt *message.Recipient) error {
	delete(t.overrides, tableKey(rcpt))
	return nil
}

// Lookup returns the override registered for address.
func (t *Table) Lookup(address string) (Override, bool) {
	o, ok := t.overrides[strings.ToLower(address)]
	return o, ok
}

// Len returns the number of registered overrides.
func (t *Table) Len() int {
	return len(t.overrides)
}

// Addresses returns the overridden recipient addresses, sorted.
func (t *Table) Addresses() []string {
	addrs := make([]string, 0, len(t.overrides))
	for a := range t.overrides {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}
