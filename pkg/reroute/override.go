package reroute

import (
	"errors"
	"fmt"
	"strings"

	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/routing"
)

// ErrOverride wraps failures reported by the routing context.
var ErrOverride = errors.New("routing override failed")

// plan holds the recipients selected for override, in recipient order.  Nothing touches the
// routing context until commit.
type plan struct {
	domain     string
	recipients []*message.Recipient
	seen       map[string]bool
}

func newPlan(domain string) *plan {
	return &plan{domain: domain, seen: make(map[string]bool)}
}

// add stages rcpt and reports false if the address was already staged.
func (p *plan) add(rcpt *message.Recipient) bool {
	key := strings.ToLower(rcpt.Address)
	if p.seen[key] {
		return false
	}
	p.seen[key] = true
	p.recipients = append(p.recipients, rcpt)
	return true
}

func (p *plan) len() int {
	return len(p.recipients)
}

// commit registers an override for every staged recipient.  On the first failure, overrides
// already registered are cleared before the error is returned; a panicking routing context is
// rolled back the same way before the panic continues.
func (p *plan) commit(rc routing.Context) (applied []*message.Recipient, err error) {
	if p.len() == 0 {
		return nil, nil
	}
	if rc == nil {
		return nil, fmt.Errorf("%w: no routing context", ErrOverride)
	}

	applied = make([]*message.Recipient, 0, p.len())
	defer func() {
		if r := recover(); r != nil {
			repanic(r, rc, applied)
		}
	}()

	override := routing.NewOverride(p.domain)
	for _, rcpt := range p.recipients {
		if err := rc.SetRoutingOverride(rcpt, override); err != nil {
			err = fmt.Errorf("%w for %s: %w", ErrOverride, rcpt.Address, err)
			if rerr := rollback(rc, applied); rerr != nil {
				err = errors.Join(err, rerr)
			}
			return nil, err
		}
		applied = append(applied, rcpt)
	}
	return applied, nil
}

// rollback clears the overrides registered for rcpts, continuing past failures.
func rollback(rc routing.Context, rcpts []*message.Recipient) error {
	var errs []error
	for i := len(rcpts) - 1; i >= 0; i-- {
		if err := rc.ClearRoutingOverride(rcpts[i]); err != nil {
			errs = append(errs, fmt.Errorf("clearing override for %s: %w", rcpts[i].Address, err))
		}
	}
	return errors.Join(errs...)
}

// rollbackPanic carries a recovered panic whose rollback also failed.
type rollbackPanic struct {
	value any
	err   error
}

// repanic clears the overrides registered for rcpts and continues panicking with r.  A failed
// rollback is attached to the panic value so it reaches the evaluation fault.
func repanic(r any, rc routing.Context, rcpts []*message.Recipient) {
	if len(rcpts) > 0 {
		if err := rollback(rc, rcpts); err != nil {
			panic(rollbackPanic{value: r, err: err})
		}
	}
	panic(r)
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	switch v := r.(type) {
	case rollbackPanic:
		return errors.Join(panicError(v.value), v.err)
	case error:
		return fmt.Errorf("panic: %w", v)
	}
	return fmt.Errorf("panic: %v", r)
}

func addresses(rcpts []*message.Recipient) []string {
	if len(rcpts) == 0 {
		return nil
	}
	s := make([]string, len(rcpts))
	for i, r := range rcpts {
		s[i] = r.Address
	}
	return s
}
