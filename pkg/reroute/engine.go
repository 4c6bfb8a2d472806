// Package reroute decides, for each recipient of a resolved message, whether delivery is
// redirected to the domain named by the message's control header.
package reroute

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/metric"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/routing"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine evaluates messages against one policy variant.  It holds no per-message state and is
// safe for concurrent use.
type Engine struct {
	logger     zerolog.Logger
	opts       Options
	classifier policy.Classifier
	stamper    Stamper
	extHost    *extension.Host
}

// New creates an Engine applying classifier.  extHost may be nil, in which case no
// AfterMessageEvaluated events are emitted.
func New(opts Options, classifier policy.Classifier, extHost *extension.Host) (*Engine, error) {
	if classifier == nil {
		return nil, fmt.Errorf("reroute: classifier is required")
	}
	variant := classifier.Variant()
	opts = opts.withDefaults(variant)
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("reroute: %w", err)
	}

	logger := log.With().Str("module", "reroute").Str("policy", string(variant)).Logger().
		Hook(logHook{})

	return &Engine{
		logger:     logger,
		opts:       opts,
		classifier: classifier,
		stamper:    opts.stamper(),
		extHost:    extHost,
	}, nil
}

// Variant returns the policy variant applied by the engine.
func (e *Engine) Variant() policy.Variant {
	return e.classifier.Variant()
}

// Register subscribes the engine to the host's OnResolvedMessage event.
func (e *Engine) Register(host *extension.Host) {
	host.Events.OnResolvedMessage.AddListener(
		string(e.Variant()),
		func(ev event.ResolvedMessage) *extension.Void {
			e.Evaluate(context.Background(), ev.Message, ev.Recipients, ev.Routing)
			return nil
		})
}

// Evaluate runs one message through the engine, registering overrides with rc and stamping the
// marker headers onto msg.  It never panics: every failure is reported as an Error outcome, in
// which case msg and rc are left as they were before the call.
func (e *Engine) Evaluate(
	ctx context.Context,
	msg *message.Message,
	rcpts []*message.Recipient,
	rc routing.Context,
) (res Result) {
	start := time.Now()
	res = Result{ID: ulid.Make(), Policy: e.Variant()}
	report := &Report{}
	stage := StageInspect

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = Error
			res.Fault = &Fault{Stage: stage, Err: panicError(r), Stack: debug.Stack()}
			res.Overridden = nil
			res.Stamped = nil
			report.Appendf("Message passed through unmodified after a fault during %s", stage)
		}
		res.Elapsed = time.Since(start)
		report.Appendf("Evaluation took %d ms", res.Elapsed.Milliseconds())
		report.Finalize(e.logger, &res, e.opts.DebugEnabled)
		metric.ObserveEvaluation(string(res.Policy), res.Outcome.String(), res.Elapsed,
			len(res.Overridden))
		e.publish(msg, &res)
	}()

	res.MessageID = msg.ID
	report.Appendf("Processing message %s from %s with subject %s",
		msg.ID, msg.Sender(), strings.TrimSpace(msg.Subject))

	if err := e.evaluate(ctx, msg, rcpts, rc, report, &stage, &res); err != nil {
		res.Outcome = Error
		res.Fault = &Fault{Stage: stage, Err: err}
		res.Overridden = nil
		res.Stamped = nil
		report.AppendError(err)
		report.Appendf("Message passed through unmodified after a fault during %s", stage)
	}
	return res
}

// evaluate holds the state machine; stage tracks progress for fault reporting.
func (e *Engine) evaluate(
	ctx context.Context,
	msg *message.Message,
	rcpts []*message.Recipient,
	rc routing.Context,
	report *Report,
	stage *Stage,
	res *Result,
) error {
	insp := Inspect(msg, e.opts.ControlHeader, e.opts.MarkerHeader)
	if outcome, skip := insp.Outcome(); skip {
		res.Outcome = outcome
		switch insp.Gate {
		case GateSkipSystem:
			report.Appendf("Message has not been processed as IsSystemMessage")
		case GateSkipLoop:
			report.Appendf("Message has not been processed as %s is already present", insp.Marker.Name)
			report.Appendf("This might mean there is a mail LOOP. Trace the message carefully.")
		case GateSkipNoControl:
			report.Appendf("Message has not been processed as %s is not set", e.opts.ControlHeader)
		}
		return nil
	}
	report.Appendf("Rerouting messages as the control header %s is present", e.opts.ControlHeader)

	*stage = StageValidate
	directive := policy.ValidateTarget(insp.Control)
	p := newPlan(directive.Domain)
	if directive.Valid {
		report.Appendf("Rerouting domain is valid as the header %s is set to %s",
			e.opts.ControlHeader, directive.Domain)
		res.Outcome = Processed
		res.Target = directive.Domain

		*stage = StageClassify
		for _, rcpt := range rcpts {
			if err := e.classify(ctx, rcpt, p, report); err != nil {
				return err
			}
		}
	} else {
		report.Appendf("There was a problem processing the %s header value: %v",
			e.opts.ControlHeader, directive.Reason)
		report.Appendf("The value retrieved is: %q", directive.Raw)
		res.Outcome = WarningInvalidDomain
	}

	*stage = StageOverride
	applied, err := p.commit(rc)
	if err != nil {
		return err
	}
	for _, rcpt := range applied {
		report.Appendf("Recipient %s overridden to %s", rcpt.Address, p.domain)
	}

	*stage = StageStamp
	stamped := e.stamp(msg, rc, applied)
	for _, m := range stamped {
		report.Appendf("ADDED header %s: %s", m.Name, m.Value)
	}

	res.Overridden = addresses(applied)
	res.Stamped = stamped
	return nil
}

// classify logs the verdict for rcpt and stages it when eligible.
func (e *Engine) classify(
	ctx context.Context,
	rcpt *message.Recipient,
	p *plan,
	report *Report,
) error {
	verdict, err := e.classifier.Classify(ctx, rcpt)
	if err != nil {
		return fmt.Errorf("classifying %s: %w", rcpt.Address, err)
	}
	report.Appendf("Recipient %s: %s", rcpt.Address, verdict.Basis)
	if !verdict.Eligible {
		report.Appendf("Recipient %s not overridden as %s", rcpt.Address, verdict.Reason)
		return nil
	}
	if !p.add(rcpt) {
		report.Appendf("Recipient %s listed more than once, already staged", rcpt.Address)
	}
	return nil
}

// stamp appends the markers to a copy of the headers and swaps it in once stamping completes.  If
// stamping panics, the committed overrides are cleared before the panic continues.
func (e *Engine) stamp(
	msg *message.Message,
	rc routing.Context,
	applied []*message.Recipient,
) []Marker {
	defer func() {
		if r := recover(); r != nil {
			repanic(r, rc, applied)
		}
	}()

	header := msg.Header.Clone()
	stamped := e.stamper.Stamp(&header)
	msg.Header = header
	return stamped
}

// publish emits the AfterMessageEvaluated event.
func (e *Engine) publish(msg *message.Message, res *Result) {
	if e.extHost == nil {
		return
	}
	report := event.EvaluationReport{
		ID:         res.ID.String(),
		MessageID:  res.MessageID,
		Policy:     string(res.Policy),
		Outcome:    res.Outcome.String(),
		Severity:   res.Outcome.Severity().String(),
		Target:     res.Target,
		Overridden: res.Overridden,
		Elapsed:    res.Elapsed,
		Date:       time.Now(),
	}
	if msg != nil {
		report.Sender = msg.Sender()
		report.Subject = strings.TrimSpace(msg.Subject)
	}
	for _, m := range res.Stamped {
		report.Stamped = append(report.Stamped, m.Name)
	}
	if res.Fault != nil {
		report.Fault = res.Fault.Error()
	}
	e.extHost.Events.AfterMessageEvaluated.Emit(&report)
}
