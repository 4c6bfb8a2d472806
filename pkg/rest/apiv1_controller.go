package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/inbucket/reroute/pkg/message"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/inbucket/reroute/pkg/rest/model"
	"github.com/inbucket/reroute/pkg/routing"
	"github.com/inbucket/reroute/pkg/server/web"
)

// maxRequestSize limits the body of an evaluate request.
const maxRequestSize = 10 << 20

// EvaluateV1 runs the submitted message through the engine against an in-memory routing table,
// and renders the outcome.  Nothing is delivered.
func EvaluateV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	var jreq model.JSONEvaluateRequestV1
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxRequestSize))
	if err := dec.Decode(&jreq); err != nil {
		return web.BadRequest(fmt.Errorf("failed to decode request: %w", err))
	}
	msg, err := requestMessage(&jreq)
	if err != nil {
		return web.BadRequest(err)
	}
	rcpts, err := requestRecipients(jreq.Recipients)
	if err != nil {
		return web.BadRequest(err)
	}

	rc := routing.NewTable()
	res := ctx.Engine.Evaluate(req.Context(), msg, rcpts, rc)

	result := &model.JSONEvaluateResultV1{
		ID:        res.ID.String(),
		MessageID: res.MessageID,
		Policy:    string(res.Policy),
		Outcome:   res.Outcome.String(),
		Severity:  res.Outcome.Severity().String(),
		Target:    res.Target,
		Routes:    make([]model.JSONRouteV1, 0, rc.Len()),
		Stamped:   make([]model.JSONHeaderV1, 0, len(res.Stamped)),
		Headers:   jsonHeaders(msg.Header),
		ElapsedMS: res.Elapsed.Milliseconds(),
	}
	for _, addr := range rc.Addresses() {
		o, _ := rc.Lookup(addr)
		result.Routes = append(result.Routes, model.JSONRouteV1{
			Address: addr,
			Domain:  o.Domain,
			Queue:   o.Queue.String(),
		})
	}
	for _, m := range res.Stamped {
		result.Stamped = append(result.Stamped, model.JSONHeaderV1{Name: m.Name, Value: m.Value})
	}
	if res.Fault != nil {
		result.Fault = res.Fault.Error()
	}
	return web.RenderJSON(w, result)
}

// StatusV1 renders the engine configuration and the evaluations held by the hub.
func StatusV1(w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	conf := ctx.RootConfig.Reroute
	status := &model.JSONStatusV1{
		Version:       config.Version,
		BuildDate:     config.BuildDate,
		Policy:        string(ctx.Engine.Variant()),
		ControlHeader: conf.ControlHeader,
		MarkerHeader:  conf.MarkerHeader,
		Stamping:      string(conf.Stamping),
		Recent:        make([]model.JSONEvaluationV1, 0),
	}
	if status.ControlHeader == "" {
		status.ControlHeader = reroute.DefaultControlHeader
	}
	if status.MarkerHeader == "" {
		status.MarkerHeader = reroute.DefaultMarkerHeader
	}
	if status.Stamping == "" {
		status.Stamping = string(config.IdempotentStamping)
	}
	if ctx.MsgHub != nil {
		for _, r := range ctx.MsgHub.Recent() {
			status.Recent = append(status.Recent, *reportToEvaluation(&r))
		}
	}
	return web.RenderJSON(w, status)
}

// requestMessage builds the Message described by jreq.
func requestMessage(jreq *model.JSONEvaluateRequestV1) (*message.Message, error) {
	if jreq.Source != "" {
		msg, err := message.ReadSource(strings.NewReader(jreq.Source))
		if err != nil {
			return nil, fmt.Errorf("failed to read message source: %w", err)
		}
		msg.IsSystemMessage = jreq.IsSystemMessage
		return msg, nil
	}
	msg := &message.Message{
		ID:              jreq.ID,
		From:            jreq.From,
		Subject:         jreq.Subject,
		IsSystemMessage: jreq.IsSystemMessage,
	}
	for _, h := range jreq.Headers {
		if strings.TrimSpace(h.Name) == "" {
			return nil, fmt.Errorf("header with empty name")
		}
		msg.Header.Append(h.Name, h.Value)
	}
	return msg, nil
}

// requestRecipients validates the requested recipients.
func requestRecipients(jrcpts []model.JSONRecipientV1) ([]*message.Recipient, error) {
	rcpts := make([]*message.Recipient, 0, len(jrcpts))
	for _, jr := range jrcpts {
		category, ok := message.ParseCategory(jr.Category)
		if !ok {
			return nil, fmt.Errorf("unknown category %q for recipient %q", jr.Category, jr.Address)
		}
		rcpt, err := policy.ParseRecipient(jr.Address, category)
		if err != nil {
			return nil, err
		}
		rcpts = append(rcpts, rcpt)
	}
	return rcpts, nil
}

func jsonHeaders(hl message.HeaderList) []model.JSONHeaderV1 {
	headers := make([]model.JSONHeaderV1, len(hl))
	for i, h := range hl {
		headers[i] = model.JSONHeaderV1{Name: h.Name, Value: h.Value}
	}
	return headers
}

// reportToEvaluation converts an evaluation report event into its JSON form.
func reportToEvaluation(r *event.EvaluationReport) *model.JSONEvaluationV1 {
	overridden := r.Overridden
	if overridden == nil {
		overridden = []string{}
	}
	stamped := r.Stamped
	if stamped == nil {
		stamped = []string{}
	}
	return &model.JSONEvaluationV1{
		ID:         r.ID,
		MessageID:  r.MessageID,
		Sender:     r.Sender,
		Subject:    r.Subject,
		Policy:     r.Policy,
		Outcome:    r.Outcome,
		Severity:   r.Severity,
		Target:     r.Target,
		Overridden: overridden,
		Stamped:    stamped,
		ElapsedMS:  r.Elapsed.Milliseconds(),
		Fault:      r.Fault,
		Date:       r.Date,
	}
}
