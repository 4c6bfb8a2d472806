// Package msghub keeps a short history of evaluation reports and relays new ones to monitors.
package msghub

import (
	"container/ring"
	"context"

	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
)

// Length of msghub operation queue
const opChanLen = 100

// Listener receives the contents of the history buffer, followed by new reports.
type Listener interface {
	Receive(report event.EvaluationReport) error
}

// Hub relays evaluation reports on to its listeners.
type Hub struct {
	// history buffer, points next report to write.  Proceeding non-nil entry is oldest report.
	history   *ring.Ring
	listeners map[Listener]struct{} // listeners interested in new reports
	opChan    chan func(h *Hub)     // operations queued for this actor
}

// New constructs a new Hub which will cache historyLen reports in memory for playback to future
// listeners.  Start must be called to process reports.
func New(historyLen int, extHost *extension.Host) *Hub {
	hub := &Hub{
		history:   ring.New(historyLen),
		listeners: make(map[Listener]struct{}),
		opChan:    make(chan func(h *Hub), opChanLen),
	}

	// Register an extension event listener for MessageEvaluated.
	extHost.Events.AfterMessageEvaluated.AddListener("msghub",
		func(report event.EvaluationReport) {
			hub.Dispatch(report)
		})

	return hub
}

// Start Hub processing loop, runs until ctx is canceled.
func (hub *Hub) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case op := <-hub.opChan:
			op(hub)
		}
	}
}

// Dispatch queues a report for broadcast by the hub.  The report will be placed into the
// history buffer and then relayed to all registered listeners.
func (hub *Hub) Dispatch(report event.EvaluationReport) {
	hub.opChan <- func(h *Hub) {
		if h.history != nil {
			// Add to history buffer
			h.history.Value = report
			h.history = h.history.Next()

			// Deliver report to all listeners, removing listeners if they return an error
			for l := range h.listeners {
				if err := l.Receive(report); err != nil {
					delete(h.listeners, l)
				}
			}
		}
	}
}

// AddListener registers a listener to receive broadcasted reports.
func (hub *Hub) AddListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		// Playback log
		failed := false
		h.history.Do(func(v any) {
			if v != nil && !failed {
				failed = l.Receive(v.(event.EvaluationReport)) != nil
			}
		})

		// Add to listeners
		if !failed {
			h.listeners[l] = struct{}{}
		}
	}
}

// RemoveListener deletes a listener registration, it will cease to receive reports.
func (hub *Hub) RemoveListener(l Listener) {
	hub.opChan <- func(h *Hub) {
		delete(h.listeners, l)
	}
}

// Recent returns the reports in the history buffer, oldest first.
func (hub *Hub) Recent() []event.EvaluationReport {
	result := make(chan []event.EvaluationReport, 1)
	hub.opChan <- func(h *Hub) {
		reports := make([]event.EvaluationReport, 0)
		h.history.Do(func(v any) {
			if v != nil {
				reports = append(reports, v.(event.EvaluationReport))
			}
		})
		result <- reports
	}
	return <-result
}

// Sync blocks until the msghub has processed its queue up to this point, useful
// for unit tests.
func (hub *Hub) Sync() {
	done := make(chan struct{})
	hub.opChan <- func(h *Hub) {
		close(done)
	}
	<-done
}
