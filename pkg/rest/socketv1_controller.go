package rest

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/inbucket/reroute/pkg/msghub"
	"github.com/inbucket/reroute/pkg/rest/model"
	"github.com/inbucket/reroute/pkg/server/web"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Evaluations queued for a slow client before it is disconnected.
	listenerQueueLen = 100
)

// options for gorilla connection upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// evalListener relays evaluation reports from the msghub to one WebSocket.
type evalListener struct {
	hub    *msghub.Hub                    // Global evaluation hub.
	c      chan *model.JSONMonitorEventV1 // Queue of outgoing events.
	done   chan struct{}                  // Closed once the listener is closed.
	policy string                         // Policy to monitor, "" == all policies.
	once   sync.Once
}

// newEvalListener creates a listener and registers it.  The optional policy parameter restricts
// the evaluations sent to the WebSocket to that policy variant.
func newEvalListener(hub *msghub.Hub, policy string) *evalListener {
	el := &evalListener{
		hub:    hub,
		c:      make(chan *model.JSONMonitorEventV1, listenerQueueLen),
		done:   make(chan struct{}),
		policy: policy,
	}
	hub.AddListener(el)
	return el
}

// Receive handles an incoming evaluation report.  An error unregisters the listener.
func (el *evalListener) Receive(report event.EvaluationReport) error {
	if el.policy != "" && el.policy != report.Policy {
		// Did not match the watched policy.
		return nil
	}

	select {
	case <-el.done:
		return errListenerClosed
	case el.c <- &model.JSONMonitorEventV1{
		Variant:    "evaluation",
		Evaluation: reportToEvaluation(&report),
	}:
		return nil
	default:
		// Client is not keeping up.
		return errListenerFull
	}
}

// WSReader makes sure the websocket client is still connected, discards any messages from client.
func (el *evalListener) WSReader(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()
	defer el.Close()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn().Err(err).Msg("Failed to setup read deadline")
	}
	conn.SetPongHandler(func(string) error {
		slog.Debug().Msg("Got pong")
		if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			slog.Warn().Err(err).Msg("Failed to set read deadline in pong")
		}
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				// Unexpected close code
				slog.Warn().Err(err).Msg("Socket error")
			} else {
				slog.Debug().Msg("Closing socket")
			}
			break
		}
	}
}

// WSWriter sends queued evaluations and pings to the websocket client.
func (el *evalListener) WSWriter(conn *websocket.Conn) {
	slog := log.With().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Logger()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		el.Close()
	}()

	// Handle evaluations from hub until the listener is closed.
	for {
		select {
		case <-el.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-el.c:
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for evaluation")
			}
			if conn.WriteJSON(ev) != nil {
				// Write failed
				return
			}
		case <-ticker.C:
			// Send ping
			if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				slog.Warn().Err(err).Msg("Failed to set write deadline for ping")
			}
			if conn.WriteMessage(websocket.PingMessage, []byte{}) != nil {
				// Write error
				return
			}
			slog.Debug().Msg("Sent ping")
		}
	}
}

// Close removes the listener registration.
func (el *evalListener) Close() {
	el.once.Do(func() {
		close(el.done)
		el.hub.RemoveListener(el)
	})
}

// MonitorEvaluationsV1 is a web handler which upgrades the connection to a websocket and notifies
// the client of every evaluation.  The optional policy query parameter restricts the stream to
// one policy variant.
func MonitorEvaluationsV1(
	w http.ResponseWriter, req *http.Request, ctx *web.Context) (err error) {
	if ctx.MsgHub == nil {
		return errNoMonitor
	}
	// Upgrade to Websocket.
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	web.ExpWebSocketConnectsCurrent.Add(1)
	defer func() {
		_ = conn.Close()
		web.ExpWebSocketConnectsCurrent.Add(-1)
	}()
	log.Debug().Str("module", "rest").Str("proto", "WebSocket").
		Str("remote", conn.RemoteAddr().String()).Msg("Upgraded to WebSocket")
	// Create, register listener; then interact with conn.
	el := newEvalListener(ctx.MsgHub, req.URL.Query().Get("policy"))
	go el.WSWriter(conn)
	el.WSReader(conn)
	return nil
}
