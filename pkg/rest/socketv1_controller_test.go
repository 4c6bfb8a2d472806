package rest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/extension/event"
	"github.com/inbucket/reroute/pkg/msghub"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/rest/model"
	"github.com/inbucket/reroute/pkg/server/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorEvaluations(t *testing.T) {
	hub := setupWebServer(t, policy.AcceptAll{})

	// Evaluate first; the hub replays its history to new monitors.
	decodeJSON[model.JSONEvaluateResultV1](t, testRestPost(baseURL+"/evaluate", evaluateBody))
	require.Eventually(t, func() bool { return len(hub.Recent()) == 1 },
		2*time.Second, 10*time.Millisecond)

	srv := httptest.NewServer(web.Router)
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/monitor/evaluations"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var got model.JSONMonitorEventV1
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "evaluation", got.Variant)
	require.NotNil(t, got.Evaluation)
	assert.Equal(t, "m1@x.com", got.Evaluation.MessageID)
	assert.Equal(t, "Processed", got.Evaluation.Outcome)
	assert.Equal(t, []string{"a@x.com", "b@y.com"}, got.Evaluation.Overridden)
}

func startTestHub(t *testing.T) *msghub.Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := msghub.New(5, extension.NewHost())
	go hub.Start(ctx)
	return hub
}

func TestEvalListenerFiltersPolicy(t *testing.T) {
	el := newEvalListener(startTestHub(t), "accept-all")
	defer el.Close()

	require.NoError(t, el.Receive(event.EvaluationReport{ID: "1", Policy: "exclude-intra-org"}))
	require.NoError(t, el.Receive(event.EvaluationReport{ID: "2", Policy: "accept-all"}))

	require.Len(t, el.c, 1)
	ev := <-el.c
	assert.Equal(t, "2", ev.Evaluation.ID)
	assert.Equal(t, []string{}, ev.Evaluation.Overridden)
}

func TestEvalListenerFullOrClosed(t *testing.T) {
	el := newEvalListener(startTestHub(t), "")

	for range listenerQueueLen {
		require.NoError(t, el.Receive(event.EvaluationReport{}))
	}
	assert.ErrorIs(t, el.Receive(event.EvaluationReport{}), errListenerFull)

	el.Close()
	el.Close()
	assert.ErrorIs(t, el.Receive(event.EvaluationReport{}), errListenerClosed)
}
