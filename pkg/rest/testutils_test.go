package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/extension"
	"github.com/inbucket/reroute/pkg/msghub"
	"github.com/inbucket/reroute/pkg/policy"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/inbucket/reroute/pkg/server/web"
	"github.com/stretchr/testify/require"
)

const baseURL = "http://localhost/api/v1"

var routesOnce sync.Once

func testRestGet(url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", url, nil)
	req.Header.Add("Accept", "application/json")
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w
}

func testRestPost(url string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", url, strings.NewReader(body))
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Content-Type", "application/json")
	w := httptest.NewRecorder()
	web.Router.ServeHTTP(w, req)
	return w
}

// setupWebServer initializes the web package with an engine applying c, and a running hub fed by
// the engine's evaluations.
func setupWebServer(t *testing.T, c policy.Classifier) *msghub.Hub {
	t.Helper()
	extHost := extension.NewHost()
	eng, err := reroute.New(reroute.Options{}, c, extHost)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := msghub.New(10, extHost)
	go hub.Start(ctx)

	conf := &config.Root{
		Reroute: config.Reroute{Policy: string(c.Variant())},
		Web:     config.Web{Addr: "127.0.0.1:0"},
	}
	web.Initialize(conf, make(chan bool), eng, hub)
	routesOnce.Do(func() {
		SetupRoutes(web.Subrouter("/api/"))
	})
	return hub
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}
