// Package web provides the plumbing for the reroute HTTP API.
package web

import (
	"context"
	"expvar"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gorilla/mux"
	"github.com/inbucket/reroute/pkg/config"
	"github.com/inbucket/reroute/pkg/msghub"
	"github.com/inbucket/reroute/pkg/reroute"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	// msgHub holds a reference to the evaluation report hub.
	msgHub *msghub.Hub

	// engine evaluates messages submitted through the API.
	engine *reroute.Engine

	// rootConfig is exposed on the status endpoint.
	rootConfig *config.Root

	// Router is shared between the web and rest packages.  It sends incoming requests to the
	// correct handler function.
	Router = mux.NewRouter()

	server         *http.Server
	listener       net.Listener
	globalShutdown chan bool

	// ExpWebSocketConnectsCurrent tracks the number of open WebSockets.
	ExpWebSocketConnectsCurrent = new(expvar.Int)
)

func init() {
	m := expvar.NewMap("http")
	m.Set("WebSocketConnectsCurrent", ExpWebSocketConnectsCurrent)
}

// Initialize sets up things for unit tests or the Start() method.
func Initialize(
	conf *config.Root,
	shutdownChan chan bool,
	eng *reroute.Engine,
	mh *msghub.Hub,
) {
	rootConfig = conf
	globalShutdown = shutdownChan

	// NewContext() will use these for the web handlers.
	engine = eng
	msgHub = mh

	// Operational endpoints.
	Router.Path("/metrics").Handler(promhttp.Handler()).Methods("GET")
	Router.Path("/debug/vars").Handler(expvar.Handler()).Methods("GET")
	if conf.Web.PProf {
		Router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		Router.HandleFunc("/debug/pprof/profile", pprof.Profile)
		Router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		Router.HandleFunc("/debug/pprof/trace", pprof.Trace)
		Router.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
		log.Warn().Str("module", "web").Str("phase", "startup").
			Msg("Go pprof tools installed to /debug/pprof")
	}

	setNoMatchHandlers(Router)
}

// Subrouter returns a router for paths below prefix.  mux does not hand a subrouter's method
// mismatch back to the parent, so the subrouter gets its own no-match handlers.
func Subrouter(prefix string) *mux.Router {
	r := Router.PathPrefix(prefix).Subrouter()
	setNoMatchHandlers(r)
	return r
}

func setNoMatchHandlers(r *mux.Router) {
	r.NotFoundHandler = noMatchHandler(http.StatusNotFound, "No route matches URI path")
	r.MethodNotAllowedHandler = noMatchHandler(http.StatusMethodNotAllowed,
		"Method not allowed for URI path")
}

// Start begins listening for HTTP requests, and blocks until ctx is canceled.  readyFunc is
// called once the listener is open.
func Start(ctx context.Context, readyFunc func()) {
	server = &http.Server{
		Addr:         rootConfig.Web.Addr,
		Handler:      requestLoggingWrapper(Router),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// We don't use ListenAndServe because it lacks a way to close the listener.
	log.Info().Str("module", "web").Str("phase", "startup").Str("addr", server.Addr).
		Msg("HTTP listening on tcp4")
	var err error
	listener, err = net.Listen("tcp", server.Addr)
	if err != nil {
		log.Error().Str("module", "web").Str("phase", "startup").Err(err).
			Msg("HTTP failed to start TCP4 listener")
		emergencyShutdown()
		return
	}

	if readyFunc != nil {
		readyFunc()
	}

	// Listener go routine.
	go serve(ctx)

	// Wait for shutdown.
	<-ctx.Done()
	log.Debug().Str("module", "web").Str("phase", "shutdown").Msg("HTTP server shutting down on request")

	// Closing the listener will cause the serve() go routine to exit.
	if err := listener.Close(); err != nil {
		log.Debug().Str("module", "web").Str("phase", "shutdown").Err(err).
			Msg("Failed to close HTTP listener")
	}
}

// serve begins serving HTTP requests.
func serve(ctx context.Context) {
	// server.Serve blocks until we close the listener.
	err := server.Serve(listener)

	select {
	case <-ctx.Done():
		// Nop
	default:
		log.Error().Str("module", "web").Str("phase", "startup").Err(err).
			Msg("HTTP server failed")
		emergencyShutdown()
		return
	}
}

func emergencyShutdown() {
	// Shutdown the daemon.
	select {
	case <-globalShutdown:
	default:
		close(globalShutdown)
	}
}
