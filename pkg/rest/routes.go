package rest

import (
	"github.com/gorilla/mux"
	"github.com/inbucket/reroute/pkg/server/web"
)

// SetupRoutes populates the routes for the REST interface.
func SetupRoutes(r *mux.Router) {
	// API v1
	r.Path("/v1/evaluate").Handler(
		web.Handler(EvaluateV1)).Name("EvaluateV1").Methods("POST")
	r.Path("/v1/status").Handler(
		web.Handler(StatusV1)).Name("StatusV1").Methods("GET")
	r.Path("/v1/monitor/evaluations").Handler(
		web.Handler(MonitorEvaluationsV1)).Name("MonitorEvaluationsV1").Methods("GET")
}
